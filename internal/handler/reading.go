package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/lifequest/internal/auth"
	"github.com/dukerupert/lifequest/internal/tracker"
)

type ReadingHandler struct {
	svc    *tracker.Service
	logger *slog.Logger
}

func NewReadingHandler(svc *tracker.Service, logger *slog.Logger) *ReadingHandler {
	return &ReadingHandler{svc: svc, logger: logger}
}

// List returns the plan for ?year=, or every year when absent.
func (h *ReadingHandler) List(w http.ResponseWriter, r *http.Request) {
	year := 0
	if s := r.URL.Query().Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = y
	}

	entries, err := h.svc.ReadingPlan(r.Context(), auth.UserID(r.Context()), year)
	if err != nil {
		fail(w, r, h.logger, err, "list reading plan")
		return
	}
	writeOK(w, http.StatusOK, envelope{"entries": nonNil(entries)})
}

type bookRequest struct {
	BookTitle string `json:"book_title"`
	Week      int    `json:"week"`
	Year      int    `json:"year"`
}

func (h *ReadingHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !decode(w, r, &req) {
		return
	}

	entry, err := h.svc.AddBook(r.Context(), auth.UserID(r.Context()), req.BookTitle, req.Week, req.Year)
	if err != nil {
		fail(w, r, h.logger, err, "add book")
		return
	}
	writeOK(w, http.StatusCreated, envelope{"entry": entry})
}

func (h *ReadingHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req bookRequest
	if !decode(w, r, &req) {
		return
	}

	entry, err := h.svc.EditBook(r.Context(), auth.UserID(r.Context()), id, req.BookTitle)
	if err != nil {
		fail(w, r, h.logger, err, "edit book")
		return
	}
	writeOK(w, http.StatusOK, envelope{"entry": entry})
}

func (h *ReadingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.svc.DeleteBook(r.Context(), auth.UserID(r.Context()), id); err != nil {
		fail(w, r, h.logger, err, "delete book")
		return
	}
	writeOK(w, http.StatusOK, nil)
}

func (h *ReadingHandler) Mark(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Completed bool `json:"completed"`
	}
	if !decode(w, r, &req) {
		return
	}

	res, err := h.svc.MarkReadingWeek(r.Context(), auth.UserID(r.Context()), id, req.Completed)
	if err != nil {
		fail(w, r, h.logger, err, "mark reading week")
		return
	}
	writeOK(w, http.StatusOK, envelope{
		"entry":                 res.Entry,
		"total_completed_weeks": res.TotalCompletedWeeks,
		"unlocked":              nonNil(res.Unlocked),
	})
}

func (h *ReadingHandler) Notes(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if !decode(w, r, &req) {
		return
	}

	entry, err := h.svc.SaveReadingNotes(r.Context(), auth.UserID(r.Context()), id, req.Notes)
	if err != nil {
		fail(w, r, h.logger, err, "save notes")
		return
	}
	writeOK(w, http.StatusOK, envelope{"entry": entry})
}
