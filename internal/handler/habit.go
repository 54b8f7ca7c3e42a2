package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/lifequest/internal/auth"
	"github.com/dukerupert/lifequest/internal/habit"
	"github.com/dukerupert/lifequest/internal/model"
	"github.com/dukerupert/lifequest/internal/tracker"
)

type HabitHandler struct {
	svc    *tracker.Service
	logger *slog.Logger
}

func NewHabitHandler(svc *tracker.Service, logger *slog.Logger) *HabitHandler {
	return &HabitHandler{svc: svc, logger: logger}
}

type habitRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Periodicity model.Periodicity `json:"periodicity"`
	Weekdays    []int             `json:"weekdays"`
	DayOfMonth  *int              `json:"day_of_month"`
	StartDate   string            `json:"start_date"`
	EndDate     string            `json:"end_date"`
	XPGain      *int              `json:"xp_gain"`
	Active      *bool             `json:"active"`
}

func (req habitRequest) toHabit() (model.Habit, error) {
	h := model.Habit{
		Name:        req.Name,
		Description: req.Description,
		Periodicity: req.Periodicity,
		DayOfMonth:  req.DayOfMonth,
		XPGain:      10,
		Active:      true,
	}
	if req.XPGain != nil {
		h.XPGain = *req.XPGain
	}
	if req.Active != nil {
		h.Active = *req.Active
	}
	for _, d := range req.Weekdays {
		if d < 0 || d > 6 {
			return h, habit.Invalid("weekdays", "value %d out of range 0..6", d)
		}
		h.Weekdays = append(h.Weekdays, time.Weekday(d))
	}

	var err error
	if h.StartDate, err = parseOptionalDate(req.StartDate); err != nil {
		return h, habit.Invalid("start_date", "must be YYYY-MM-DD")
	}
	if h.EndDate, err = parseOptionalDate(req.EndDate); err != nil {
		return h, habit.Invalid("end_date", "must be YYYY-MM-DD")
	}
	return h, nil
}

// List returns the habits due on ?date= (today by default) with their
// tracking state, or every habit when ?all=true.
func (h *HabitHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	if r.URL.Query().Get("all") == "true" {
		habits, err := h.svc.ListHabits(r.Context(), userID)
		if err != nil {
			fail(w, r, h.logger, err, "list habits")
			return
		}
		writeOK(w, http.StatusOK, envelope{"habits": nonNil(habits)})
		return
	}

	date, err := parseOptionalDate(r.URL.Query().Get("date"))
	if err != nil {
		fail(w, r, h.logger, err, "list habits")
		return
	}
	day := h.svc.Today()
	if date != nil {
		day = *date
	}

	habits, err := h.svc.HabitsForDate(r.Context(), userID, day)
	if err != nil {
		fail(w, r, h.logger, err, "list habits")
		return
	}
	writeOK(w, http.StatusOK, envelope{"date": habit.FormatDate(day), "habits": habits})
}

func (h *HabitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req habitRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.toHabit()
	if err != nil {
		fail(w, r, h.logger, err, "create habit")
		return
	}

	created, err := h.svc.CreateHabit(r.Context(), auth.UserID(r.Context()), in)
	if err != nil {
		fail(w, r, h.logger, err, "create habit")
		return
	}
	writeOK(w, http.StatusCreated, envelope{"habit": created})
}

func (h *HabitHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req habitRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.toHabit()
	if err != nil {
		fail(w, r, h.logger, err, "update habit")
		return
	}

	updated, err := h.svc.UpdateHabit(r.Context(), auth.UserID(r.Context()), id, in)
	if err != nil {
		fail(w, r, h.logger, err, "update habit")
		return
	}
	writeOK(w, http.StatusOK, envelope{"habit": updated})
}

func (h *HabitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.svc.DeleteHabit(r.Context(), auth.UserID(r.Context()), id); err != nil {
		fail(w, r, h.logger, err, "delete habit")
		return
	}
	writeOK(w, http.StatusOK, nil)
}

type markRequest struct {
	Completed bool   `json:"completed"`
	Date      string `json:"date"`
}

func (h *HabitHandler) Mark(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req markRequest
	if !decode(w, r, &req) {
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		fail(w, r, h.logger, err, "mark habit")
		return
	}

	res, err := h.svc.MarkHabit(r.Context(), auth.UserID(r.Context()), id, req.Completed, date)
	if err != nil {
		fail(w, r, h.logger, err, "mark habit")
		return
	}
	writeOK(w, http.StatusOK, envelope{
		"tracking":   res.Tracking,
		"xp_awarded": res.XPAwarded,
		"xp_total":   res.XPTotal,
		"level":      res.Level,
	})
}

func (h *HabitHandler) XP(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.XP(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		fail(w, r, h.logger, err, "get xp")
		return
	}
	writeOK(w, http.StatusOK, envelope{"xp_total": b.XPTotal, "level": b.Level})
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
