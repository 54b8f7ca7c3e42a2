package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/lifequest/internal/auth"
	"github.com/dukerupert/lifequest/internal/habit"
	"github.com/dukerupert/lifequest/internal/tracker"
)

type WorkoutHandler struct {
	svc    *tracker.Service
	logger *slog.Logger
}

func NewWorkoutHandler(svc *tracker.Service, logger *slog.Logger) *WorkoutHandler {
	return &WorkoutHandler{svc: svc, logger: logger}
}

// --- Exercises ---

func (h *WorkoutHandler) ListExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := h.svc.ListExercises(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		fail(w, r, h.logger, err, "list exercises")
		return
	}
	writeOK(w, http.StatusOK, envelope{"exercises": nonNil(exercises)})
}

func (h *WorkoutHandler) CreateExercise(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		MuscleGroup string `json:"muscle_group"`
		Notes       string `json:"notes"`
	}
	if !decode(w, r, &req) {
		return
	}

	ex, err := h.svc.CreateExercise(r.Context(), auth.UserID(r.Context()), req.Name, req.MuscleGroup, req.Notes)
	if err != nil {
		fail(w, r, h.logger, err, "create exercise")
		return
	}
	writeOK(w, http.StatusCreated, envelope{"exercise": ex})
}

// --- Schedule ---

// Schedule returns the weekly program, or one weekday's with ?weekday=0..6.
func (h *WorkoutHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var weekday *time.Weekday
	if s := r.URL.Query().Get("weekday"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > 6 {
			writeError(w, http.StatusBadRequest, "weekday must be 0..6")
			return
		}
		wd := time.Weekday(n)
		weekday = &wd
	}

	entries, err := h.svc.WorkoutSchedule(r.Context(), auth.UserID(r.Context()), weekday)
	if err != nil {
		fail(w, r, h.logger, err, "list schedule")
		return
	}
	writeOK(w, http.StatusOK, envelope{"schedule": nonNil(entries)})
}

func (h *WorkoutHandler) AddScheduled(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExerciseID  int64        `json:"exercise_id"`
		Weekday     time.Weekday `json:"weekday"`
		PlannedSets int          `json:"planned_sets"`
		PlannedReps string       `json:"planned_reps"`
	}
	if !decode(w, r, &req) {
		return
	}

	entry, err := h.svc.ScheduleExercise(r.Context(), auth.UserID(r.Context()),
		req.ExerciseID, req.Weekday, req.PlannedSets, req.PlannedReps)
	if err != nil {
		fail(w, r, h.logger, err, "schedule exercise")
		return
	}
	writeOK(w, http.StatusCreated, envelope{"entry": entry})
}

func (h *WorkoutHandler) EditScheduled(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var change tracker.ScheduleChange
	if !decode(w, r, &change) {
		return
	}

	entry, err := h.svc.EditScheduledExercise(r.Context(), auth.UserID(r.Context()), id, change)
	if err != nil {
		fail(w, r, h.logger, err, "edit scheduled exercise")
		return
	}
	writeOK(w, http.StatusOK, envelope{"entry": entry})
}

func (h *WorkoutHandler) RemoveScheduled(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.svc.RemoveScheduledExercise(r.Context(), auth.UserID(r.Context()), id); err != nil {
		fail(w, r, h.logger, err, "remove scheduled exercise")
		return
	}
	writeOK(w, http.StatusOK, nil)
}

// --- Sessions ---

func (h *WorkoutHandler) SaveSeries(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScheduleID int64            `json:"schedule_id"`
		Series     []tracker.Series `json:"series"`
		Date       string           `json:"date"`
	}
	if !decode(w, r, &req) {
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		fail(w, r, h.logger, err, "save series")
		return
	}

	res, err := h.svc.SaveWorkoutSeries(r.Context(), auth.UserID(r.Context()), req.ScheduleID, req.Series, date)
	if err != nil {
		fail(w, r, h.logger, err, "save series")
		return
	}
	writeOK(w, http.StatusCreated, envelope{
		"sets":              nonNil(res.Sets),
		"workout_completed": res.WorkoutCompleted,
		"xp_awarded":        res.XPAwarded,
	})
}

func (h *WorkoutHandler) DeleteWorkout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if !decode(w, r, &req) {
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		fail(w, r, h.logger, err, "delete workout")
		return
	}
	if date == nil {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	removed, err := h.svc.DeleteWorkout(r.Context(), auth.UserID(r.Context()), *date)
	if err != nil {
		fail(w, r, h.logger, err, "delete workout")
		return
	}
	writeOK(w, http.StatusOK, envelope{"removed_sets": removed})
}

func (h *WorkoutHandler) History(w http.ResponseWriter, r *http.Request) {
	date, err := parseOptionalDate(r.URL.Query().Get("date"))
	if err != nil {
		fail(w, r, h.logger, err, "workout history")
		return
	}
	day := h.svc.Today()
	if date != nil {
		day = *date
	}

	sets, err := h.svc.WorkoutHistory(r.Context(), auth.UserID(r.Context()), day)
	if err != nil {
		fail(w, r, h.logger, err, "workout history")
		return
	}
	writeOK(w, http.StatusOK, envelope{"date": habit.FormatDate(day), "sets": nonNil(sets)})
}

func (h *WorkoutHandler) Progress(w http.ResponseWriter, r *http.Request) {
	days := 0
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	progress, err := h.svc.ExerciseProgress(r.Context(), auth.UserID(r.Context()), days)
	if err != nil {
		fail(w, r, h.logger, err, "exercise progress")
		return
	}
	writeOK(w, http.StatusOK, envelope{"progress": nonNil(progress)})
}
