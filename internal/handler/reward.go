package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/lifequest/internal/auth"
	"github.com/dukerupert/lifequest/internal/tracker"
)

type RewardHandler struct {
	svc    *tracker.Service
	logger *slog.Logger
}

func NewRewardHandler(svc *tracker.Service, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{svc: svc, logger: logger}
}

type rewardRequest struct {
	WeeksRequired int    `json:"weeks_required"`
	Title         string `json:"title"`
	Description   string `json:"description"`
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if !decode(w, r, &req) {
		return
	}

	reward, err := h.svc.CreateReward(r.Context(), auth.UserID(r.Context()), req.WeeksRequired, req.Title, req.Description)
	if err != nil {
		fail(w, r, h.logger, err, "create reward")
		return
	}
	writeOK(w, http.StatusCreated, envelope{"reward": reward})
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.svc.ListRewards(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		fail(w, r, h.logger, err, "list rewards")
		return
	}
	writeOK(w, http.StatusOK, envelope{"rewards": nonNil(rewards)})
}

func (h *RewardHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	total, unlocked, err := h.svc.EvaluateRewards(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		fail(w, r, h.logger, err, "evaluate rewards")
		return
	}
	writeOK(w, http.StatusOK, envelope{"total_completed_weeks": total, "unlocked": unlocked})
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.svc.DeleteReward(r.Context(), auth.UserID(r.Context()), id); err != nil {
		fail(w, r, h.logger, err, "delete reward")
		return
	}
	writeOK(w, http.StatusOK, nil)
}
