package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/dukerupert/lifequest/internal/auth"
	"github.com/dukerupert/lifequest/internal/push"
	"github.com/dukerupert/lifequest/internal/store"
)

type PushHandler struct {
	pushStore *store.PushStore
	svc       *push.Service
	logger    *slog.Logger
}

func NewPushHandler(ps *store.PushStore, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushStore: ps, svc: svc, logger: logger}
}

func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, envelope{"public_key": h.svc.VAPIDPublicKey()})
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	DeviceName string `json:"device_name"`
}

// Subscribe accepts the browser's PushSubscription JSON.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !decode(w, r, &req) {
		return
	}
	if u, err := url.Parse(req.Endpoint); err != nil || u.Scheme != "https" || u.Host == "" {
		writeError(w, http.StatusBadRequest, "endpoint must be an https URL")
		return
	}
	if req.Keys.P256dh == "" || req.Keys.Auth == "" {
		writeError(w, http.StatusBadRequest, "keys.p256dh and keys.auth are required")
		return
	}

	userID := auth.UserID(r.Context())
	sub, err := h.pushStore.Subscribe(r.Context(), userID, req.Endpoint, req.Keys.P256dh, req.Keys.Auth, req.DeviceName)
	if err != nil {
		fail(w, r, h.logger, err, "subscribe")
		return
	}
	h.logger.Info("push subscription registered", "user_id", userID, "subscription_id", sub.ID)
	writeOK(w, http.StatusCreated, envelope{"subscription": sub})
}

func (h *PushHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.pushStore.ListByUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		fail(w, r, h.logger, err, "list subscriptions")
		return
	}
	writeOK(w, http.StatusOK, envelope{"subscriptions": nonNil(subs)})
}

func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	ok, err := h.pushStore.Delete(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		fail(w, r, h.logger, err, "unsubscribe")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeOK(w, http.StatusOK, nil)
}
