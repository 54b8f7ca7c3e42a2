package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/lifequest/internal/auth"
	"github.com/dukerupert/lifequest/internal/middleware"
	"github.com/dukerupert/lifequest/internal/store"
)

const stateCookie = "lifequest_oauth_state"

type AuthHandler struct {
	userStore *store.UserStore
	issuer    *auth.Issuer
	sso       *auth.SSO
	logger    *slog.Logger
}

// NewAuthHandler builds the token endpoints. sso may be nil when single
// sign-on is not configured.
func NewAuthHandler(us *store.UserStore, issuer *auth.Issuer, sso *auth.SSO, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{userStore: us, issuer: issuer, sso: sso, logger: logger}
}

// Token exchanges email and password for a bearer token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.userStore.GetByEmail(r.Context(), req.Email)
	if err != nil {
		fail(w, r, h.logger, err, "issue token")
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	h.issue(w, r, user.ID, "password")
}

func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, userID int64, method string) {
	token, exp, err := h.issuer.Issue(userID)
	if err != nil {
		fail(w, r, h.logger, err, "issue token")
		return
	}
	h.logger.Info("token issued", "user_id", userID, "method", method)
	writeOK(w, http.StatusOK, envelope{
		"token":      token,
		"token_type": "Bearer",
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

// SSOLogin redirects to the identity provider.
func (h *AuthHandler) SSOLogin(w http.ResponseWriter, r *http.Request) {
	state, err := auth.NewState()
	if err != nil {
		fail(w, r, h.logger, err, "sso login")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/sso",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})
	http.Redirect(w, r, h.sso.AuthCodeURL(state), http.StatusFound)
}

// SSOCallback completes sign-on and issues a token for the existing account
// with the verified email. Accounts are never created here.
func (h *AuthHandler) SSOCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		writeError(w, http.StatusBadRequest, "invalid state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth/sso", MaxAge: -1})

	if msg := r.URL.Query().Get("error"); msg != "" {
		writeError(w, http.StatusUnauthorized, "sign-in was not completed: "+msg)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}

	email, err := h.sso.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Warn("sso exchange failed", "error", err, "request_id", middleware.RequestID(r.Context()))
		writeError(w, http.StatusUnauthorized, "sign-in could not be verified")
		return
	}

	user, err := h.userStore.GetByEmail(r.Context(), email)
	if err != nil {
		fail(w, r, h.logger, err, "sso callback")
		return
	}
	if user == nil {
		writeError(w, http.StatusForbidden, "no account for "+email)
		return
	}
	h.issue(w, r, user.ID, "sso")
}
