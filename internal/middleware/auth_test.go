package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/lifequest/internal/auth"
)

const testSecret = "0123456789abcdef"

func protected(t *testing.T, reached *int64) http.Handler {
	t.Helper()
	return RequireAuth(auth.NewIssuer(testSecret, time.Hour))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*reached = auth.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRequireAuthMissingToken(t *testing.T) {
	var reached int64
	handler := protected(t, &reached)

	req := httptest.NewRequest("GET", "/api/habits", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if reached != 0 {
		t.Error("handler should not be reached")
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != false || body["error"] == "" {
		t.Errorf("body = %v", body)
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	var reached int64
	handler := protected(t, &reached)

	req := httptest.NewRequest("GET", "/api/habits", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthWrongScheme(t *testing.T) {
	var reached int64
	handler := protected(t, &reached)
	token, _, _ := auth.NewIssuer(testSecret, time.Hour).Issue(5)

	req := httptest.NewRequest("GET", "/api/habits", nil)
	req.Header.Set("Authorization", "Basic "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthValidHeader(t *testing.T) {
	var reached int64
	handler := protected(t, &reached)
	token, _, err := auth.NewIssuer(testSecret, time.Hour).Issue(5)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/habits", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if reached != 5 {
		t.Errorf("user id = %d, want 5", reached)
	}
}

func TestRequireAuthQueryToken(t *testing.T) {
	var reached int64
	handler := protected(t, &reached)
	token, _, _ := auth.NewIssuer(testSecret, time.Hour).Issue(9)

	req := httptest.NewRequest("GET", "/ws?access_token="+token, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || reached != 9 {
		t.Errorf("status = %d, user = %d, want 200 and 9", rec.Code, reached)
	}
}
