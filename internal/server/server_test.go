package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/dukerupert/lifequest/internal/auth"
	"github.com/dukerupert/lifequest/internal/database"
	"github.com/dukerupert/lifequest/internal/push"
	"github.com/dukerupert/lifequest/internal/store"
	"github.com/dukerupert/lifequest/internal/tracker"
	ws "github.com/dukerupert/lifequest/internal/websocket"
)

// Sunday 2025-03-09, the last day of ISO week 10.
var fixedNow = time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)

type testServer struct {
	handler http.Handler
	stores  *store.Stores
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	pub, priv, err := push.GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate vapid keys: %v", err)
	}
	return setupServerWith(t, WithPush(push.NewService(push.Config{VAPIDPublicKey: pub, VAPIDPrivateKey: priv})))
}

func setupServerWith(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stores := store.New(db)
	hub := ws.NewHub(logger)
	svc := tracker.New(stores, logger,
		tracker.WithNotifier(hub),
		tracker.WithLocation(time.UTC),
		tracker.WithClock(func() time.Time { return fixedNow }),
	)
	issuer := auth.NewIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	srv := New(db, stores, svc, hub, issuer, logger, opts...)
	return &testServer{handler: srv.Router(), stores: stores}
}

func (ts *testServer) addUser(t *testing.T, email, password string) {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if _, err := ts.stores.Users.Create(context.Background(), email, hash); err != nil {
		t.Fatalf("create user: %v", err)
	}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: decode response %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, out
}

func (ts *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	ts.addUser(t, email, password)
	code, body := ts.do(t, "POST", "/auth/token", "", map[string]string{"email": email, "password": password})
	if code != http.StatusOK {
		t.Fatalf("token status = %d, want 200 (%v)", code, body)
	}
	return body["token"].(string)
}

func TestHealth(t *testing.T) {
	ts := setupServer(t)
	code, body := ts.do(t, "GET", "/health", "", nil)
	if code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
	if body["status"] != "ok" {
		t.Errorf("body status = %v, want ok", body["status"])
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := setupServer(t)
	for _, path := range []string{"/api/habits", "/api/xp", "/api/reading-plan", "/api/rewards"} {
		code, body := ts.do(t, "GET", path, "", nil)
		if code != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want 401", path, code)
		}
		if body["success"] != false {
			t.Errorf("GET %s success = %v, want false", path, body["success"])
		}
	}
}

func TestTokenRejectsBadCredentials(t *testing.T) {
	ts := setupServer(t)
	ts.addUser(t, "me@example.com", "correct horse")

	code, _ := ts.do(t, "POST", "/auth/token", "", map[string]string{"email": "me@example.com", "password": "wrong"})
	if code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", code)
	}
	code, _ = ts.do(t, "POST", "/auth/token", "", map[string]string{"email": "nobody@example.com", "password": "x"})
	if code != http.StatusUnauthorized {
		t.Errorf("unknown user status = %d, want 401", code)
	}
	code, _ = ts.do(t, "POST", "/auth/token", "", map[string]string{"email": "me@example.com"})
	if code != http.StatusBadRequest {
		t.Errorf("missing password status = %d, want 400", code)
	}
}

func TestHabitLifecycle(t *testing.T) {
	ts := setupServer(t)
	token := ts.login(t, "me@example.com", "secret-pass")

	code, body := ts.do(t, "GET", "/api/xp", token, nil)
	if code != http.StatusOK || body["xp_total"] != float64(0) || body["level"] != float64(1) {
		t.Fatalf("initial xp = %d %v, want 0 at level 1", code, body)
	}

	code, body = ts.do(t, "POST", "/api/habits", token, map[string]any{
		"name": "Meditate", "periodicity": "DIARIO", "xp_gain": 10,
	})
	if code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201 (%v)", code, body)
	}
	id := int64(body["habit"].(map[string]any)["id"].(float64))
	path := "/api/habits/" + itoa(id)

	code, body = ts.do(t, "GET", "/api/habits?date=2025-03-09", token, nil)
	if code != http.StatusOK {
		t.Fatalf("list status = %d", code)
	}
	if habits := body["habits"].([]any); len(habits) != 1 {
		t.Fatalf("due habits = %d, want 1", len(habits))
	}

	code, body = ts.do(t, "POST", path+"/mark", token, map[string]any{"completed": true})
	if code != http.StatusOK {
		t.Fatalf("mark status = %d (%v)", code, body)
	}
	if body["xp_awarded"] != float64(10) || body["xp_total"] != float64(10) {
		t.Errorf("mark = %v, want xp_awarded 10 and xp_total 10", body)
	}

	_, body = ts.do(t, "POST", path+"/mark", token, map[string]any{"completed": true})
	if body["xp_awarded"] != float64(0) || body["xp_total"] != float64(10) {
		t.Errorf("second mark = %v, want no further xp", body)
	}

	code, _ = ts.do(t, "DELETE", path, token, nil)
	if code != http.StatusOK {
		t.Errorf("delete status = %d, want 200", code)
	}
	code, _ = ts.do(t, "DELETE", path, token, nil)
	if code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", code)
	}
}

func TestHabitValidation(t *testing.T) {
	ts := setupServer(t)
	token := ts.login(t, "me@example.com", "secret-pass")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"periodicity": "DIARIO"}},
		{"unknown periodicity", map[string]any{"name": "x", "periodicity": "HOURLY"}},
		{"bad weekday", map[string]any{"name": "x", "periodicity": "SEMANAL", "weekdays": []int{9}}},
		{"bad date", map[string]any{"name": "x", "periodicity": "DIARIO", "start_date": "03/09/2025"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := ts.do(t, "POST", "/api/habits", token, tt.body)
			if code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (%v)", code, body)
			}
		})
	}
}

func TestReadingWeekUnlocksReward(t *testing.T) {
	ts := setupServer(t)
	token := ts.login(t, "reader@example.com", "secret-pass")

	code, _ := ts.do(t, "POST", "/api/rewards", token, map[string]any{
		"weeks_required": 1, "title": "New bookmark",
	})
	if code != http.StatusCreated {
		t.Fatalf("create reward status = %d", code)
	}

	code, body := ts.do(t, "POST", "/api/reading-plan", token, map[string]any{
		"book_title": "Dune", "week": 10, "year": 2025,
	})
	if code != http.StatusCreated {
		t.Fatalf("add book status = %d (%v)", code, body)
	}
	id := int64(body["entry"].(map[string]any)["id"].(float64))

	code, body = ts.do(t, "POST", "/api/reading-plan/"+itoa(id)+"/mark", token, map[string]any{"completed": true})
	if code != http.StatusOK {
		t.Fatalf("mark status = %d (%v)", code, body)
	}
	if body["total_completed_weeks"] != float64(1) {
		t.Errorf("total_completed_weeks = %v, want 1", body["total_completed_weeks"])
	}
	if unlocked := body["unlocked"].([]any); len(unlocked) != 1 {
		t.Errorf("unlocked = %d rewards, want 1", len(unlocked))
	}

	code, _ = ts.do(t, "POST", "/api/reading-plan", token, map[string]any{
		"book_title": "Emma", "week": 53, "year": 2025,
	})
	if code != http.StatusBadRequest {
		t.Errorf("week 53 of 2025 status = %d, want 400", code)
	}
}

func TestReadingPlanIsPerUser(t *testing.T) {
	ts := setupServer(t)
	alice := ts.login(t, "alice@example.com", "secret-pass")
	bob := ts.login(t, "bob@example.com", "secret-pass")

	_, body := ts.do(t, "POST", "/api/reading-plan", alice, map[string]any{
		"book_title": "Dune", "week": 10, "year": 2025,
	})
	id := int64(body["entry"].(map[string]any)["id"].(float64))

	code, _ := ts.do(t, "POST", "/api/reading-plan/"+itoa(id)+"/mark", bob, map[string]any{"completed": true})
	if code != http.StatusNotFound {
		t.Errorf("other user's mark status = %d, want 404", code)
	}
	_, body = ts.do(t, "GET", "/api/reading-plan?year=2025", bob, nil)
	if entries := body["entries"].([]any); len(entries) != 0 {
		t.Errorf("other user sees %d entries, want 0", len(entries))
	}
}

func TestWorkoutSession(t *testing.T) {
	ts := setupServer(t)
	token := ts.login(t, "lifter@example.com", "secret-pass")

	code, body := ts.do(t, "POST", "/api/exercises", token, map[string]any{"name": "Squat", "muscle_group": "legs"})
	if code != http.StatusCreated {
		t.Fatalf("create exercise status = %d (%v)", code, body)
	}
	exID := body["exercise"].(map[string]any)["id"].(float64)

	code, body = ts.do(t, "POST", "/api/workout/schedule", token, map[string]any{
		"exercise_id": exID, "weekday": 0, "planned_sets": 3, "planned_reps": "8-10",
	})
	if code != http.StatusCreated {
		t.Fatalf("schedule status = %d (%v)", code, body)
	}
	schedID := body["entry"].(map[string]any)["id"].(float64)

	code, body = ts.do(t, "GET", "/api/workout/schedule?weekday=0", token, nil)
	if code != http.StatusOK || len(body["schedule"].([]any)) != 1 {
		t.Fatalf("schedule for Sunday = %d %v, want one entry", code, body)
	}

	code, body = ts.do(t, "POST", "/api/workout/series", token, map[string]any{
		"schedule_id": schedID,
		"series":      []map[string]any{{"weight_kg": 60, "reps": 10}, {"weight_kg": 65, "reps": 8}},
	})
	if code != http.StatusCreated {
		t.Fatalf("series status = %d (%v)", code, body)
	}
	if body["workout_completed"] != true || body["xp_awarded"] != float64(20) {
		t.Errorf("series = %v, want completed workout worth 20 xp", body)
	}
	if sets := body["sets"].([]any); len(sets) != 2 {
		t.Errorf("sets = %d, want 2", len(sets))
	}

	code, body = ts.do(t, "GET", "/api/workout/progress?days=7", token, nil)
	if code != http.StatusOK || len(body["progress"].([]any)) != 1 {
		t.Errorf("progress = %d %v, want one point", code, body)
	}

	code, body = ts.do(t, "POST", "/api/workout/delete", token, map[string]any{"date": "2025-03-09"})
	if code != http.StatusOK || body["removed_sets"] != float64(2) {
		t.Errorf("delete workout = %d %v, want 2 removed sets", code, body)
	}

	code, _ = ts.do(t, "GET", "/api/workout/schedule?weekday=7", token, nil)
	if code != http.StatusBadRequest {
		t.Errorf("weekday 7 status = %d, want 400", code)
	}
}

func TestTokenRateLimited(t *testing.T) {
	ts := setupServer(t)
	var code int
	for i := 0; i < 11; i++ {
		code, _ = ts.do(t, "POST", "/auth/token", "", map[string]string{"email": "x@example.com", "password": "x"})
	}
	if code != http.StatusTooManyRequests {
		t.Errorf("11th attempt status = %d, want 429", code)
	}
}

func TestPushSubscriptions(t *testing.T) {
	ts := setupServer(t)
	token := ts.login(t, "me@example.com", "secret-pass")

	code, body := ts.do(t, "GET", "/api/push/vapid-key", token, nil)
	if code != http.StatusOK || body["public_key"] == "" {
		t.Fatalf("vapid key = %d %v", code, body)
	}

	code, _ = ts.do(t, "POST", "/api/push/subscribe", token, map[string]any{
		"endpoint": "http://insecure.example/x",
		"keys":     map[string]string{"p256dh": "p", "auth": "a"},
	})
	if code != http.StatusBadRequest {
		t.Errorf("http endpoint status = %d, want 400", code)
	}

	code, body = ts.do(t, "POST", "/api/push/subscribe", token, map[string]any{
		"endpoint":    "https://push.example/device",
		"keys":        map[string]string{"p256dh": "p", "auth": "a"},
		"device_name": "phone",
	})
	if code != http.StatusCreated {
		t.Fatalf("subscribe status = %d (%v)", code, body)
	}
	sub := body["subscription"].(map[string]any)
	if _, leaked := sub["auth_key"]; leaked {
		t.Error("subscription keys should not be echoed")
	}
	id := int64(sub["id"].(float64))

	_, body = ts.do(t, "GET", "/api/push/subscriptions", token, nil)
	if subs := body["subscriptions"].([]any); len(subs) != 1 {
		t.Errorf("subscriptions = %d, want 1", len(subs))
	}

	code, _ = ts.do(t, "DELETE", "/api/push/subscriptions/"+itoa(id), token, nil)
	if code != http.StatusOK {
		t.Errorf("unsubscribe status = %d, want 200", code)
	}
	code, _ = ts.do(t, "DELETE", "/api/push/subscriptions/"+itoa(id), token, nil)
	if code != http.StatusNotFound {
		t.Errorf("second unsubscribe status = %d, want 404", code)
	}
}

func TestPushRoutesAbsentWithoutVAPID(t *testing.T) {
	ts := setupServerWith(t)
	token := ts.login(t, "me@example.com", "secret-pass")

	req := httptest.NewRequest("GET", "/api/push/vapid-key", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSSORoutesAbsentWithoutProvider(t *testing.T) {
	ts := setupServer(t)
	code, _ := ts.do(t, "GET", "/auth/sso/login", "", nil)
	if code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 from the protected catch-all", code)
	}
}

func TestSSOCallbackChecksState(t *testing.T) {
	ts := setupServerWith(t, WithSSO(&auth.SSO{}))

	req := httptest.NewRequest("GET", "/auth/sso/login", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound {
		t.Fatalf("login status = %d, want 302", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value == "" {
		t.Fatalf("cookies = %v, want one state cookie", cookies)
	}

	req = httptest.NewRequest("GET", "/auth/sso/callback?state=forged&code=x", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("forged state status = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest("GET", "/auth/sso/callback?state="+cookies[0].Value+"&error=access_denied", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("denied status = %d, want 401", rec.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
