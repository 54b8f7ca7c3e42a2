package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/lifequest/internal/auth"
	"github.com/dukerupert/lifequest/internal/handler"
	"github.com/dukerupert/lifequest/internal/middleware"
	"github.com/dukerupert/lifequest/internal/push"
	"github.com/dukerupert/lifequest/internal/store"
	"github.com/dukerupert/lifequest/internal/tracker"
	ws "github.com/dukerupert/lifequest/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	issuer      *auth.Issuer
	habitH      *handler.HabitHandler
	readingH    *handler.ReadingHandler
	rewardH     *handler.RewardHandler
	workoutH    *handler.WorkoutHandler
	authH       *handler.AuthHandler
	pushH       *handler.PushHandler
	ssoEnabled  bool
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

// Option enables an optional part of the HTTP surface.
type Option func(*options)

type options struct {
	push *push.Service
	sso  *auth.SSO
}

// WithPush registers the push subscription routes.
func WithPush(svc *push.Service) Option {
	return func(o *options) { o.push = svc }
}

// WithSSO registers the OpenID Connect sign-on routes.
func WithSSO(sso *auth.SSO) Option {
	return func(o *options) { o.sso = sso }
}

func New(db *sql.DB, stores *store.Stores, svc *tracker.Service, hub *ws.Hub, issuer *auth.Issuer, logger *slog.Logger, opts ...Option) *Server {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var pushH *handler.PushHandler
	if o.push != nil {
		pushH = handler.NewPushHandler(stores.Push, o.push, logger.With("component", "push"))
	}

	return &Server{
		db:          db,
		hub:         hub,
		issuer:      issuer,
		habitH:      handler.NewHabitHandler(svc, logger.With("component", "habit")),
		readingH:    handler.NewReadingHandler(svc, logger.With("component", "reading")),
		rewardH:     handler.NewRewardHandler(svc, logger.With("component", "reward")),
		workoutH:    handler.NewWorkoutHandler(svc, logger.With("component", "workout")),
		authH:       handler.NewAuthHandler(stores.Users, issuer, o.sso, logger.With("component", "auth")),
		pushH:       pushH,
		ssoEnabled:  o.sso != nil,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("POST /auth/token", s.rateLimitedHandler(s.authH.Token))
	if s.ssoEnabled {
		outerMux.HandleFunc("GET /auth/sso/login", s.authH.SSOLogin)
		outerMux.HandleFunc("GET /auth/sso/callback", s.rateLimitedHandler(s.authH.SSOCallback))
	}

	// Protected routes, wrapped with RequireAuth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.issuer)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("health check failed", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Habits
	mux.HandleFunc("GET /api/habits", s.habitH.List)
	mux.HandleFunc("POST /api/habits", s.habitH.Create)
	mux.HandleFunc("PUT /api/habits/{id}", s.habitH.Update)
	mux.HandleFunc("DELETE /api/habits/{id}", s.habitH.Delete)
	mux.HandleFunc("POST /api/habits/{id}/mark", s.habitH.Mark)
	mux.HandleFunc("GET /api/xp", s.habitH.XP)

	// Reading plan
	mux.HandleFunc("GET /api/reading-plan", s.readingH.List)
	mux.HandleFunc("POST /api/reading-plan", s.readingH.Add)
	mux.HandleFunc("PUT /api/reading-plan/{id}", s.readingH.Edit)
	mux.HandleFunc("DELETE /api/reading-plan/{id}", s.readingH.Delete)
	mux.HandleFunc("POST /api/reading-plan/{id}/mark", s.readingH.Mark)
	mux.HandleFunc("PUT /api/reading-plan/{id}/notes", s.readingH.Notes)

	// Rewards
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.HandleFunc("POST /api/rewards", s.rewardH.Create)
	mux.HandleFunc("POST /api/rewards/evaluate", s.rewardH.Evaluate)
	mux.HandleFunc("DELETE /api/rewards/{id}", s.rewardH.Delete)

	// Workout program
	mux.HandleFunc("GET /api/exercises", s.workoutH.ListExercises)
	mux.HandleFunc("POST /api/exercises", s.workoutH.CreateExercise)
	mux.HandleFunc("GET /api/workout/schedule", s.workoutH.Schedule)
	mux.HandleFunc("POST /api/workout/schedule", s.workoutH.AddScheduled)
	mux.HandleFunc("PUT /api/workout/schedule/{id}", s.workoutH.EditScheduled)
	mux.HandleFunc("DELETE /api/workout/schedule/{id}", s.workoutH.RemoveScheduled)
	mux.HandleFunc("POST /api/workout/series", s.workoutH.SaveSeries)
	mux.HandleFunc("POST /api/workout/delete", s.workoutH.DeleteWorkout)
	mux.HandleFunc("GET /api/workout/history", s.workoutH.History)
	mux.HandleFunc("GET /api/workout/progress", s.workoutH.Progress)

	// Push notifications
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.List)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	}

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
