package push

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/lifequest/internal/database"
	"github.com/dukerupert/lifequest/internal/model"
	"github.com/dukerupert/lifequest/internal/store"
	"github.com/dukerupert/lifequest/internal/tracker"
)

type sent struct {
	endpoint string
	payload  Payload
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sent
	expired map[string]bool
}

func (f *fakeSender) Send(_ context.Context, sub model.PushSubscription, p Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expired[sub.Endpoint] {
		return ErrExpired
	}
	f.sent = append(f.sent, sent{sub.Endpoint, p})
	return nil
}

type reminderEnv struct {
	reminder *Reminder
	sender   *fakeSender
	stores   *store.Stores
	svc      *tracker.Service
	now      time.Time
	userID   int64
}

func setupReminder(t *testing.T) *reminderEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	stores := store.New(db)
	u, err := stores.Users.Create(ctx, "me@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	env := &reminderEnv{
		stores: stores,
		sender: &fakeSender{expired: map[string]bool{}},
		now:    time.Date(2025, 3, 9, 20, 30, 0, 0, time.UTC),
		userID: u.ID,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.svc = tracker.New(stores, logger,
		tracker.WithLocation(time.UTC),
		tracker.WithClock(func() time.Time { return env.now }),
	)
	env.reminder = NewReminder(env.sender, stores.Push, env.svc, 20, time.UTC, logger)
	env.reminder.now = func() time.Time { return env.now }
	return env
}

func (e *reminderEnv) addHabit(t *testing.T, name string) *model.Habit {
	t.Helper()
	h, err := e.svc.CreateHabit(context.Background(), e.userID, model.Habit{
		Name: name, Periodicity: model.PeriodicityDaily, XPGain: 10, Active: true,
	})
	if err != nil {
		t.Fatalf("create habit: %v", err)
	}
	return h
}

func TestReminderSendsOncePerDay(t *testing.T) {
	env := setupReminder(t)
	ctx := context.Background()
	env.addHabit(t, "Meditate")
	env.addHabit(t, "Stretch")
	env.stores.Push.Subscribe(ctx, env.userID, "https://push.example/phone", "p", "a", "phone")

	n, err := env.reminder.Tick(ctx)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if n != 1 {
		t.Errorf("notified = %d, want 1", n)
	}
	if len(env.sender.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(env.sender.sent))
	}
	body := env.sender.sent[0].payload.Body
	if !strings.Contains(body, "Meditate") || !strings.Contains(body, "Stretch") {
		t.Errorf("body = %q, want both open habits", body)
	}

	n, _ = env.reminder.Tick(ctx)
	if n != 0 || len(env.sender.sent) != 1 {
		t.Errorf("second tick notified %d (sent %d), want no repeat", n, len(env.sender.sent))
	}
}

func TestReminderWaitsForHour(t *testing.T) {
	env := setupReminder(t)
	ctx := context.Background()
	env.addHabit(t, "Meditate")
	env.stores.Push.Subscribe(ctx, env.userID, "https://push.example/phone", "p", "a", "")

	env.now = time.Date(2025, 3, 9, 19, 59, 0, 0, time.UTC)
	if n, _ := env.reminder.Tick(ctx); n != 0 {
		t.Errorf("notified = %d before reminder hour, want 0", n)
	}
	env.now = time.Date(2025, 3, 9, 20, 0, 0, 0, time.UTC)
	if n, _ := env.reminder.Tick(ctx); n != 1 {
		t.Errorf("notified = %d at reminder hour, want 1", n)
	}
}

func TestReminderSkipsWhenAllDone(t *testing.T) {
	env := setupReminder(t)
	ctx := context.Background()
	h := env.addHabit(t, "Meditate")
	env.stores.Push.Subscribe(ctx, env.userID, "https://push.example/phone", "p", "a", "")

	if _, err := env.svc.MarkHabit(ctx, env.userID, h.ID, true, nil); err != nil {
		t.Fatalf("mark: %v", err)
	}
	n, err := env.reminder.Tick(ctx)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if n != 0 || len(env.sender.sent) != 0 {
		t.Errorf("notified = %d, sent = %d, want nothing", n, len(env.sender.sent))
	}
}

func TestReminderDropsExpiredSubscription(t *testing.T) {
	env := setupReminder(t)
	ctx := context.Background()
	env.addHabit(t, "Meditate")
	env.stores.Push.Subscribe(ctx, env.userID, "https://push.example/old", "p", "a", "")
	env.stores.Push.Subscribe(ctx, env.userID, "https://push.example/new", "p", "a", "")
	env.sender.expired["https://push.example/old"] = true

	if _, err := env.reminder.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	subs, _ := env.stores.Push.ListByUser(ctx, env.userID)
	if len(subs) != 1 || subs[0].Endpoint != "https://push.example/new" {
		t.Errorf("subs = %+v, want only the live endpoint", subs)
	}
	if len(env.sender.sent) != 1 {
		t.Errorf("sent = %d, want 1", len(env.sender.sent))
	}
}

func TestReminderPayload(t *testing.T) {
	p := reminderPayload([]string{"Read: Dune"}, "2025-03-09")
	if p.Body != "Still open today: Read: Dune" {
		t.Errorf("body = %q", p.Body)
	}
	if p.URL != "/habits?date=2025-03-09" {
		t.Errorf("url = %q", p.URL)
	}
}
