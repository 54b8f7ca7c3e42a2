// Package tracker implements the habit, reading and workout operations on
// top of the stores: completion tracking, XP crediting, keeping the
// plan-generated habits in sync and unlocking reading rewards.
package tracker

import (
	"errors"
	"log/slog"
	"time"

	"github.com/dukerupert/lifequest/internal/habit"
	"github.com/dukerupert/lifequest/internal/store"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Notifier receives a change event after a successful mutation.
type Notifier interface {
	Notify(userID int64, entity, action string, id int64)
}

type nopNotifier struct{}

func (nopNotifier) Notify(int64, string, string, int64) {}

type Service struct {
	stores *store.Stores
	notify Notifier
	logger *slog.Logger
	loc    *time.Location
	now    func() time.Time
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithLocation sets the time zone that decides the current calendar day.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(stores *store.Stores, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		stores: stores,
		notify: nopNotifier{},
		logger: logger.With("component", "tracker"),
		loc:    time.Local,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar day in the service's time zone.
func (s *Service) Today() time.Time {
	return habit.Day(s.now().In(s.loc))
}

func (s *Service) dayOrToday(date *time.Time) time.Time {
	if date == nil {
		return s.Today()
	}
	return habit.Day(*date)
}
