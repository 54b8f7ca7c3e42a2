package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/lifequest/internal/habit"
	"github.com/dukerupert/lifequest/internal/model"
	"github.com/dukerupert/lifequest/internal/store"
	"github.com/dukerupert/lifequest/internal/tracker"
)

// Reminder sends each subscribed user, once per day from a configured
// local hour on, a summary of the habits still open today.
type Reminder struct {
	sender Sender
	push   *store.PushStore
	svc    *tracker.Service
	hour   int
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

func NewReminder(sender Sender, ps *store.PushStore, svc *tracker.Service, hour int, loc *time.Location, logger *slog.Logger) *Reminder {
	if loc == nil {
		loc = time.Local
	}
	return &Reminder{
		sender: sender,
		push:   ps,
		svc:    svc,
		hour:   hour,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
}

// Run checks every interval until ctx is done.
func (r *Reminder) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Tick(ctx); err != nil {
				r.logger.Error("habit reminder", "error", err)
			}
		}
	}
}

// Tick sends today's reminders that are due and not yet sent. It returns
// the number of users notified.
func (r *Reminder) Tick(ctx context.Context) (int, error) {
	local := r.now().In(r.loc)
	if local.Hour() < r.hour {
		return 0, nil
	}
	today := habit.Day(local)

	userIDs, err := r.push.ListUserIDs(ctx)
	if err != nil {
		return 0, err
	}

	notified := 0
	for _, userID := range userIDs {
		ok, err := r.remind(ctx, userID, today)
		if err != nil {
			r.logger.Error("habit reminder", "user_id", userID, "error", err)
			continue
		}
		if ok {
			notified++
		}
	}
	return notified, nil
}

func (r *Reminder) remind(ctx context.Context, userID int64, today time.Time) (bool, error) {
	ref := habit.FormatDate(today)
	claimed, err := r.push.ClaimSent(ctx, userID, model.NotifTypeHabitReminder, ref)
	if err != nil || !claimed {
		return false, err
	}

	habits, err := r.svc.HabitsForDate(ctx, userID, today)
	if err != nil {
		return false, err
	}
	var open []string
	for _, h := range habits {
		if !h.Completed {
			open = append(open, h.Name)
		}
	}
	if len(open) == 0 {
		return false, nil
	}

	subs, err := r.push.ListByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	payload := reminderPayload(open, ref)
	for _, sub := range subs {
		if err := r.sender.Send(ctx, sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				r.logger.Info("dropping expired push subscription", "user_id", userID, "subscription_id", sub.ID)
				r.push.DeleteByEndpoint(ctx, sub.Endpoint)
				continue
			}
			r.logger.Error("send habit reminder", "user_id", userID, "subscription_id", sub.ID, "error", err)
		}
	}
	return true, nil
}

func reminderPayload(open []string, date string) Payload {
	body := fmt.Sprintf("%d habits still open today: %s", len(open), strings.Join(open, ", "))
	if len(open) == 1 {
		body = "Still open today: " + open[0]
	}
	return Payload{
		Title: "LifeQuest",
		Body:  body,
		URL:   "/habits?date=" + date,
		Tag:   "habit-reminder",
	}
}
