// Package notify schedules and delivers reminder notifications. The
// scheduler plays the role a platform notification service would on a
// device: callers hand it a trigger and get back an opaque notification id
// they can later cancel. Triggers cannot be mutated in place; rescheduling
// is always cancel-then-recreate.
package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"keepintouch/internal/schedule"
)

// Request describes a notification to schedule.
type Request struct {
	UserID  int
	Title   string
	Body    string
	Trigger schedule.TriggerSpec
}

// Scheduler registers and cancels notifications by id.
type Scheduler interface {
	Schedule(ctx context.Context, req Request) (string, error)
	Cancel(ctx context.Context, id string) error
}

var _ Scheduler = (*PushScheduler)(nil)

// PushScheduler persists scheduled notifications and delivers due ones from
// a background worker over web push, with an email fallback for users who
// have no subscription.
type PushScheduler struct {
	db  *sql.DB
	now func() time.Time

	// deliver is swappable for tests.
	deliver func(ctx context.Context, userID int, payload PushPayload) error
}

func NewPushScheduler(db *sql.DB) *PushScheduler {
	s := &PushScheduler{db: db, now: time.Now}
	s.deliver = s.deliverPushOrEmail
	return s
}

// Schedule persists the notification with its first computed fire time and
// returns the assigned id.
func (s *PushScheduler) Schedule(ctx context.Context, req Request) (string, error) {
	id := uuid.New().String()
	fireAt := req.Trigger.NextFireTime(s.now())

	trigger, err := json.Marshal(req.Trigger)
	if err != nil {
		return "", fmt.Errorf("failed to encode trigger: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scheduled_notifications (id, user_id, title, body, fire_at, trigger, repeats)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, req.UserID, req.Title, req.Body, fireAt.UTC().Format(fireAtLayout), string(trigger), req.Trigger.Repeats,
	)
	if err != nil {
		return "", fmt.Errorf("failed to schedule notification: %w", err)
	}
	slog.Debug("Scheduled notification", "id", id, "user_id", req.UserID, "fire_at", fireAt)
	return id, nil
}

// Cancel removes a scheduled notification. Cancelling an id that no longer
// exists is not an error.
func (s *PushScheduler) Cancel(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM scheduled_notifications WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to cancel notification: %w", err)
	}
	return nil
}

const fireAtLayout = "2006-01-02 15:04:05"

// ProcessDue delivers every notification whose fire time has passed, then
// reschedules repeating ones at their next trigger occurrence and deletes
// one-shot rows. Intended to run from a ticker goroutine.
func (s *PushScheduler) ProcessDue(ctx context.Context) error {
	now := s.now()
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, title, body, trigger, repeats FROM scheduled_notifications WHERE fire_at <= ?",
		now.UTC().Format(fireAtLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to query due notifications: %w", err)
	}
	defer rows.Close()

	type due struct {
		id      string
		userID  int
		title   string
		body    string
		trigger string
		repeats bool
	}
	dueList := []due{}
	for rows.Next() {
		var d due
		if err := rows.Scan(&d.id, &d.userID, &d.title, &d.body, &d.trigger, &d.repeats); err != nil {
			slog.Warn("Error scanning scheduled notification", "error", err)
			continue
		}
		dueList = append(dueList, d)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, d := range dueList {
		payload := PushPayload{
			Title: d.title,
			Body:  d.body,
			Tag:   "keepintouch-" + d.id,
			Data:  map[string]any{"notification_id": d.id},
		}
		if err := s.deliver(ctx, d.userID, payload); err != nil {
			slog.Warn("Failed to deliver notification", "id", d.id, "user_id", d.userID, "error", err)
		}

		if !d.repeats {
			if _, err := s.db.ExecContext(ctx, "DELETE FROM scheduled_notifications WHERE id = ?", d.id); err != nil {
				slog.Warn("Failed to delete one-shot notification", "id", d.id, "error", err)
			}
			continue
		}

		var trigger schedule.TriggerSpec
		if err := json.Unmarshal([]byte(d.trigger), &trigger); err != nil {
			slog.Warn("Dropping notification with malformed trigger", "id", d.id, "error", err)
			_, _ = s.db.ExecContext(ctx, "DELETE FROM scheduled_notifications WHERE id = ?", d.id)
			continue
		}
		next := trigger.NextFireTime(now)
		if _, err := s.db.ExecContext(ctx,
			"UPDATE scheduled_notifications SET fire_at = ? WHERE id = ?",
			next.UTC().Format(fireAtLayout), d.id,
		); err != nil {
			slog.Warn("Failed to reschedule notification", "id", d.id, "error", err)
		}
	}
	return nil
}

// deliverPushOrEmail pushes to the user's subscriptions, falling back to the
// reminder email when no subscription exists.
func (s *PushScheduler) deliverPushOrEmail(ctx context.Context, userID int, payload PushPayload) error {
	err := SendPushToUser(s.db, userID, payload)
	if err != ErrNoSubscriptions {
		return err
	}

	var email sql.NullString
	if err := s.db.QueryRowContext(ctx, "SELECT email FROM users WHERE id = ?", userID).Scan(&email); err != nil {
		return fmt.Errorf("failed to look up user email: %w", err)
	}
	if !email.Valid || email.String == "" {
		slog.Debug("No push subscription or email for user, dropping notification", "user_id", userID)
		return nil
	}
	return SendReminderEmail(email.String, payload.Title, payload.Body)
}
