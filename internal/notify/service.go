package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"keepintouch/internal/models"
	"keepintouch/internal/schedule"
	"keepintouch/internal/store"
)

// ReminderService keeps the invariant of exactly one live scheduled
// notification per contact: every path that changes a reminder cancels the
// old notification before registering a new one and overwrites the stored
// mapping.
type ReminderService struct {
	reminders *store.ReminderStore
	scheduler Scheduler
}

func NewReminderService(reminders *store.ReminderStore, scheduler Scheduler) *ReminderService {
	return &ReminderService{reminders: reminders, scheduler: scheduler}
}

// Register schedules the recurring check-in reminder for a friend and
// persists the notification id keyed by contact. A frequency of never is
// skipped, not an error.
func (s *ReminderService) Register(ctx context.Context, userID int, contactID, displayName string, f schedule.Frequency, anchor time.Time) error {
	trigger, err := schedule.NextTrigger(f, anchor)
	if err == schedule.ErrNeverScheduled {
		slog.Debug("Frequency never, skipping reminder registration", "contact_id", contactID)
		return nil
	}
	if err != nil {
		return err
	}

	id, err := s.scheduler.Schedule(ctx, Request{
		UserID:  userID,
		Title:   "Time to reach out",
		Body:    reminderBody(displayName),
		Trigger: trigger,
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminder: %w", err)
	}

	err = s.reminders.Save(ctx, userID, &models.Reminder{
		ContactID:      contactID,
		NotificationID: id,
		Frequency:      f,
	})
	if err != nil {
		// Cancel the orphan so it cannot fire without a mapping.
		_ = s.scheduler.Cancel(ctx, id)
		return err
	}
	return nil
}

// Postpone cancels the friend's current reminder and registers a fresh one
// anchored at the new check-in date. When no mapping exists the postponement
// is abandoned: the friend simply has no active reminder until the next
// explicit registration.
func (s *ReminderService) Postpone(ctx context.Context, userID int, contactID, displayName string, f schedule.Frequency, anchor time.Time) error {
	existing, err := s.reminders.Get(ctx, userID, contactID)
	if err != nil {
		return err
	}
	if existing == nil {
		slog.Warn("No stored reminder to postpone, abandoning", "contact_id", contactID)
		return nil
	}

	if err := s.scheduler.Cancel(ctx, existing.NotificationID); err != nil {
		slog.Warn("Failed to cancel old notification", "notification_id", existing.NotificationID, "error", err)
	}

	return s.Register(ctx, userID, contactID, displayName, f, anchor)
}

// Remove cancels and forgets the friend's reminder. A friend without a
// reminder is a no-op.
func (s *ReminderService) Remove(ctx context.Context, userID int, contactID string) error {
	existing, err := s.reminders.Get(ctx, userID, contactID)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	if err := s.scheduler.Cancel(ctx, existing.NotificationID); err != nil {
		slog.Warn("Failed to cancel notification", "notification_id", existing.NotificationID, "error", err)
	}
	return s.reminders.Delete(ctx, userID, contactID)
}

// ClearAll cancels every reminder for the user and wipes the mappings.
func (s *ReminderService) ClearAll(ctx context.Context, userID int) error {
	all, err := s.reminders.All(ctx, userID)
	if err != nil {
		return err
	}
	for _, r := range all {
		if err := s.scheduler.Cancel(ctx, r.NotificationID); err != nil {
			slog.Warn("Failed to cancel notification", "notification_id", r.NotificationID, "error", err)
		}
	}
	return s.reminders.DeleteAll(ctx, userID)
}

// RegisterBirthday schedules the separate yearly birthday reminder. It is
// fire-and-forget: the id is not stored, so there is no postpone path for
// it. A friend without a birthday is skipped.
func (s *ReminderService) RegisterBirthday(ctx context.Context, userID int, displayName string, birthday *time.Time) error {
	if birthday == nil || birthday.IsZero() {
		slog.Debug("No birthday set, skipping birthday reminder", "display_name", displayName)
		return nil
	}

	name := displayName
	if name == "" {
		name = "your friend"
	}
	_, err := s.scheduler.Schedule(ctx, Request{
		UserID:  userID,
		Title:   "Birthday today",
		Body:    fmt.Sprintf("It's %s's birthday. Wish them well!", name),
		Trigger: schedule.BirthdayTrigger(*birthday),
	})
	if err != nil {
		return fmt.Errorf("failed to schedule birthday reminder: %w", err)
	}
	return nil
}

func reminderBody(displayName string) string {
	if displayName == "" {
		return "It's been a while. Check in with your friend."
	}
	return fmt.Sprintf("It's been a while. Check in with %s.", displayName)
}
