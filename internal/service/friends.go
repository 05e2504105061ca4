// Package service composes the repositories and the notification layer into
// the operations the API exposes. State that the original client kept in
// ambient singletons (the pending check-in, the friend list) lives here as
// explicit injected objects.
package service

import (
	"context"
	"log/slog"
	"time"

	"keepintouch/internal/models"
	"keepintouch/internal/notify"
	"keepintouch/internal/schedule"
	"keepintouch/internal/store"
)

// Friends orchestrates friend lifecycle operations.
type Friends struct {
	contacts  *store.ContactStore
	checkIns  *store.CheckInStore
	reminders *notify.ReminderService
}

func NewFriends(contacts *store.ContactStore, checkIns *store.CheckInStore, reminders *notify.ReminderService) *Friends {
	return &Friends{contacts: contacts, checkIns: checkIns, reminders: reminders}
}

// AddFriend persists the friend, optionally seeds an initial check-in, and
// registers the recurring and birthday reminders. Reminder registration is
// best-effort: a failure leaves the friend saved and is only logged.
func (s *Friends) AddFriend(ctx context.Context, userID int, friend *models.Friend, initialCheckIn *time.Time) (*models.Friend, error) {
	if err := s.contacts.AddNewFriend(ctx, userID, friend); err != nil {
		return nil, err
	}

	if initialCheckIn != nil {
		err := s.checkIns.CheckInOnContact(ctx, userID, &models.CheckIn{
			ContactID: friend.ContactID,
			Date:      *initialCheckIn,
		})
		if err != nil {
			slog.Warn("Failed to seed initial check-in", "contact_id", friend.ContactID, "error", err)
		}
	}

	saved, err := s.contacts.GetByID(ctx, userID, friend.ContactID)
	if err != nil {
		return nil, err
	}

	if err := s.reminders.Register(ctx, userID, saved.ContactID, saved.DisplayName, saved.Frequency, time.Now()); err != nil {
		slog.Warn("Failed to register reminder", "contact_id", saved.ContactID, "error", err)
	}
	if err := s.reminders.RegisterBirthday(ctx, userID, saved.DisplayName, saved.Birthday); err != nil {
		slog.Warn("Failed to register birthday reminder", "contact_id", saved.ContactID, "error", err)
	}

	s.decorate(ctx, userID, saved)
	return saved, nil
}

// UpdateFriend rewrites frequency/birthday and re-registers the reminder
// under the new cadence (cancel-then-recreate, never in-place mutation).
func (s *Friends) UpdateFriend(ctx context.Context, userID int, friend *models.Friend) (*models.Friend, error) {
	if err := s.contacts.Update(ctx, userID, friend); err != nil {
		return nil, err
	}

	saved, err := s.contacts.GetByID(ctx, userID, friend.ContactID)
	if err != nil {
		return nil, err
	}

	if err := s.reminders.Remove(ctx, userID, saved.ContactID); err != nil {
		slog.Warn("Failed to remove old reminder", "contact_id", saved.ContactID, "error", err)
	}
	if err := s.reminders.Register(ctx, userID, saved.ContactID, saved.DisplayName, saved.Frequency, time.Now()); err != nil {
		slog.Warn("Failed to re-register reminder", "contact_id", saved.ContactID, "error", err)
	}

	s.decorate(ctx, userID, saved)
	return saved, nil
}

// DeleteFriend removes the reminder, the check-in history and the contact
// row. The cascade is application-level and each step is best-effort: a
// failed cleanup step is logged and the deletion continues, except that a
// contact id that was never stored is reported to the caller.
func (s *Friends) DeleteFriend(ctx context.Context, userID int, contactID string) error {
	if err := s.reminders.Remove(ctx, userID, contactID); err != nil {
		slog.Warn("Failed to remove reminder during friend deletion", "contact_id", contactID, "error", err)
	}
	if err := s.checkIns.DeleteForContact(ctx, userID, contactID); err != nil {
		slog.Warn("Failed to delete check-ins during friend deletion", "contact_id", contactID, "error", err)
	}
	return s.contacts.Remove(ctx, userID, contactID)
}

// GetFriend loads one friend with its derived check-in fields.
func (s *Friends) GetFriend(ctx context.Context, userID int, contactID string) (*models.Friend, error) {
	f, err := s.contacts.GetByID(ctx, userID, contactID)
	if err != nil {
		return nil, err
	}
	s.decorate(ctx, userID, f)
	return f, nil
}

// ListFriends loads every friend with last check-in, check-in label and
// birthday countdown filled in.
func (s *Friends) ListFriends(ctx context.Context, userID int) ([]models.Friend, error) {
	friends, err := s.contacts.GetAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range friends {
		s.decorate(ctx, userID, &friends[i])
	}
	return friends, nil
}

// HasRecentCheckIn reports whether the friend already has a check-in inside
// the window its frequency implies, so callers can avoid re-prompting.
func (s *Friends) HasRecentCheckIn(ctx context.Context, userID int, contactID string) (bool, error) {
	f, err := s.contacts.GetByID(ctx, userID, contactID)
	if err != nil {
		return false, err
	}
	return s.checkIns.HasCheckedInWithin(ctx, userID, contactID, f.Frequency)
}

func (s *Friends) decorate(ctx context.Context, userID int, f *models.Friend) {
	now := time.Now()

	latest, err := s.checkIns.LatestForContact(ctx, userID, f.ContactID)
	if err != nil {
		slog.Warn("Failed to load latest check-in", "contact_id", f.ContactID, "error", err)
	} else if latest != nil {
		f.LastCheckIn = &latest.Date
	}
	f.CheckInLabel = schedule.CheckInLabel(f.LastCheckIn, now)

	if f.Birthday != nil {
		f.DaysUntilBirthday = schedule.DaysUntilNextBirthday(*f.Birthday, now)
	} else {
		f.DaysUntilBirthday = -1
	}
}
