package store

import (
	"context"
	"database/sql"
	"fmt"

	"keepintouch/internal/models"
	"keepintouch/internal/schedule"
)

// ReminderStore persists the contact → scheduled-notification mapping. The
// unique index on (user_id, contact_id) guarantees at most one live mapping
// per contact; Save is a true upsert rather than an insert that may stack
// duplicates.
type ReminderStore struct {
	db *sql.DB
}

func NewReminderStore(db *sql.DB) *ReminderStore {
	return &ReminderStore{db: db}
}

// Save stores or overwrites the mapping for a contact.
func (s *ReminderStore) Save(ctx context.Context, userID int, r *models.Reminder) error {
	if r.ContactID == "" {
		return ErrMissingContactID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (user_id, contact_id, notification_id, frequency)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, contact_id) DO UPDATE SET
		notification_id = excluded.notification_id,
		frequency = excluded.frequency`,
		userID, r.ContactID, r.NotificationID, string(r.Frequency),
	)
	if err != nil {
		return fmt.Errorf("failed to save reminder mapping: %w", err)
	}
	return nil
}

// Get returns the mapping for a contact, or nil when the contact has no
// active reminder.
func (s *ReminderStore) Get(ctx context.Context, userID int, contactID string) (*models.Reminder, error) {
	var r models.Reminder
	var freq string
	err := s.db.QueryRowContext(ctx,
		"SELECT contact_id, notification_id, frequency FROM reminders WHERE user_id = ? AND contact_id = ?",
		userID, contactID,
	).Scan(&r.ContactID, &r.NotificationID, &freq)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reminder mapping: %w", err)
	}
	r.Frequency = schedule.Frequency(freq)
	return &r, nil
}

// All returns every reminder mapping for the user.
func (s *ReminderStore) All(ctx context.Context, userID int) ([]models.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT contact_id, notification_id, frequency FROM reminders WHERE user_id = ?",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load reminder mappings: %w", err)
	}
	defer rows.Close()

	reminders := []models.Reminder{}
	for rows.Next() {
		var r models.Reminder
		var freq string
		if err := rows.Scan(&r.ContactID, &r.NotificationID, &freq); err != nil {
			return nil, fmt.Errorf("failed to scan reminder mapping: %w", err)
		}
		r.Frequency = schedule.Frequency(freq)
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// Delete removes the mapping for a contact. Removing a mapping that does not
// exist is not an error.
func (s *ReminderStore) Delete(ctx context.Context, userID int, contactID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM reminders WHERE user_id = ? AND contact_id = ?",
		userID, contactID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete reminder mapping: %w", err)
	}
	return nil
}

// DeleteAll clears every mapping for the user.
func (s *ReminderStore) DeleteAll(ctx context.Context, userID int) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM reminders WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to clear reminder mappings: %w", err)
	}
	return nil
}
