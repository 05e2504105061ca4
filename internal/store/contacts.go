package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"keepintouch/internal/directory"
	"keepintouch/internal/models"
	"keepintouch/internal/schedule"
)

// ErrMissingContactID is returned when a persistence operation is attempted
// on a friend without a device contact identifier.
var ErrMissingContactID = errors.New("contact id is required")

// ErrContactNotFound is returned when an operation targets a friend row that
// does not exist.
var ErrContactNotFound = errors.New("contact not found")

// ContactStore persists the app-owned friend fields (frequency, birthday) and
// joins them with the device contact snapshot on read.
type ContactStore struct {
	db  *sql.DB
	dir directory.Directory
}

func NewContactStore(db *sql.DB, dir directory.Directory) *ContactStore {
	return &ContactStore{db: db, dir: dir}
}

// AddNewFriend persists a friend. Re-adding an existing contact id updates
// its frequency and birthday instead of failing, so the operation is
// idempotent.
func (s *ContactStore) AddNewFriend(ctx context.Context, userID int, f *models.Friend) error {
	if f.ContactID == "" {
		return ErrMissingContactID
	}
	if !f.Frequency.Valid() {
		return fmt.Errorf("unknown reminder frequency %q", f.Frequency)
	}

	var birthday any
	if f.Birthday != nil {
		birthday = formatDate(*f.Birthday)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (user_id, contact_id, frequency, birthday)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, contact_id) DO UPDATE SET
		frequency = excluded.frequency,
		birthday = excluded.birthday,
		updated_at = CURRENT_TIMESTAMP`,
		userID, f.ContactID, string(f.Frequency), birthday,
	)
	if err != nil {
		return fmt.Errorf("failed to save friend: %w", err)
	}
	return nil
}

// Update rewrites the stored frequency and birthday for an existing friend.
func (s *ContactStore) Update(ctx context.Context, userID int, f *models.Friend) error {
	if f.ContactID == "" {
		return ErrMissingContactID
	}
	if !f.Frequency.Valid() {
		return fmt.Errorf("unknown reminder frequency %q", f.Frequency)
	}

	var birthday any
	if f.Birthday != nil {
		birthday = formatDate(*f.Birthday)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE contacts SET frequency = ?, birthday = ?, updated_at = CURRENT_TIMESTAMP WHERE user_id = ? AND contact_id = ?",
		string(f.Frequency), birthday, userID, f.ContactID,
	)
	if err != nil {
		return fmt.Errorf("failed to update friend: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrContactNotFound
	}
	return nil
}

// GetByID loads one friend, joined with its device contact. A friend whose
// device contact has been deleted externally comes back as a placeholder with
// empty display fields rather than an error.
func (s *ContactStore) GetByID(ctx context.Context, userID int, contactID string) (*models.Friend, error) {
	var freq string
	var birthday sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT frequency, birthday FROM contacts WHERE user_id = ? AND contact_id = ?",
		userID, contactID,
	).Scan(&freq, &birthday)
	if err == sql.ErrNoRows {
		return nil, ErrContactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load friend: %w", err)
	}

	f, err := s.buildFriend(contactID, freq, birthday)
	if err != nil {
		return nil, err
	}

	device, err := s.dir.Lookup(ctx, userID, contactID)
	if err != nil {
		slog.Warn("Device contact lookup failed, serving placeholder", "contact_id", contactID, "error", err)
	}
	applyDevice(f, device)
	return f, nil
}

// GetAll loads every friend, joined with the device contact snapshot. One
// unreadable device contact never aborts the batch: affected rows degrade to
// placeholders.
func (s *ContactStore) GetAll(ctx context.Context, userID int) ([]models.Friend, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT contact_id, frequency, birthday FROM contacts WHERE user_id = ? ORDER BY created_at ASC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load friends: %w", err)
	}
	defer rows.Close()

	friends := []models.Friend{}
	for rows.Next() {
		var contactID, freq string
		var birthday sql.NullString
		if err := rows.Scan(&contactID, &freq, &birthday); err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		f, err := s.buildFriend(contactID, freq, birthday)
		if err != nil {
			return nil, err
		}
		friends = append(friends, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friends: %w", err)
	}

	snapshot, err := s.dir.All(ctx, userID)
	if err != nil {
		// Degrade the whole list to placeholders instead of failing it.
		slog.Warn("Device contact snapshot unavailable", "error", err)
		snapshot = nil
	}

	for i := range friends {
		var device *models.DeviceContact
		if c, ok := snapshot[friends[i].ContactID]; ok {
			device = &c
		}
		applyDevice(&friends[i], device)
	}
	return friends, nil
}

// Remove deletes the friend row. Deleting an id that was never stored is an
// error; callers cascade check-ins and reminders themselves.
func (s *ContactStore) Remove(ctx context.Context, userID int, contactID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM contacts WHERE user_id = ? AND contact_id = ?",
		userID, contactID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete friend: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrContactNotFound
	}
	return nil
}

func (s *ContactStore) buildFriend(contactID, freq string, birthday sql.NullString) (*models.Friend, error) {
	f := &models.Friend{
		ContactID: contactID,
		Frequency: schedule.Frequency(freq),
	}
	if birthday.Valid && birthday.String != "" {
		b, err := parseDate(birthday.String)
		if err != nil {
			return nil, err
		}
		f.Birthday = &b
	}
	return f, nil
}

func applyDevice(f *models.Friend, device *models.DeviceContact) {
	if device == nil {
		f.Placeholder = true
		return
	}
	f.DisplayName = device.DisplayName
	f.Phone = device.Phone
	f.AvatarURL = device.AvatarURL
}
