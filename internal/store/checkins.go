package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"keepintouch/internal/models"
	"keepintouch/internal/schedule"
)

// CheckInStore persists check-in events. Rows are append-only.
type CheckInStore struct {
	db *sql.DB
}

func NewCheckInStore(db *sql.DB) *CheckInStore {
	return &CheckInStore{db: db}
}

// CheckInOnContact inserts a check-in row. An insert that affects no rows is
// a hard failure, not retried.
func (s *CheckInStore) CheckInOnContact(ctx context.Context, userID int, ci *models.CheckIn) error {
	if ci.ContactID == "" {
		return ErrMissingContactID
	}
	if ci.Date.IsZero() {
		ci.Date = time.Now()
	}

	var note any
	if ci.Note != "" {
		note = ci.Note
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO check_ins (user_id, contact_id, check_in_date, note_content) VALUES (?, ?, ?, ?)",
		userID, ci.ContactID, formatDateTime(ci.Date), note,
	)
	if err != nil {
		return fmt.Errorf("failed to insert check-in: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("check-in insert affected no rows")
	}
	id, _ := result.LastInsertId()
	ci.ID = int(id)
	return nil
}

// LatestForContact returns the most recent check-in for the contact, or nil
// when there is no history. An unknown contact id is not an error.
func (s *CheckInStore) LatestForContact(ctx context.Context, userID int, contactID string) (*models.CheckIn, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, contact_id, check_in_date, note_content FROM check_ins
		WHERE user_id = ? AND contact_id = ?
		ORDER BY check_in_date DESC, id DESC LIMIT 1`,
		userID, contactID,
	)
	ci, err := scanCheckIn(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return ci, err
}

// HasCheckedInWithin reports whether a check-in exists inside the window the
// frequency implies. FrequencyNever has no window, so the answer is always
// false.
func (s *CheckInStore) HasCheckedInWithin(ctx context.Context, userID int, contactID string, f schedule.Frequency) (bool, error) {
	cutoff, ok, err := schedule.DaysAgoCutoff(f, time.Now())
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	var count int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM check_ins WHERE user_id = ? AND contact_id = ? AND check_in_date >= ?",
		userID, contactID, formatDateTime(cutoff),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count check-ins: %w", err)
	}
	return count > 0, nil
}

// ForContact returns the contact's check-in history, newest first.
func (s *CheckInStore) ForContact(ctx context.Context, userID int, contactID string) ([]models.CheckIn, error) {
	return s.query(ctx,
		`SELECT id, contact_id, check_in_date, note_content FROM check_ins
		WHERE user_id = ? AND contact_id = ? ORDER BY check_in_date DESC, id DESC`,
		userID, contactID)
}

// All returns every check-in for the user, newest first.
func (s *CheckInStore) All(ctx context.Context, userID int) ([]models.CheckIn, error) {
	return s.query(ctx,
		`SELECT id, contact_id, check_in_date, note_content FROM check_ins
		WHERE user_id = ? ORDER BY check_in_date DESC, id DESC`,
		userID)
}

// DeleteForContact removes the contact's check-in history. Callers treat
// this as best-effort during friend deletion.
func (s *CheckInStore) DeleteForContact(ctx context.Context, userID int, contactID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM check_ins WHERE user_id = ? AND contact_id = ?",
		userID, contactID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete check-ins: %w", err)
	}
	return nil
}

// DeleteAll wipes the user's entire check-in history.
func (s *CheckInStore) DeleteAll(ctx context.Context, userID int) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM check_ins WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to wipe check-ins: %w", err)
	}
	return nil
}

func (s *CheckInStore) query(ctx context.Context, q string, args ...any) ([]models.CheckIn, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load check-ins: %w", err)
	}
	defer rows.Close()

	checkIns := []models.CheckIn{}
	for rows.Next() {
		ci, err := scanCheckIn(rows)
		if err != nil {
			return nil, err
		}
		checkIns = append(checkIns, *ci)
	}
	return checkIns, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckIn(row rowScanner) (*models.CheckIn, error) {
	var ci models.CheckIn
	var date string
	var note sql.NullString
	if err := row.Scan(&ci.ID, &ci.ContactID, &date, &note); err != nil {
		return nil, err
	}
	t, err := parseDateTime(date)
	if err != nil {
		return nil, err
	}
	ci.Date = t
	ci.Note = note.String
	return &ci, nil
}
