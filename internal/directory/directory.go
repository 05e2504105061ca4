// Package directory stores the synced snapshot of the device address book.
// The device owns contact data; the app only reads it, so the snapshot is
// replaced wholesale on every sync rather than merged.
package directory

import (
	"context"
	"database/sql"
	"fmt"

	"keepintouch/internal/models"
)

// Directory is the read/sync surface over the device contact snapshot. A
// lookup miss is not an error: the contact may simply have been deleted on
// the device since the friend was added.
type Directory interface {
	Lookup(ctx context.Context, userID int, contactID string) (*models.DeviceContact, error)
	All(ctx context.Context, userID int) (map[string]models.DeviceContact, error)
	Replace(ctx context.Context, userID int, contacts []models.DeviceContact) error
}

var _ Directory = (*SQLiteDirectory)(nil)

// SQLiteDirectory keeps the snapshot in the device_contacts table.
type SQLiteDirectory struct {
	db *sql.DB
}

func New(db *sql.DB) *SQLiteDirectory {
	return &SQLiteDirectory{db: db}
}

// Lookup returns the snapshot row for contactID, or nil when the device no
// longer has that contact.
func (d *SQLiteDirectory) Lookup(ctx context.Context, userID int, contactID string) (*models.DeviceContact, error) {
	var c models.DeviceContact
	var phone, avatar sql.NullString
	err := d.db.QueryRowContext(ctx,
		"SELECT contact_id, display_name, phone, avatar_url FROM device_contacts WHERE user_id = ? AND contact_id = ?",
		userID, contactID,
	).Scan(&c.ID, &c.DisplayName, &phone, &avatar)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up device contact: %w", err)
	}
	c.Phone = phone.String
	c.AvatarURL = avatar.String
	return &c, nil
}

// All returns the whole snapshot keyed by contact id.
func (d *SQLiteDirectory) All(ctx context.Context, userID int) (map[string]models.DeviceContact, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT contact_id, display_name, phone, avatar_url FROM device_contacts WHERE user_id = ?",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load device contacts: %w", err)
	}
	defer rows.Close()

	contacts := make(map[string]models.DeviceContact)
	for rows.Next() {
		var c models.DeviceContact
		var phone, avatar sql.NullString
		if err := rows.Scan(&c.ID, &c.DisplayName, &phone, &avatar); err != nil {
			return nil, fmt.Errorf("failed to scan device contact: %w", err)
		}
		c.Phone = phone.String
		c.AvatarURL = avatar.String
		contacts[c.ID] = c
	}
	return contacts, rows.Err()
}

// Replace swaps the user's snapshot for the given one in a single
// transaction.
func (d *SQLiteDirectory) Replace(ctx context.Context, userID int, contacts []models.DeviceContact) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM device_contacts WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to clear device contacts: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO device_contacts (user_id, contact_id, display_name, phone, avatar_url) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range contacts {
		if c.ID == "" {
			return fmt.Errorf("device contact with empty id in sync payload")
		}
		if _, err := stmt.ExecContext(ctx, userID, c.ID, c.DisplayName, c.Phone, c.AvatarURL); err != nil {
			return fmt.Errorf("failed to insert device contact %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}
