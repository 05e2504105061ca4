package database

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// migrations are additive and run in order at startup. The schema version is
// a single integer counter kept in SQLite's user_version pragma; a migration
// is applied only when the current version is below its position.
var migrations = []func(*sql.DB) error{
	migrateAddUserEmail,
	migrateDedupeReminders,
}

// Migrate brings the database up to the latest schema version.
func Migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](db); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			return fmt.Errorf("failed to bump schema version to %d: %w", i+1, err)
		}
		slog.Info("Applied migration", "version", i+1)
	}
	return nil
}

// columnExists checks if a column exists on a given table (SQLite PRAGMA table_info)
func columnExists(db *sql.DB, table string, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	var cid int
	var name string
	var ctype string
	var notnull int
	var dflt sql.NullString
	var pk int

	for rows.Next() {
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// migrateAddUserEmail ensures the users table has an email column. Databases
// created by the current schema already have it.
func migrateAddUserEmail(db *sql.DB) error {
	exists, err := columnExists(db, "users", "email")
	if err != nil {
		return err
	}
	if !exists {
		if _, err := db.Exec("ALTER TABLE users ADD COLUMN email TEXT"); err != nil {
			return err
		}
	}
	return nil
}

// migrateDedupeReminders collapses duplicate reminder mappings that older
// builds could accumulate (the save path used to insert without a uniqueness
// constraint), keeping the newest row per contact, then enforces the unique
// index going forward.
func migrateDedupeReminders(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		DELETE FROM reminders WHERE rowid NOT IN (
			SELECT MAX(rowid) FROM reminders GROUP BY user_id, contact_id
		)`)
	if err != nil {
		return err
	}

	_, err = tx.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_reminders_user_contact ON reminders(user_id, contact_id)")
	if err != nil {
		return err
	}

	return tx.Commit()
}
