package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"keepintouch/internal/database"
)

// setupDB creates a fresh on-disk test database with one user and returns
// the handle plus that user's id.
func setupDB(t *testing.T) (*sql.DB, int) {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	result, err := db.Exec("INSERT INTO users (username, password_hash) VALUES (?, ?)", "tester", "x")
	if err != nil {
		t.Fatalf("failed to insert test user: %v", err)
	}
	id, _ := result.LastInsertId()
	return db, int(id)
}

func syncContacts(t *testing.T, db *sql.DB, userID int, rows ...[3]string) {
	t.Helper()
	for _, r := range rows {
		_, err := db.Exec(
			"INSERT INTO device_contacts (user_id, contact_id, display_name, phone) VALUES (?, ?, ?, ?)",
			userID, r[0], r[1], r[2],
		)
		if err != nil {
			t.Fatalf("failed to seed device contact: %v", err)
		}
	}
}
