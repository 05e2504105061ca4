package service

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"keepintouch/internal/database"
	"keepintouch/internal/directory"
	"keepintouch/internal/models"
	"keepintouch/internal/notify"
	"keepintouch/internal/store"
)

// fakeScheduler stands in for the push-backed scheduler so tests can assert
// on what was scheduled without touching web push. The countdown timer calls
// it from its own goroutine, hence the lock.
type fakeScheduler struct {
	mu        sync.Mutex
	nextID    int
	scheduled map[string]notify.Request
	cancelled []string
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: map[string]notify.Request{}}
}

func (f *fakeScheduler) Schedule(_ context.Context, req notify.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("n%d", f.nextID)
	f.scheduled[id] = req
	return id, nil
}

func (f *fakeScheduler) Cancel(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	delete(f.scheduled, id)
	return nil
}

func (f *fakeScheduler) liveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scheduled)
}

func (f *fakeScheduler) cancelledCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cancelled)
}

type testEnv struct {
	db        *sql.DB
	userID    int
	contacts  *store.ContactStore
	checkIns  *store.CheckInStore
	reminders *store.ReminderStore
	scheduler *fakeScheduler
	service   *notify.ReminderService
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	result, err := db.Exec("INSERT INTO users (username, password_hash) VALUES (?, ?)", "tester", "x")
	if err != nil {
		t.Fatal(err)
	}
	id, _ := result.LastInsertId()
	userID := int(id)

	dir := directory.New(db)
	err = dir.Replace(context.Background(), userID, []models.DeviceContact{
		{ID: "c1", DisplayName: "John Appleseed", Phone: "+1555"},
		{ID: "c2", DisplayName: "Mary Major"},
	})
	if err != nil {
		t.Fatal(err)
	}

	contacts := store.NewContactStore(db, dir)
	checkIns := store.NewCheckInStore(db)
	reminders := store.NewReminderStore(db)
	scheduler := newFakeScheduler()

	return &testEnv{
		db:        db,
		userID:    userID,
		contacts:  contacts,
		checkIns:  checkIns,
		reminders: reminders,
		scheduler: scheduler,
		service:   notify.NewReminderService(reminders, scheduler),
	}
}
