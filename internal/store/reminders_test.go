package store

import (
	"context"
	"testing"

	"keepintouch/internal/models"
	"keepintouch/internal/schedule"
)

func TestReminderSaveIsUpsert(t *testing.T) {
	db, userID := setupDB(t)
	reminders := NewReminderStore(db)
	ctx := context.Background()

	if err := reminders.Save(ctx, userID, &models.Reminder{ContactID: "c1", NotificationID: "n1", Frequency: schedule.FrequencyWeekly}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	// Repeated add/remove cycles must never stack duplicate mappings.
	if err := reminders.Save(ctx, userID, &models.Reminder{ContactID: "c1", NotificationID: "n2", Frequency: schedule.FrequencyMonthly}); err != nil {
		t.Fatalf("Save (overwrite) failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM reminders WHERE user_id = ? AND contact_id = ?", userID, "c1").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("mapping rows = %d, want 1", count)
	}

	r, err := reminders.Get(ctx, userID, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if r.NotificationID != "n2" || r.Frequency != schedule.FrequencyMonthly {
		t.Errorf("mapping = %+v, want n2/monthly", r)
	}
}

func TestReminderGetMissing(t *testing.T) {
	db, userID := setupDB(t)
	reminders := NewReminderStore(db)

	r, err := reminders.Get(context.Background(), userID, "ghost")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if r != nil {
		t.Errorf("expected nil mapping, got %+v", r)
	}
}

func TestReminderDeleteAndDeleteAll(t *testing.T) {
	db, userID := setupDB(t)
	reminders := NewReminderStore(db)
	ctx := context.Background()

	for i, id := range []string{"c1", "c2"} {
		if err := reminders.Save(ctx, userID, &models.Reminder{ContactID: id, NotificationID: string(rune('a' + i)), Frequency: schedule.FrequencyWeekly}); err != nil {
			t.Fatal(err)
		}
	}

	if err := reminders.Delete(ctx, userID, "c1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	all, err := reminders.All(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].ContactID != "c2" {
		t.Errorf("remaining mappings = %+v, want only c2's", all)
	}

	if err := reminders.DeleteAll(ctx, userID); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	all, err = reminders.All(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("mappings remaining after clear: %d", len(all))
	}
}
