package store

import (
	"context"
	"testing"
	"time"

	"keepintouch/internal/models"
	"keepintouch/internal/schedule"
)

func TestCheckInAndLatest(t *testing.T) {
	db, userID := setupDB(t)
	checkIns := NewCheckInStore(db)
	ctx := context.Background()

	older := time.Now().AddDate(0, 0, -10)
	newer := time.Now().AddDate(0, 0, -2)

	if err := checkIns.CheckInOnContact(ctx, userID, &models.CheckIn{ContactID: "c1", Date: older, Note: "coffee"}); err != nil {
		t.Fatalf("CheckInOnContact failed: %v", err)
	}
	if err := checkIns.CheckInOnContact(ctx, userID, &models.CheckIn{ContactID: "c1", Date: newer}); err != nil {
		t.Fatalf("CheckInOnContact failed: %v", err)
	}

	latest, err := checkIns.LatestForContact(ctx, userID, "c1")
	if err != nil {
		t.Fatalf("LatestForContact failed: %v", err)
	}
	if latest == nil {
		t.Fatal("expected a latest check-in")
	}
	if latest.Note != "" {
		t.Errorf("latest note = %q, want the newer (noteless) row", latest.Note)
	}
	if got, want := latest.Date.Format("2006-01-02"), newer.UTC().Format("2006-01-02"); got != want {
		t.Errorf("latest date = %s, want %s", got, want)
	}
}

func TestLatestForContactNoHistory(t *testing.T) {
	db, userID := setupDB(t)
	checkIns := NewCheckInStore(db)

	latest, err := checkIns.LatestForContact(context.Background(), userID, "nobody")
	if err != nil {
		t.Fatalf("LatestForContact failed: %v", err)
	}
	if latest != nil {
		t.Errorf("expected nil for a contact with no history, got %+v", latest)
	}
}

func TestCheckInRequiresContactID(t *testing.T) {
	db, userID := setupDB(t)
	checkIns := NewCheckInStore(db)

	if err := checkIns.CheckInOnContact(context.Background(), userID, &models.CheckIn{}); err != ErrMissingContactID {
		t.Errorf("err = %v, want ErrMissingContactID", err)
	}
}

func TestHasCheckedInWithin(t *testing.T) {
	db, userID := setupDB(t)
	checkIns := NewCheckInStore(db)
	ctx := context.Background()

	// c1 checked in 3 days ago (inside a weekly window), c2 ten days ago
	// (outside), c3 has no rows at all.
	if err := checkIns.CheckInOnContact(ctx, userID, &models.CheckIn{ContactID: "c1", Date: time.Now().AddDate(0, 0, -3)}); err != nil {
		t.Fatal(err)
	}
	if err := checkIns.CheckInOnContact(ctx, userID, &models.CheckIn{ContactID: "c2", Date: time.Now().AddDate(0, 0, -10)}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		contactID string
		frequency schedule.Frequency
		want      bool
	}{
		{"c1", schedule.FrequencyWeekly, true},
		{"c2", schedule.FrequencyWeekly, false},
		{"c2", schedule.FrequencyMonthly, true},
		{"c3", schedule.FrequencyWeekly, false},
		{"c1", schedule.FrequencyNever, false},
	}
	for _, tt := range tests {
		got, err := checkIns.HasCheckedInWithin(ctx, userID, tt.contactID, tt.frequency)
		if err != nil {
			t.Fatalf("HasCheckedInWithin(%s, %s) failed: %v", tt.contactID, tt.frequency, err)
		}
		if got != tt.want {
			t.Errorf("HasCheckedInWithin(%s, %s) = %v, want %v", tt.contactID, tt.frequency, got, tt.want)
		}
	}

	if _, err := checkIns.HasCheckedInWithin(ctx, userID, "c1", "sometimes"); err == nil {
		t.Error("unknown frequency should error")
	}
}

func TestDeleteForContact(t *testing.T) {
	db, userID := setupDB(t)
	checkIns := NewCheckInStore(db)
	ctx := context.Background()

	for _, id := range []string{"c1", "c1", "c2"} {
		if err := checkIns.CheckInOnContact(ctx, userID, &models.CheckIn{ContactID: id, Date: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}

	if err := checkIns.DeleteForContact(ctx, userID, "c1"); err != nil {
		t.Fatalf("DeleteForContact failed: %v", err)
	}

	all, err := checkIns.All(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].ContactID != "c2" {
		t.Errorf("remaining check-ins = %+v, want only c2's", all)
	}

	// Deleting history for a contact with no rows is fine.
	if err := checkIns.DeleteForContact(ctx, userID, "ghost"); err != nil {
		t.Errorf("DeleteForContact for unknown contact: %v", err)
	}
}

func TestDeleteAll(t *testing.T) {
	db, userID := setupDB(t)
	checkIns := NewCheckInStore(db)
	ctx := context.Background()

	for _, id := range []string{"c1", "c2"} {
		if err := checkIns.CheckInOnContact(ctx, userID, &models.CheckIn{ContactID: id, Date: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}

	if err := checkIns.DeleteAll(ctx, userID); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	all, err := checkIns.All(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("check-ins remaining after wipe: %d", len(all))
	}
}
