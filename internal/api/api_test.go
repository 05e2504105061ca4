package api_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"keepintouch/internal/api"
	"keepintouch/internal/database"
	"keepintouch/internal/directory"
	"keepintouch/internal/models"
	"keepintouch/internal/notify"
	"keepintouch/internal/service"
	"keepintouch/internal/store"

	"github.com/gofiber/fiber/v2"
)

func setupTestApp(t *testing.T) (*fiber.App, *sql.DB) {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	dir := directory.New(db)
	contacts := store.NewContactStore(db, dir)
	checkIns := store.NewCheckInStore(db)
	reminderRows := store.NewReminderStore(db)
	scheduler := notify.NewPushScheduler(db)
	reminders := notify.NewReminderService(reminderRows, scheduler)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
	api.SetupRoutes(app, api.Deps{
		DB:        db,
		Directory: dir,
		Friends:   service.NewFriends(contacts, checkIns, reminders),
		CheckIns:  service.NewCheckInFlow(contacts, checkIns, reminders, time.Hour),
		Reminders: reminders,
		History:   checkIns,
	})
	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, payload any) ([]byte, int) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return raw, resp.StatusCode
}

func registerUser(t *testing.T, app *fiber.App) string {
	t.Helper()
	raw, status := doJSON(t, app, "POST", "/api/auth/register", "", models.RegisterRequest{
		Username: "testuser",
		Password: "password123",
	})
	if status != 201 {
		t.Fatalf("register: status = %d, body = %s", status, raw)
	}
	var authResp models.AuthResponse
	if err := json.Unmarshal(raw, &authResp); err != nil {
		t.Fatal(err)
	}
	if authResp.Token == "" {
		t.Fatal("expected token in register response")
	}
	return authResp.Token
}

func syncDirectory(t *testing.T, app *fiber.App, token string) {
	t.Helper()
	raw, status := doJSON(t, app, "PUT", "/api/directory", token, models.SyncDirectoryRequest{
		Contacts: []models.DeviceContact{
			{ID: "c1", DisplayName: "John Appleseed", Phone: "+1555"},
			{ID: "c2", DisplayName: "Mary Major"},
		},
	})
	if status != 200 {
		t.Fatalf("sync directory: status = %d, body = %s", status, raw)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	app, _ := setupTestApp(t)

	registerUser(t, app)

	raw, status := doJSON(t, app, "POST", "/api/auth/login", "", models.LoginRequest{
		Username: "testuser",
		Password: "password123",
	})
	if status != 200 {
		t.Fatalf("login: status = %d, body = %s", status, raw)
	}
	var authResp models.AuthResponse
	if err := json.Unmarshal(raw, &authResp); err != nil {
		t.Fatal(err)
	}
	if authResp.Token == "" {
		t.Fatal("expected token in login response")
	}

	raw, status = doJSON(t, app, "POST", "/api/auth/login", "", models.LoginRequest{
		Username: "testuser",
		Password: "wrong",
	})
	if status != 401 {
		t.Fatalf("bad login: status = %d, body = %s", status, raw)
	}
}

func TestFriendsRequireAuth(t *testing.T) {
	app, _ := setupTestApp(t)

	_, status := doJSON(t, app, "GET", "/api/friends/", "", nil)
	if status != 401 {
		t.Fatalf("unauthenticated list: status = %d, want 401", status)
	}
}

func TestFriendLifecycle(t *testing.T) {
	app, _ := setupTestApp(t)
	token := registerUser(t, app)
	syncDirectory(t, app, token)

	// Add a friend with a weekly cadence and a birthday.
	raw, status := doJSON(t, app, "POST", "/api/friends/", token, models.AddFriendRequest{
		ContactID: "c1",
		Frequency: "weekly",
		Birthday:  "1990-04-12",
	})
	if status != 201 {
		t.Fatalf("add friend: status = %d, body = %s", status, raw)
	}
	var friend models.Friend
	if err := json.Unmarshal(raw, &friend); err != nil {
		t.Fatal(err)
	}
	if friend.DisplayName != "John Appleseed" {
		t.Errorf("display name = %q", friend.DisplayName)
	}
	if friend.CheckInLabel != "Never checked in" {
		t.Errorf("check-in label = %q", friend.CheckInLabel)
	}

	// List shows exactly the one friend.
	raw, status = doJSON(t, app, "GET", "/api/friends/", token, nil)
	if status != 200 {
		t.Fatalf("list friends: status = %d, body = %s", status, raw)
	}
	var friends []models.Friend
	if err := json.Unmarshal(raw, &friends); err != nil {
		t.Fatal(err)
	}
	if len(friends) != 1 {
		t.Fatalf("friends = %d, want 1", len(friends))
	}

	// Change the cadence.
	raw, status = doJSON(t, app, "PUT", "/api/friends/c1", token, models.UpdateFriendRequest{
		Frequency: "monthly",
	})
	if status != 200 {
		t.Fatalf("update friend: status = %d, body = %s", status, raw)
	}
	if err := json.Unmarshal(raw, &friend); err != nil {
		t.Fatal(err)
	}
	if string(friend.Frequency) != "monthly" {
		t.Errorf("frequency after update = %q", friend.Frequency)
	}

	// Delete and verify it is gone.
	raw, status = doJSON(t, app, "DELETE", "/api/friends/c1", token, nil)
	if status != 200 {
		t.Fatalf("delete friend: status = %d, body = %s", status, raw)
	}
	_, status = doJSON(t, app, "GET", "/api/friends/c1", token, nil)
	if status != 404 {
		t.Fatalf("get deleted friend: status = %d, want 404", status)
	}
}

func TestAddFriendValidation(t *testing.T) {
	app, _ := setupTestApp(t)
	token := registerUser(t, app)
	syncDirectory(t, app, token)

	_, status := doJSON(t, app, "POST", "/api/friends/", token, models.AddFriendRequest{
		ContactID: "c1",
		Frequency: "fortnightly",
	})
	if status != 400 {
		t.Fatalf("bad frequency: status = %d, want 400", status)
	}

	_, status = doJSON(t, app, "POST", "/api/friends/", token, models.AddFriendRequest{
		Frequency: "weekly",
	})
	if status != 400 {
		t.Fatalf("missing contact id: status = %d, want 400", status)
	}
}

func TestCheckInFlowOverHTTP(t *testing.T) {
	app, _ := setupTestApp(t)
	token := registerUser(t, app)
	syncDirectory(t, app, token)

	raw, status := doJSON(t, app, "POST", "/api/friends/", token, models.AddFriendRequest{
		ContactID: "c1",
		Frequency: "weekly",
	})
	if status != 201 {
		t.Fatalf("add friend: status = %d, body = %s", status, raw)
	}

	// Begin, inspect pending, confirm.
	raw, status = doJSON(t, app, "POST", "/api/checkins/begin", token, models.BeginCheckInRequest{ContactID: "c1"})
	if status != 202 {
		t.Fatalf("begin check-in: status = %d, body = %s", status, raw)
	}

	raw, status = doJSON(t, app, "GET", "/api/checkins/pending", token, nil)
	if status != 200 {
		t.Fatalf("pending: status = %d, body = %s", status, raw)
	}
	var pending models.PendingCheckInResponse
	if err := json.Unmarshal(raw, &pending); err != nil {
		t.Fatal(err)
	}
	if pending.ContactID != "c1" {
		t.Errorf("pending contact = %q", pending.ContactID)
	}

	raw, status = doJSON(t, app, "POST", "/api/checkins/confirm", token, nil)
	if status != 200 {
		t.Fatalf("confirm: status = %d, body = %s", status, raw)
	}

	// The friend now shows today's check-in.
	raw, status = doJSON(t, app, "GET", "/api/friends/c1", token, nil)
	if status != 200 {
		t.Fatalf("get friend: status = %d, body = %s", status, raw)
	}
	var friend models.Friend
	if err := json.Unmarshal(raw, &friend); err != nil {
		t.Fatal(err)
	}
	if friend.CheckInLabel != "Checked in today" {
		t.Errorf("check-in label = %q, want Checked in today", friend.CheckInLabel)
	}

	// History for the friend holds the one entry.
	raw, status = doJSON(t, app, "GET", "/api/friends/c1/checkins", token, nil)
	if status != 200 {
		t.Fatalf("history: status = %d, body = %s", status, raw)
	}
	var history []models.CheckIn
	if err := json.Unmarshal(raw, &history); err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Errorf("history = %d entries, want 1", len(history))
	}

	// No pending check-in remains.
	_, status = doJSON(t, app, "GET", "/api/checkins/pending", token, nil)
	if status != 404 {
		t.Fatalf("pending after confirm: status = %d, want 404", status)
	}

	// The recency probe now reports true for the weekly window.
	raw, status = doJSON(t, app, "GET", "/api/friends/c1/checked-in-recently", token, nil)
	if status != 200 {
		t.Fatalf("recency probe: status = %d, body = %s", status, raw)
	}
	var recent struct {
		CheckedInRecently bool `json:"checked_in_recently"`
	}
	if err := json.Unmarshal(raw, &recent); err != nil {
		t.Fatal(err)
	}
	if !recent.CheckedInRecently {
		t.Error("checked_in_recently = false after a fresh check-in")
	}
}

func TestCheckInNoteFlowOverHTTP(t *testing.T) {
	app, _ := setupTestApp(t)
	token := registerUser(t, app)
	syncDirectory(t, app, token)

	if raw, status := doJSON(t, app, "POST", "/api/friends/", token, models.AddFriendRequest{
		ContactID: "c2",
		Frequency: "monthly",
	}); status != 201 {
		t.Fatalf("add friend: status = %d, body = %s", status, raw)
	}

	if raw, status := doJSON(t, app, "POST", "/api/checkins/begin", token, models.BeginCheckInRequest{ContactID: "c2"}); status != 202 {
		t.Fatalf("begin: status = %d, body = %s", status, raw)
	}
	if raw, status := doJSON(t, app, "POST", "/api/checkins/note/request", token, nil); status != 200 {
		t.Fatalf("note request: status = %d, body = %s", status, raw)
	}

	raw, status := doJSON(t, app, "POST", "/api/checkins/note", token, models.CheckInNoteRequest{Note: "caught up over coffee"})
	if status != 200 {
		t.Fatalf("submit note: status = %d, body = %s", status, raw)
	}
	var ci models.CheckIn
	if err := json.Unmarshal(raw, &ci); err != nil {
		t.Fatal(err)
	}
	if ci.Note != "caught up over coffee" {
		t.Errorf("note = %q", ci.Note)
	}
}

func TestUndoCheckInOverHTTP(t *testing.T) {
	app, _ := setupTestApp(t)
	token := registerUser(t, app)
	syncDirectory(t, app, token)

	if raw, status := doJSON(t, app, "POST", "/api/friends/", token, models.AddFriendRequest{
		ContactID: "c1",
		Frequency: "weekly",
	}); status != 201 {
		t.Fatalf("add friend: status = %d, body = %s", status, raw)
	}
	if raw, status := doJSON(t, app, "POST", "/api/checkins/begin", token, models.BeginCheckInRequest{ContactID: "c1"}); status != 202 {
		t.Fatalf("begin: status = %d, body = %s", status, raw)
	}
	if raw, status := doJSON(t, app, "DELETE", "/api/checkins/pending", token, nil); status != 200 {
		t.Fatalf("undo: status = %d, body = %s", status, raw)
	}

	raw, status := doJSON(t, app, "GET", "/api/friends/c1/checkins", token, nil)
	if status != 200 {
		t.Fatalf("history: status = %d, body = %s", status, raw)
	}
	var history []models.CheckIn
	if err := json.Unmarshal(raw, &history); err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("history after undo = %d entries, want 0", len(history))
	}
}

func TestAdminWipe(t *testing.T) {
	app, db := setupTestApp(t)
	token := registerUser(t, app)
	syncDirectory(t, app, token)

	if raw, status := doJSON(t, app, "POST", "/api/friends/", token, models.AddFriendRequest{
		ContactID: "c1",
		Frequency: "weekly",
	}); status != 201 {
		t.Fatalf("add friend: status = %d, body = %s", status, raw)
	}

	if raw, status := doJSON(t, app, "DELETE", "/api/admin/data", token, nil); status != 200 {
		t.Fatalf("wipe: status = %d, body = %s", status, raw)
	}

	raw, status := doJSON(t, app, "GET", "/api/friends/", token, nil)
	if status != 200 {
		t.Fatalf("list after wipe: status = %d, body = %s", status, raw)
	}
	var friends []models.Friend
	if err := json.Unmarshal(raw, &friends); err != nil {
		t.Fatal(err)
	}
	if len(friends) != 0 {
		t.Errorf("friends after wipe = %d, want 0", len(friends))
	}

	var scheduled int
	if err := db.QueryRow("SELECT COUNT(*) FROM scheduled_notifications").Scan(&scheduled); err != nil {
		t.Fatal(err)
	}
	if scheduled != 0 {
		t.Errorf("scheduled notifications after wipe = %d, want 0", scheduled)
	}
}

func TestHealthCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("health: status = %d", resp.StatusCode)
	}
}
