package models

import (
	"time"

	"keepintouch/internal/schedule"
)

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// DeviceContact is a row of the synced device address-book snapshot. These
// fields are owned by the device; the app never edits them.
type DeviceContact struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Friend merges a device contact with the app-owned reminder fields. Only
// Frequency and Birthday are persisted by the app; DisplayName, Phone and
// AvatarURL are re-read from the directory snapshot on every load. When the
// device contact has disappeared from the snapshot, Placeholder is true and
// the display fields are empty.
type Friend struct {
	ContactID   string             `json:"contact_id"`
	DisplayName string             `json:"display_name"`
	Phone       string             `json:"phone,omitempty"`
	AvatarURL   string             `json:"avatar_url,omitempty"`
	Placeholder bool               `json:"placeholder,omitempty"`
	Frequency   schedule.Frequency `json:"frequency"`
	Birthday    *time.Time         `json:"birthday,omitempty"`

	// Derived on read, never stored.
	LastCheckIn       *time.Time `json:"last_check_in,omitempty"`
	CheckInLabel      string     `json:"check_in_label,omitempty"`
	DaysUntilBirthday int        `json:"days_until_birthday"`
}

// CheckIn records one "I reached out" event. Check-ins are append-only: they
// are never updated, only deleted via the friend-deletion cascade or the
// administrative wipe.
type CheckIn struct {
	ID        int       `json:"id"`
	ContactID string    `json:"contact_id"`
	Date      time.Time `json:"date"`
	Note      string    `json:"note,omitempty"`
}

// Reminder maps a contact to the notification id the scheduler assigned for
// its recurring check-in reminder. At most one row exists per contact.
type Reminder struct {
	ContactID      string             `json:"contact_id"`
	NotificationID string             `json:"notification_id"`
	Frequency      schedule.Frequency `json:"frequency"`
}

type PushSubscription struct {
	ID       int    `json:"id"`
	UserID   int    `json:"user_id"`
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

type AddFriendRequest struct {
	ContactID   string `json:"contact_id"`
	Frequency   string `json:"frequency"`
	Birthday    string `json:"birthday,omitempty"`      // YYYY-MM-DD
	LastCheckIn string `json:"last_check_in,omitempty"` // YYYY-MM-DD, seeds an initial check-in
}

type UpdateFriendRequest struct {
	Frequency string  `json:"frequency,omitempty"`
	Birthday  *string `json:"birthday,omitempty"` // YYYY-MM-DD, empty string clears
}

type SyncDirectoryRequest struct {
	Contacts []DeviceContact `json:"contacts"`
}

type BeginCheckInRequest struct {
	ContactID string `json:"contact_id"`
}

type CheckInNoteRequest struct {
	Note string `json:"note"`
}

type PendingCheckInResponse struct {
	ContactID     string    `json:"contact_id"`
	StartedAt     time.Time `json:"started_at"`
	NoteRequested bool      `json:"note_requested"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
