package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"keepintouch/internal/models"
	"keepintouch/internal/notify"
	"keepintouch/internal/store"
)

// ErrNoPendingCheckIn is returned when confirm/note/undo is called without a
// check-in in progress.
var ErrNoPendingCheckIn = errors.New("no pending check-in")

// DefaultCountdown is how long a pending check-in waits before it
// auto-confirms, mirroring the undo window the client shows.
const DefaultCountdown = 5 * time.Second

// pendingCheckIn is one in-flight check-in. The struct itself is the
// cancellation token: the timer callback re-checks `cancelled` and map
// identity under the flow lock before acting, so a stale timer firing after
// state has moved on is a no-op rather than a race.
type pendingCheckIn struct {
	contactID     string
	startedAt     time.Time
	noteRequested bool
	cancelled     bool
	timer         *time.Timer
}

// CheckInFlow drives the pending check-in state machine:
//
//	idle → pending (countdown running)
//	     → confirmed   (countdown elapsed, or the user closed the prompt)
//	     → note-requested (countdown suspended until the note flow ends)
//	     → undone      (user cancelled before the countdown elapsed)
//
// Beginning a new check-in while one is pending replaces it.
type CheckInFlow struct {
	mu      sync.Mutex
	pending map[int]*pendingCheckIn // keyed by user id

	contacts  *store.ContactStore
	checkIns  *store.CheckInStore
	reminders *notify.ReminderService
	countdown time.Duration
}

func NewCheckInFlow(contacts *store.ContactStore, checkIns *store.CheckInStore, reminders *notify.ReminderService, countdown time.Duration) *CheckInFlow {
	if countdown <= 0 {
		countdown = DefaultCountdown
	}
	return &CheckInFlow{
		pending:   make(map[int]*pendingCheckIn),
		contacts:  contacts,
		checkIns:  checkIns,
		reminders: reminders,
		countdown: countdown,
	}
}

// Begin starts a pending check-in for the contact. Any prior pending
// check-in for the user is cancelled and replaced.
func (f *CheckInFlow) Begin(ctx context.Context, userID int, contactID string) (*models.PendingCheckInResponse, error) {
	// Validate the contact up front so the countdown can't confirm against
	// a friend that was never added.
	if _, err := f.contacts.GetByID(ctx, userID, contactID); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if prior := f.pending[userID]; prior != nil {
		prior.cancelled = true
		prior.timer.Stop()
	}

	p := &pendingCheckIn{
		contactID: contactID,
		startedAt: time.Now(),
	}
	p.timer = time.AfterFunc(f.countdown, func() { f.autoConfirm(userID, p) })
	f.pending[userID] = p

	return f.snapshot(p), nil
}

// Pending returns the user's in-flight check-in, or nil.
func (f *CheckInFlow) Pending(userID int) *models.PendingCheckInResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.pending[userID]
	if p == nil {
		return nil
	}
	return f.snapshot(p)
}

// Confirm persists the pending check-in immediately (the user closed the
// prompt without waiting for the countdown).
func (f *CheckInFlow) Confirm(ctx context.Context, userID int) (*models.CheckIn, error) {
	p, err := f.take(userID)
	if err != nil {
		return nil, err
	}
	return f.persist(ctx, userID, p.contactID, "")
}

// RequestNote suspends the countdown: the check-in stays pending until the
// note flow completes via SubmitNote or is abandoned via Undo.
func (f *CheckInFlow) RequestNote(userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.pending[userID]
	if p == nil {
		return ErrNoPendingCheckIn
	}
	p.noteRequested = true
	p.timer.Stop()
	return nil
}

// SubmitNote completes a note-requested check-in, persisting it with the
// note attached.
func (f *CheckInFlow) SubmitNote(ctx context.Context, userID int, note string) (*models.CheckIn, error) {
	p, err := f.take(userID)
	if err != nil {
		return nil, err
	}
	return f.persist(ctx, userID, p.contactID, note)
}

// Undo cancels the pending check-in before anything is persisted.
func (f *CheckInFlow) Undo(userID int) error {
	_, err := f.take(userID)
	return err
}

// take atomically removes and invalidates the user's pending check-in.
func (f *CheckInFlow) take(userID int) (*pendingCheckIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.pending[userID]
	if p == nil {
		return nil, ErrNoPendingCheckIn
	}
	p.cancelled = true
	p.timer.Stop()
	delete(f.pending, userID)
	return p, nil
}

// autoConfirm runs from the countdown timer. The pending instance is only
// acted on if it is still the live one and was neither cancelled nor moved
// into the note flow in the window before the lock was taken.
func (f *CheckInFlow) autoConfirm(userID int, p *pendingCheckIn) {
	f.mu.Lock()
	if p.cancelled || p.noteRequested || f.pending[userID] != p {
		f.mu.Unlock()
		return
	}
	p.cancelled = true
	delete(f.pending, userID)
	f.mu.Unlock()

	if _, err := f.persist(context.Background(), userID, p.contactID, ""); err != nil {
		slog.Warn("Auto-confirm failed to persist check-in", "contact_id", p.contactID, "error", err)
	}
}

// persist writes the check-in row and postpones the contact's reminder
// anchored at the new check-in date. The postponement is best-effort.
func (f *CheckInFlow) persist(ctx context.Context, userID int, contactID, note string) (*models.CheckIn, error) {
	now := time.Now()
	ci := &models.CheckIn{ContactID: contactID, Date: now, Note: note}
	if err := f.checkIns.CheckInOnContact(ctx, userID, ci); err != nil {
		return nil, fmt.Errorf("failed to record check-in: %w", err)
	}

	friend, err := f.contacts.GetByID(ctx, userID, contactID)
	if err != nil {
		slog.Warn("Check-in recorded but friend lookup failed, skipping postpone", "contact_id", contactID, "error", err)
		return ci, nil
	}
	if err := f.reminders.Postpone(ctx, userID, contactID, friend.DisplayName, friend.Frequency, now); err != nil {
		slog.Warn("Failed to postpone reminder after check-in", "contact_id", contactID, "error", err)
	}
	return ci, nil
}

func (f *CheckInFlow) snapshot(p *pendingCheckIn) *models.PendingCheckInResponse {
	return &models.PendingCheckInResponse{
		ContactID:     p.contactID,
		StartedAt:     p.startedAt,
		NoteRequested: p.noteRequested,
	}
}
