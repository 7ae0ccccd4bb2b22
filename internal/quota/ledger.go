// Package quota enforces the per-user generation budget over a rolling
// window. Reservations claim a slot ahead of the actual work; only the
// store's locked transaction decides whether a slot is granted, so the
// ledger stays correct under concurrent requests for the same user.
package quota

import (
	"fmt"
	"time"

	"deckforge/internal/store"
	"deckforge/internal/util"
	"deckforge/pkg/domain"
)

const (
	DefaultLimit  = 3
	DefaultWindow = 24 * time.Hour
)

// Availability describes a user's quota standing at one instant.
type Availability struct {
	Allowed   bool
	Used      int
	Remaining int
	Limit     int
	// NextAvailableAt is set only when blocked: the moment the oldest
	// counted reservation ages out of the window.
	NextAvailableAt time.Time
}

// Reservation is the outcome of a reserve attempt. ID is empty when blocked.
type Reservation struct {
	Availability
	ID string
}

// Ledger owns generation records and the rolling-window arithmetic.
type Ledger struct {
	store  store.Store
	limit  int
	window time.Duration
	now    func() time.Time
}

// New builds a ledger; non-positive limit or window fall back to defaults.
func New(st store.Store, limit int, window time.Duration) *Ledger {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Ledger{store: st, limit: limit, window: window, now: time.Now}
}

// WithClock overrides the time source, used by tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

func (l *Ledger) availability(usage store.WindowUsage, now time.Time) Availability {
	av := Availability{
		Used:      usage.Count,
		Remaining: l.limit - usage.Count,
		Limit:     l.limit,
	}
	if av.Remaining < 0 {
		av.Remaining = 0
	}
	if usage.Count < l.limit {
		av.Allowed = true
		return av
	}
	if usage.Oldest.IsZero() {
		// Blocked without an oldest record to anchor on; be conservative.
		av.NextAvailableAt = now.Add(l.window)
	} else {
		av.NextAvailableAt = usage.Oldest.Add(l.window)
	}
	return av
}

// CheckAvailability is the read-only view of the user's window.
func (l *Ledger) CheckAvailability(userID string) (Availability, error) {
	now := l.now().UTC()
	usage, err := l.store.CountWindow(userID, now.Add(-l.window))
	if err != nil {
		return Availability{}, fmt.Errorf("quota check: %w", err)
	}
	return l.availability(usage, now), nil
}

// Reserve claims a slot by inserting a pending record inside the store's
// locked transaction. A blocked result carries no reservation id.
func (l *Ledger) Reserve(userID string, meta domain.GenerationMeta) (Reservation, error) {
	now := l.now().UTC()
	gen := domain.Generation{
		ID:        util.NewID(),
		UserID:    userID,
		Status:    domain.GenerationPending,
		Meta:      meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	granted, usage, err := l.store.ReserveGeneration(gen, now.Add(-l.window), l.limit)
	if err != nil {
		return Reservation{}, fmt.Errorf("quota reserve: %w", err)
	}
	if !granted {
		return Reservation{Availability: l.availability(usage, now)}, nil
	}
	usage.Count++
	if usage.Oldest.IsZero() {
		usage.Oldest = now
	}
	av := l.availability(usage, now)
	av.Allowed = true
	return Reservation{Availability: av, ID: gen.ID}, nil
}

// Finalize moves a reservation to a terminal status.
func (l *Ledger) Finalize(reservationID string, status domain.GenerationStatus) error {
	if !status.Terminal() {
		return fmt.Errorf("finalize %s: status %q is not terminal", reservationID, status)
	}
	if err := l.store.SetGenerationStatus(reservationID, status); err != nil {
		return fmt.Errorf("finalize %s: %w", reservationID, err)
	}
	return nil
}

// MarkFailedIfPending fails the reservation only when nothing finalized it
// yet, so error paths can run after a success path without clobbering it.
func (l *Ledger) MarkFailedIfPending(reservationID string) (bool, error) {
	changed, err := l.store.SetGenerationStatusIfPending(reservationID, domain.GenerationFailed)
	if err != nil {
		return false, fmt.Errorf("mark failed %s: %w", reservationID, err)
	}
	return changed, nil
}

// UpdateMeta replaces the reservation metadata, used to record the
// delivered filename.
func (l *Ledger) UpdateMeta(reservationID string, meta domain.GenerationMeta) error {
	return l.store.UpdateGenerationMeta(reservationID, meta)
}

// RecoverOrphanedOnStartup fails every leftover pending record. A pending
// reservation that survived a restart belongs to work that was interrupted
// and cannot be trusted.
func (l *Ledger) RecoverOrphanedOnStartup() (int64, error) {
	n, err := l.store.FailAllPending()
	if err != nil {
		return 0, fmt.Errorf("recover orphaned: %w", err)
	}
	return n, nil
}

// Window returns the configured window length.
func (l *Ledger) Window() time.Duration { return l.window }

// Limit returns the configured reservation limit.
func (l *Ledger) Limit() int { return l.limit }
