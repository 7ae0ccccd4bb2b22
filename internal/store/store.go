package store

import (
	"time"

	"deckforge/pkg/domain"
)

// WindowUsage aggregates a user's non-failed generations inside a rolling window.
type WindowUsage struct {
	Count int
	// Oldest is the created-at of the oldest non-failed record in the
	// window; zero when the window is empty.
	Oldest time.Time
}

// Store defines persistence operations for users and generation records.
type Store interface {
	// users
	UpsertUser(u domain.User) (domain.User, error)
	GetUserByChatID(chatID int64) (domain.User, bool, error)
	SetUserPhone(userID, phone string) error

	// generations
	CountWindow(userID string, since time.Time) (WindowUsage, error)
	// ReserveGeneration recomputes the windowed count while holding the
	// user's row lock and inserts gen only when count < limit. It returns
	// whether the insert happened and the usage observed under the lock.
	ReserveGeneration(gen domain.Generation, since time.Time, limit int) (bool, WindowUsage, error)
	GetGeneration(id string) (domain.Generation, bool, error)
	SetGenerationStatus(id string, status domain.GenerationStatus) error
	// SetGenerationStatusIfPending updates the status only when the record
	// is still pending, reporting whether the update happened.
	SetGenerationStatusIfPending(id string, status domain.GenerationStatus) (bool, error)
	UpdateGenerationMeta(id string, meta domain.GenerationMeta) error
	// FailAllPending force-fails every pending record and returns how many
	// were touched. Run once at process start.
	FailAllPending() (int64, error)
}
