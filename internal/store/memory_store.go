package store

import (
	"sync"
	"time"

	"deckforge/internal/util"
	"deckforge/pkg/domain"
)

// MemoryStore keeps everything in-process. Used by tests; mirrors the
// locking discipline of GormStore with a single mutex, which is the
// application-level substitute for the row lock.
type MemoryStore struct {
	mu     sync.Mutex
	users  map[string]domain.User
	chats  map[int64]string // chat id -> user id
	gens   map[string]domain.Generation
	orders []string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]domain.User),
		chats: make(map[int64]string),
		gens:  make(map[string]domain.Generation),
	}
}

// UpsertUser creates or refreshes a user keyed by chat id.
func (m *MemoryStore) UpsertUser(u domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.chats[u.ChatID]; ok {
		stored := m.users[id]
		stored.Name = u.Name
		stored.Username = u.Username
		m.users[id] = stored
		return stored, nil
	}
	if u.ID == "" {
		u.ID = util.NewID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.users[u.ID] = u
	m.chats[u.ChatID] = u.ID
	return u, nil
}

// GetUserByChatID looks up a user by chat id.
func (m *MemoryStore) GetUserByChatID(chatID int64) (domain.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.chats[chatID]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

// SetUserPhone records the registration phone number.
func (m *MemoryStore) SetUserPhone(userID, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.Phone = phone
		m.users[userID] = u
	}
	return nil
}

func (m *MemoryStore) windowLocked(userID string, since time.Time) WindowUsage {
	var usage WindowUsage
	for _, id := range m.orders {
		g, ok := m.gens[id]
		if !ok || g.UserID != userID || g.Status == domain.GenerationFailed {
			continue
		}
		if g.CreatedAt.Before(since) {
			continue
		}
		usage.Count++
		if usage.Oldest.IsZero() || g.CreatedAt.Before(usage.Oldest) {
			usage.Oldest = g.CreatedAt
		}
	}
	return usage
}

// CountWindow aggregates non-failed generations created at or after since.
func (m *MemoryStore) CountWindow(userID string, since time.Time) (WindowUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.windowLocked(userID, since), nil
}

// ReserveGeneration performs the check-and-insert atomically.
func (m *MemoryStore) ReserveGeneration(gen domain.Generation, since time.Time, limit int) (bool, WindowUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	usage := m.windowLocked(gen.UserID, since)
	if usage.Count >= limit {
		return false, usage, nil
	}
	m.gens[gen.ID] = gen
	m.orders = append(m.orders, gen.ID)
	return true, usage, nil
}

// GetGeneration returns a generation record by id.
func (m *MemoryStore) GetGeneration(id string) (domain.Generation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gens[id]
	return g, ok, nil
}

// SetGenerationStatus unconditionally moves the record to status.
func (m *MemoryStore) SetGenerationStatus(id string, status domain.GenerationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.gens[id]; ok {
		g.Status = status
		g.UpdatedAt = time.Now().UTC()
		m.gens[id] = g
	}
	return nil
}

// SetGenerationStatusIfPending updates only records still pending.
func (m *MemoryStore) SetGenerationStatusIfPending(id string, status domain.GenerationStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gens[id]
	if !ok || g.Status != domain.GenerationPending {
		return false, nil
	}
	g.Status = status
	g.UpdatedAt = time.Now().UTC()
	m.gens[id] = g
	return true, nil
}

// UpdateGenerationMeta replaces the metadata blob.
func (m *MemoryStore) UpdateGenerationMeta(id string, meta domain.GenerationMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.gens[id]; ok {
		g.Meta = meta
		g.UpdatedAt = time.Now().UTC()
		m.gens[id] = g
	}
	return nil
}

// Generations returns all records in insertion order, for tests.
func (m *MemoryStore) Generations() []domain.Generation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Generation, 0, len(m.orders))
	for _, id := range m.orders {
		if g, ok := m.gens[id]; ok {
			out = append(out, g)
		}
	}
	return out
}

// FailAllPending force-fails every pending record.
func (m *MemoryStore) FailAllPending() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, g := range m.gens {
		if g.Status == domain.GenerationPending {
			g.Status = domain.GenerationFailed
			g.UpdatedAt = time.Now().UTC()
			m.gens[id] = g
			n++
		}
	}
	return n, nil
}
