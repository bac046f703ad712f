package store

import (
	"sync"
	"time"

	"campuspass/pkg/domain"
)

// MemoryStore keeps users and requests in-process. It backs tests and local
// development; the mutex gives the same atomicity guarantees as the
// Postgres-backed store.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User    // key: user ID
	rolls    map[string]string         // roll -> user ID
	requests map[string]domain.Request // key: request ID
	order    []string                  // insertion order of request IDs
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		rolls:    make(map[string]string),
		requests: make(map[string]domain.Request),
	}
}

// SaveUser registers or replaces a user.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.rolls[u.Roll] = u.ID
	return nil
}

// HasRoll checks if a roll number is already registered.
func (m *MemoryStore) HasRoll(roll string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rolls[roll]
	return ok, nil
}

// GetUserByRoll looks up a user by roll number.
func (m *MemoryStore) GetUserByRoll(roll string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.rolls[roll]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// CreateRequest assigns a fresh short id and stores the record as pending.
func (m *MemoryStore) CreateRequest(r domain.Request) (domain.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	r.Status = domain.StatusPending
	r.CreatedAt = now
	r.UpdatedAt = now
	for {
		r.ID = NewRequestID()
		if _, taken := m.requests[r.ID]; !taken {
			break
		}
	}
	m.requests[r.ID] = r
	m.order = append(m.order, r.ID)
	return r, nil
}

// ListByOwner returns requests for one user, newest first.
func (m *MemoryStore) ListByOwner(ownerID string) ([]domain.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Request, 0)
	for i := len(m.order) - 1; i >= 0; i-- {
		if r, ok := m.requests[m.order[i]]; ok && r.OwnerID == ownerID {
			res = append(res, r)
		}
	}
	return res, nil
}

// ListAll returns every request, pending first, newest first within a group.
func (m *MemoryStore) ListAll() ([]domain.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pending := make([]domain.Request, 0)
	decided := make([]domain.Request, 0)
	for i := len(m.order) - 1; i >= 0; i-- {
		r, ok := m.requests[m.order[i]]
		if !ok {
			continue
		}
		if r.Status == domain.StatusPending {
			pending = append(pending, r)
		} else {
			decided = append(decided, r)
		}
	}
	return append(pending, decided...), nil
}

// GetRequest retrieves a request by ID.
func (m *MemoryStore) GetRequest(id string) (domain.Request, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	return r, ok, nil
}

// Approve transitions pending to approved; no-op when already approved.
func (m *MemoryStore) Approve(id string) (domain.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return domain.Request{}, ErrNotFound
	}
	if r.Status != domain.StatusApproved {
		r.Status = domain.StatusApproved
		r.UpdatedAt = time.Now().UTC()
		m.requests[id] = r
	}
	return r, nil
}
