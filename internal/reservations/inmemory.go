package reservations

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process reservation store for local/dev use.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[string]Reservation
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{items: make(map[string]Reservation)}
}

func (s *InMemoryStore) Save(_ context.Context, r Reservation) (Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if r.Confirmation == "" {
		r.Confirmation = NewConfirmation()
		r.CreatedAt = now
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.Status == "" {
		r.Status = StatusBooked
	}
	r.UpdatedAt = now
	s.items[r.Confirmation] = r
	return r, nil
}

func (s *InMemoryStore) Get(_ context.Context, confirmation string) (Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.items[strings.ToUpper(strings.TrimSpace(confirmation))]
	if !ok {
		return Reservation{}, ErrNotFound
	}
	return r, nil
}

func (s *InMemoryStore) BySession(_ context.Context, sessionID string) ([]Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Reservation
	for _, r := range s.items {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *InMemoryStore) Recent(_ context.Context, limit int) ([]Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Reservation, 0, len(s.items))
	for _, r := range s.items {
		out = append(out, r)
	}
	sortByCreated(out)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }

func sortByCreated(items []Reservation) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].Confirmation < items[j].Confirmation
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

// NewConfirmation produces a short uppercase confirmation code.
func NewConfirmation() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return id[:8]
}
