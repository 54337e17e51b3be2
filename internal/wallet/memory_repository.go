package wallet

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type memoryRepository struct {
	mu        sync.RWMutex
	byAddress map[string]Binding
}

// NewMemoryRepository constructs an in-memory repository for tests and development.
func NewMemoryRepository() Repository {
	return &memoryRepository{byAddress: make(map[string]Binding)}
}

func (r *memoryRepository) Bind(_ context.Context, b Binding) (Binding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.Address = strings.ToLower(b.Address)
	if existing, exists := r.byAddress[b.Address]; exists {
		if existing.UserID != b.UserID {
			return Binding{}, ErrAlreadyBound
		}
		return existing, nil
	}
	r.byAddress[b.Address] = b
	return b, nil
}

func (r *memoryRepository) Resolve(_ context.Context, address string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byAddress[strings.ToLower(address)]
	if !ok {
		return "", ErrNotBound
	}
	return b.UserID, nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Binding
	for _, b := range r.byAddress {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
