package cart

import (
	"context"
	"sync"
)

type MemStore struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

func NewMemStore() *MemStore {
	return &MemStore{carts: map[string]*Cart{}}
}

func (s *MemStore) Get(_ context.Context, userID string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[userID]
	if !ok {
		return &Cart{UserID: userID}, nil
	}
	// copy supaya caller tidak mutasi state store tanpa Save
	cp := *c
	cp.Lines = append([]Line(nil), c.Lines...)
	return &cp, nil
}

func (s *MemStore) Save(_ context.Context, c *Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	cp.Lines = append([]Line(nil), c.Lines...)
	s.carts[c.UserID] = &cp
	return nil
}

func (s *MemStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	return nil
}
