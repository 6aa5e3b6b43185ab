package orders

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemStore struct {
	mu     sync.Mutex
	orders map[string]*Order
	byIdem map[string]string // "user:key" -> order_id
}

func NewMemStore() *MemStore {
	return &MemStore{orders: map[string]*Order{}, byIdem: map[string]string{}}
}

func clone(o *Order) *Order {
	cp := *o
	cp.Lines = append([]Line(nil), o.Lines...)
	return &cp
}

func (s *MemStore) Create(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.IdempotencyKey != "" {
		// paritas dengan partial unique index (user_id, idempotency_key)
		// di Postgres: dua checkout simultan dengan key sama tidak boleh
		// dua-duanya tembus
		ik := o.UserID + ":" + o.IdempotencyKey
		if _, ok := s.byIdem[ik]; ok {
			return ErrConflict
		}
		s.byIdem[ik] = o.ID
	}
	s.orders[o.ID] = clone(o)
	return nil
}

func (s *MemStore) Get(_ context.Context, id string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(o), nil
}

func (s *MemStore) GetByIdempotencyKey(_ context.Context, userID, key string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byIdem[userID+":"+key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s.orders[id]), nil
}

func (s *MemStore) ListByUser(_ context.Context, userID string) ([]*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, clone(o))
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *MemStore) ListAll(_ context.Context) ([]*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, clone(o))
	}
	sortByCreated(out)
	return out, nil
}

func (s *MemStore) UpdateStatus(_ context.Context, id string, version int64, status Status, pay PaymentStatus) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if o.Version != version {
		return nil, ErrConflict
	}
	o.Status = status
	o.PaymentStatus = pay
	o.Version++
	o.UpdatedAt = time.Now().UTC()
	return clone(o), nil
}

func (s *MemStore) PurgeCancelled(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, o := range s.orders {
		if o.Status == StatusCancelled {
			if o.IdempotencyKey != "" {
				delete(s.byIdem, o.UserID+":"+o.IdempotencyKey)
			}
			delete(s.orders, id)
			n++
		}
	}
	return n, nil
}

func sortByCreated(out []*Order) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
}
