package inventory

import (
	"context"
	"sync"
)

// MemLedger: implementasi in-memory dengan mutex per SKU. Dipakai test
// & mode dev; semantiknya harus identik dengan PgLedger.
type MemLedger struct {
	mu   sync.RWMutex
	recs map[string]*memRecord
}

type memRecord struct {
	mu           sync.Mutex
	quantity     int64
	reorderLevel int64
}

func NewMemLedger() *MemLedger {
	return &MemLedger{recs: map[string]*memRecord{}}
}

func (l *MemLedger) AdjustQuantity(_ context.Context, skuID string, delta int64) (int64, error) {
	l.mu.RLock()
	rec, ok := l.recs[skuID]
	l.mu.RUnlock()
	if !ok {
		return 0, ErrNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	next := rec.quantity + delta
	if next < 0 {
		return 0, ErrInsufficientStock
	}
	rec.quantity = next
	return next, nil
}

func (l *MemLedger) Quantity(_ context.Context, skuID string) (int64, error) {
	l.mu.RLock()
	rec, ok := l.recs[skuID]
	l.mu.RUnlock()
	if !ok {
		return 0, ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.quantity, nil
}

func (l *MemLedger) Put(_ context.Context, r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec, ok := l.recs[r.SKUID]; ok {
		rec.mu.Lock()
		rec.quantity = r.Quantity
		rec.reorderLevel = r.ReorderLevel
		rec.mu.Unlock()
		return nil
	}
	l.recs[r.SKUID] = &memRecord{quantity: r.Quantity, reorderLevel: r.ReorderLevel}
	return nil
}
