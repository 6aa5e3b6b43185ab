package catalog

import (
	"context"
	"sync"
)

// MemCatalog dipakai untuk test & mode dev tanpa Postgres.
type MemCatalog struct {
	mu       sync.RWMutex
	products map[string]Product
}

func NewMemCatalog() *MemCatalog {
	return &MemCatalog{products: map[string]Product{}}
}

func (c *MemCatalog) Put(p Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

func (c *MemCatalog) GetProduct(_ context.Context, id string) (Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}
