package cart

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ariefcatur/go-storefront.git/internal/catalog"
	"github.com/ariefcatur/go-storefront.git/internal/inventory"
)

// Service: mutasi cart per user. Cart single-owner, jadi cukup
// read-modify-write biasa; tidak ada locking lintas user.
type Service struct {
	Store   Store
	Catalog catalog.Catalog
	Ledger  inventory.Ledger
	Log     *slog.Logger
}

// AddLine memvalidasi produk + stok lalu merge qty kalau produk sudah
// ada di cart. Stok dicek tapi TIDAK direservasi; reservasi hanya
// terjadi di checkout.
func (s *Service) AddLine(ctx context.Context, userID, productID string, qty int64) (*Cart, error) {
	if qty < 1 {
		return nil, ErrInvalidQty
	}

	p, err := s.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, ErrProductInactive
	}

	c, err := s.Store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	want := qty
	if ln := c.line(productID); ln != nil {
		want += ln.Qty
	}
	if err := s.checkAvailable(ctx, p.SKUID, want); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if ln := c.line(productID); ln != nil {
		// qty bertambah, snapshot harga lama dipertahankan
		ln.Qty += qty
	} else {
		c.Lines = append(c.Lines, Line{
			ProductID:      productID,
			SKUID:          p.SKUID,
			Name:           p.Name,
			Qty:            qty,
			UnitPriceCents: p.UnitPriceCents(),
			AddedAt:        now,
		})
	}
	c.UpdatedAt = now

	if err := s.Store.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	s.log().Debug("cart line added", "user_id", userID, "product_id", productID, "qty", qty)
	return c, nil
}

// UpdateLineQuantity set qty absolut dengan re-validasi stok.
func (s *Service) UpdateLineQuantity(ctx context.Context, userID, productID string, qty int64) (*Cart, error) {
	if qty < 1 {
		return nil, ErrInvalidQty
	}

	c, err := s.Store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	ln := c.line(productID)
	if ln == nil {
		return nil, ErrLineNotFound
	}

	if err := s.checkAvailable(ctx, ln.SKUID, qty); err != nil {
		return nil, err
	}

	ln.Qty = qty
	c.UpdatedAt = time.Now().UTC()
	if err := s.Store.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	s.log().Debug("cart line updated", "user_id", userID, "product_id", productID, "qty", qty)
	return c, nil
}

func (s *Service) RemoveLine(ctx context.Context, userID, productID string) (*Cart, error) {
	c, err := s.Store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	kept := c.Lines[:0]
	found := false
	for _, ln := range c.Lines {
		if ln.ProductID == productID {
			found = true
			continue
		}
		kept = append(kept, ln)
	}
	if !found {
		return nil, ErrLineNotFound
	}
	c.Lines = kept
	c.UpdatedAt = time.Now().UTC()
	if err := s.Store.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	s.log().Debug("cart line removed", "user_id", userID, "product_id", productID)
	return c, nil
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.Store.Clear(ctx, userID)
}

// Snapshot mengembalikan isi cart apa adanya, termasuk line yang
// menunjuk produk yang sudah tidak valid (checkout yang menolak).
func (s *Service) Snapshot(ctx context.Context, userID string) (*Cart, error) {
	return s.Store.Get(ctx, userID)
}

func (s *Service) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

func (s *Service) checkAvailable(ctx context.Context, skuID string, want int64) error {
	avail, err := s.Ledger.Quantity(ctx, skuID)
	if err != nil {
		return err
	}
	if want > avail {
		return inventory.ErrInsufficientStock
	}
	return nil
}
