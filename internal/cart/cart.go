package cart

import (
	"context"
	"errors"
	"time"
)

var (
	ErrProductInactive = errors.New("product inactive")
	ErrLineNotFound    = errors.New("cart line not found")
	ErrInvalidQty      = errors.New("quantity must be at least 1")
)

// Line menyimpan snapshot harga saat AddLine. Harga tidak pernah
// di-refresh diam-diam; user harus re-add untuk ambil harga baru.
type Line struct {
	ProductID      string    `json:"product_id"`
	SKUID          string    `json:"sku_id"`
	Name           string    `json:"name"`
	Qty            int64     `json:"qty"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	AddedAt        time.Time `json:"added_at"`
}

// Cart dimiliki 1:1 oleh satu user. Line boleh menunjuk produk yang
// sudah dinonaktifkan/dihapus; validasi akhir terjadi di checkout.
type Cart struct {
	UserID    string    `json:"user_id"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Cart) line(productID string) *Line {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}

// Store: cart dibuat lazy saat akses pertama (Get tidak pernah
// ErrNotFound untuk user yang belum punya cart).
type Store interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Clear(ctx context.Context, userID string) error
}
