package inventory

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("inventory record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Record struct {
	SKUID        string
	Quantity     int64
	ReorderLevel int64
}

// Ledger memiliki quantity per SKU. Semua mutasi lewat AdjustQuantity;
// tidak ada path lain yang boleh menulis quantity.
type Ledger interface {
	// AdjustQuantity menerapkan delta (negatif = konsumsi, positif =
	// restore) secara atomik per SKU dan mengembalikan quantity baru.
	// ErrInsufficientStock kalau delta negatif bikin quantity < 0;
	// record tidak berubah.
	AdjustQuantity(ctx context.Context, skuID string, delta int64) (int64, error)

	// Quantity membaca stok saat ini (dipakai validasi cart, bukan reservasi).
	Quantity(ctx context.Context, skuID string) (int64, error)

	// Put upsert record; dipakai administrasi inventory & seeding.
	Put(ctx context.Context, rec Record) error
}
