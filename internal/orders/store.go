package orders

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrConflict          = errors.New("order version conflict")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrNotCancellable    = errors.New("order not cancellable")
	ErrForbidden         = errors.New("forbidden")
)

const RoleAdmin = "admin"

// Store: line items immutable setelah Create; satu-satunya mutasi
// adalah UpdateStatus, dan itu pun versioned (CAS) supaya dua transisi
// konkuren tidak dua-duanya menang.
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)

	// GetByIdempotencyKey: ErrNotFound kalau belum ada order dengan key itu.
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*Order, error)

	ListByUser(ctx context.Context, userID string) ([]*Order, error)
	ListAll(ctx context.Context) ([]*Order, error)

	// UpdateStatus menerapkan status+payment_status hanya jika version
	// masih sama (ErrConflict kalau tidak), dan mengembalikan order baru.
	UpdateStatus(ctx context.Context, id string, version int64, status Status, pay PaymentStatus) (*Order, error)

	// PurgeCancelled: maintenance bulk delete order cancelled. Murni
	// cleanup — stok sudah dikembalikan saat cancel, jadi tanpa efek
	// inventory.
	PurgeCancelled(ctx context.Context) (int64, error)
}
