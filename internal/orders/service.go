package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// InventoryRestorer diimplementasikan oleh checkout.Service; dipanggil
// tepat satu kali per transisi masuk ke cancelled. Idempotensi restore
// dijaga oleh transisi status (CAS), bukan oleh restorer-nya.
type InventoryRestorer interface {
	RestoreForCancellation(ctx context.Context, o *Order) error
}

type Service struct {
	Store    Store
	Restorer InventoryRestorer
	Events   *Emitter
	Log      *slog.Logger
}

const (
	maxRetries   = 3
	retryBackoff = 10 * time.Millisecond
)

// SetStatus: jalur admin. Satu-satunya penolakan keras adalah keluar
// dari delivered; sisanya longgar, termasuk cancelled langsung dari
// shipped. delivered->delivered dan cancelled->cancelled adalah no-op.
func (s *Service) SetStatus(ctx context.Context, id string, next Status) (*Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrIllegalTransition, next)
	}

	for attempt := 0; ; attempt++ {
		o, err := s.Store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !CanTransition(o.Status, next) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Status, next)
		}
		if o.Status == next {
			return o, nil // no-op; cancelled->cancelled tidak boleh double restore
		}

		updated, err := s.applyTransition(ctx, o, next)
		if errors.Is(err, ErrConflict) && attempt < maxRetries {
			time.Sleep(retryBackoff << attempt)
			continue
		}
		return updated, err
	}
}

// Cancel: jalur user-facing, lebih ketat dari SetStatus — hanya owner
// atau admin, dan hanya dari pending/processing.
func (s *Service) Cancel(ctx context.Context, id, requesterID, role string) (*Order, error) {
	for attempt := 0; ; attempt++ {
		o, err := s.Store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if o.UserID != requesterID && role != RoleAdmin {
			return nil, ErrForbidden
		}
		if !UserCancellable(o.Status) {
			return nil, fmt.Errorf("%w: status %s", ErrNotCancellable, o.Status)
		}

		updated, err := s.applyTransition(ctx, o, StatusCancelled)
		if errors.Is(err, ErrConflict) && attempt < maxRetries {
			time.Sleep(retryBackoff << attempt)
			continue
		}
		return updated, err
	}
}

// applyTransition melakukan CAS lalu, untuk pemenang transisi masuk
// cancelled, menjalankan kompensasi stok tepat sekali.
func (s *Service) applyTransition(ctx context.Context, o *Order, next Status) (*Order, error) {
	pay := o.PaymentStatus
	refunded := false
	if next == StatusCancelled && pay == PaymentCompleted {
		pay = PaymentRefunded
		refunded = true
	}

	updated, err := s.Store.UpdateStatus(ctx, o.ID, o.Version, next, pay)
	if err != nil {
		return nil, err
	}

	if next == StatusCancelled {
		if err := s.Restorer.RestoreForCancellation(ctx, updated); err != nil {
			// Order sudah cancelled tapi stok belum kembali: butuh
			// intervensi operator, jangan ditelan.
			s.log().Error("FATAL: restore after cancellation failed, manual reconciliation required",
				"order_id", updated.ID, "err", err)
			return updated, fmt.Errorf("restore inventory for order %s: %w", updated.ID, err)
		}
		s.Events.OrderCancelled(updated, refunded)
	}
	s.Events.OrderStatusChanged(updated, o.Status)

	s.log().Info("order status changed",
		"order_id", updated.ID, "from", o.Status, "to", updated.Status,
		"payment_status", updated.PaymentStatus)
	return updated, nil
}

// SetPaymentStatus diberi makan oleh subsistem pembayaran (webhook /
// consumer); engine tidak pernah memanggil payment provider.
func (s *Service) SetPaymentStatus(ctx context.Context, id string, next PaymentStatus) (*Order, error) {
	for attempt := 0; ; attempt++ {
		o, err := s.Store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if o.PaymentStatus == next {
			return o, nil
		}
		if !CanTransitionPayment(o.PaymentStatus, next) {
			return nil, fmt.Errorf("%w: payment %s -> %s", ErrIllegalTransition, o.PaymentStatus, next)
		}

		updated, err := s.Store.UpdateStatus(ctx, o.ID, o.Version, o.Status, next)
		if errors.Is(err, ErrConflict) && attempt < maxRetries {
			time.Sleep(retryBackoff << attempt)
			continue
		}
		if err != nil {
			return nil, err
		}
		s.Events.OrderStatusChanged(updated, o.Status)
		return updated, nil
	}
}

// Status: baca ringan untuk polling. Sengaja tidak pakai ownership
// check — id order adalah UUID dan jawabannya cuma sepasang status,
// supaya cache hit di layer HTTP tidak perlu menyentuh store sama
// sekali.
func (s *Service) Status(ctx context.Context, id string) (Status, PaymentStatus, error) {
	o, err := s.Store.Get(ctx, id)
	if err != nil {
		return "", "", err
	}
	return o.Status, o.PaymentStatus, nil
}

func (s *Service) Get(ctx context.Context, id, requesterID, role string) (*Order, error) {
	o, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != requesterID && role != RoleAdmin {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, requesterID, role string, all bool) ([]*Order, error) {
	if all {
		if role != RoleAdmin {
			return nil, ErrForbidden
		}
		return s.Store.ListAll(ctx)
	}
	return s.Store.ListByUser(ctx, requesterID)
}

func (s *Service) PurgeCancelled(ctx context.Context, role string) (int64, error) {
	if role != RoleAdmin {
		return 0, ErrForbidden
	}
	n, err := s.Store.PurgeCancelled(ctx)
	if err != nil {
		return 0, err
	}
	s.log().Info("purged cancelled orders", "count", n)
	return n, nil
}

func (s *Service) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
