package paymentsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	kafkax "github.com/ariefcatur/go-storefront.git/internal/kafka"
	"github.com/ariefcatur/go-storefront.git/internal/orders"
	"github.com/ariefcatur/go-storefront.git/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// Service menelan event payment.status.changed dari subsistem
// pembayaran dan menerapkannya ke order lewat state machine. Engine
// tidak pernah memanggil payment provider sendiri.
type Service struct {
	Orders      *orders.Service
	Redis       *redis.Client
	ServiceName string
	Log         *slog.Logger
}

// HandlePaymentStatusChanged dipasang sebagai handler consumer.
func (s *Service) HandlePaymentStatusChanged(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventPaymentStatusChanged {
		return nil // ignore
	}

	// dedup via Redis (pakai event_id); event ulang = no-op
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if s.Redis != nil {
		if seen, err := redisx.Exists(ctx, s.Redis, dkey); err == nil && seen {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[orders.PaymentStatusChangedPayload](env.Payload)
	if err != nil {
		return err
	}

	_, err = s.Orders.SetPaymentStatus(ctx, p.OrderID, p.Status)
	switch {
	case err == nil:
		s.markSeen(ctx, dkey)
		return nil
	case errors.Is(err, orders.ErrNotFound):
		// order hilang (mis. sudah di-purge); commit saja, retry tidak
		// akan menolong
		s.log().Warn("payment event for unknown order", "order_id", p.OrderID)
		s.markSeen(ctx, dkey)
		return nil
	case errors.Is(err, orders.ErrIllegalTransition):
		// event telat (mis. refund masuk setelah failed): catat, commit
		s.log().Warn("payment event ignored", "order_id", p.OrderID,
			"status", p.Status, "err", err)
		s.markSeen(ctx, dkey)
		return nil
	default:
		return err // offset tidak di-commit, event diantar ulang
	}
}

// markSeen HARUS dipanggil setelah event selesai diproses. Kalau key
// ditulis sebelum apply, error transien + redelivery = event hilang
// permanen: delivery kedua kena dedup padahal yang pertama gagal.
func (s *Service) markSeen(ctx context.Context, key string) {
	if s.Redis == nil {
		return
	}
	if _, err := redisx.SetNXSeen(ctx, s.Redis, key, redisx.TTLDedup); err != nil {
		s.log().Warn("mark event seen", "key", key, "err", err)
	}
}

func (s *Service) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
