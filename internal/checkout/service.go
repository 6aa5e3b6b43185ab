package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ariefcatur/go-storefront.git/internal/cart"
	"github.com/ariefcatur/go-storefront.git/internal/catalog"
	"github.com/ariefcatur/go-storefront.git/internal/inventory"
	"github.com/ariefcatur/go-storefront.git/internal/orders"
	"github.com/ariefcatur/go-storefront.git/internal/redisx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrEmptyCart          = errors.New("empty cart")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrNoInventoryRecord  = errors.New("no inventory record")
	ErrPersistence        = errors.New("persistence failure")
)

// ItemInput: item eksplisit dari request. Harga dipercaya apa adanya
// (snapshot klien), tidak di-lookup ulang ke katalog.
type ItemInput struct {
	ProductID      string `json:"product_id"`
	Qty            int64  `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type Request struct {
	UserID          string
	Items           []ItemInput // kalau terisi, menang atas isi cart
	ShippingAddress string
	IdempotencyKey  string // opsional; checkout ulang dengan key sama tidak double-decrement
}

// Service adalah jembatan Cart/Order -> Inventory Ledger: satu-satunya
// tempat yang memotong dan mengembalikan stok.
type Service struct {
	Cart    *cart.Service
	Catalog catalog.Catalog
	Ledger  inventory.Ledger
	Orders  orders.Store
	Redis   *redis.Client // opsional, fast path idempotency + cache status
	Events  *orders.Emitter
	Log     *slog.Logger
}

type resolvedLine struct {
	orders.Line
	fromCart bool
}

// Checkout: validasi semua line dulu (tanpa efek), lalu decrement per
// SKU urut naik. Satu line gagal = seluruh checkout gagal, dan semua
// decrement yang sudah jalan dikompensasi sebelum return.
func (s *Service) Checkout(ctx context.Context, req Request) (*orders.Order, error) {
	if req.IdempotencyKey != "" {
		// fast path: order_id-nya masih di Redis, tidak perlu scan index
		if id := s.idemCached(ctx, req); id != "" {
			if o, err := s.Orders.Get(ctx, id); err == nil && o.UserID == req.UserID {
				s.log().Info("checkout replay via idempotency cache", "order_id", o.ID, "user_id", req.UserID)
				return o, nil
			}
		}
		if o, err := s.Orders.GetByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey); err == nil {
			s.log().Info("checkout replay via idempotency key", "order_id", o.ID, "user_id", req.UserID)
			return o, nil
		} else if !errors.Is(err, orders.ErrNotFound) {
			return nil, err
		}
	}

	lines, fromCart, err := s.resolveLines(ctx, req)
	if err != nil {
		return nil, err
	}

	// urutan stabil per SKU: dua checkout yang menyentuh himpunan SKU
	// sama tidak saling deadlock
	sort.Slice(lines, func(i, j int) bool { return lines[i].SKUID < lines[j].SKUID })

	if err := s.validateLines(ctx, lines); err != nil {
		return nil, err
	}

	applied, err := s.reserve(ctx, lines)
	if err != nil {
		s.rollback(ctx, applied)
		return nil, err
	}

	now := time.Now().UTC()
	o := &orders.Order{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		Lines:           toOrderLines(lines),
		TotalCents:      total(lines),
		Status:          orders.StatusPending,
		PaymentStatus:   orders.PaymentPending,
		ShippingAddress: req.ShippingAddress,
		IdempotencyKey:  req.IdempotencyKey,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.Orders.Create(ctx, o); err != nil {
		// stok sudah terpotong tanpa order: kompensasi wajib jalan
		s.log().Error("order persist failed after stock decrement, compensating",
			"order_id", o.ID, "err", err)
		s.rollback(ctx, applied)
		return nil, fmt.Errorf("%w: persist order %s: %v", ErrPersistence, o.ID, err)
	}

	if fromCart {
		if err := s.Cart.Clear(ctx, req.UserID); err != nil {
			// order sudah jadi; cart nyangkut bukan alasan gagal
			s.log().Error("clear cart after checkout", "user_id", req.UserID, "err", err)
		}
	}

	s.cacheAfterCheckout(ctx, o)
	s.Events.OrderPlaced(o)
	s.log().Info("order placed", "order_id", o.ID, "user_id", o.UserID,
		"lines", len(o.Lines), "total_cents", o.TotalCents)
	return o, nil
}

func (s *Service) resolveLines(ctx context.Context, req Request) ([]resolvedLine, bool, error) {
	if len(req.Items) > 0 {
		out := make([]resolvedLine, 0, len(req.Items))
		for _, it := range req.Items {
			if it.Qty < 1 {
				return nil, false, cart.ErrInvalidQty
			}
			p, err := s.Catalog.GetProduct(ctx, it.ProductID)
			if err != nil {
				if errors.Is(err, catalog.ErrNotFound) {
					return nil, false, fmt.Errorf("%w: product %s", ErrProductUnavailable, it.ProductID)
				}
				return nil, false, err
			}
			out = append(out, resolvedLine{Line: orders.Line{
				ProductID:      p.ID,
				SKUID:          p.SKUID,
				Name:           p.Name,
				Qty:            it.Qty,
				UnitPriceCents: it.UnitPriceCents,
			}})
		}
		return out, false, nil
	}

	c, err := s.Cart.Snapshot(ctx, req.UserID)
	if err != nil {
		return nil, false, err
	}
	if len(c.Lines) == 0 {
		return nil, false, ErrEmptyCart
	}
	out := make([]resolvedLine, 0, len(c.Lines))
	for _, ln := range c.Lines {
		out = append(out, resolvedLine{fromCart: true, Line: orders.Line{
			ProductID:      ln.ProductID,
			SKUID:          ln.SKUID,
			Name:           ln.Name,
			Qty:            ln.Qty,
			UnitPriceCents: ln.UnitPriceCents, // snapshot harga dari cart, bukan harga sekarang
		}})
	}
	return out, true, nil
}

// validateLines: gagal di sini = belum ada efek apa pun.
func (s *Service) validateLines(ctx context.Context, lines []resolvedLine) error {
	for _, ln := range lines {
		p, err := s.Catalog.GetProduct(ctx, ln.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return fmt.Errorf("%w: product %s", ErrProductUnavailable, ln.ProductID)
			}
			return err
		}
		if !p.Active {
			return fmt.Errorf("%w: product %s", ErrProductUnavailable, ln.ProductID)
		}
		if _, err := s.Ledger.Quantity(ctx, ln.SKUID); err != nil {
			if errors.Is(err, inventory.ErrNotFound) {
				return fmt.Errorf("%w: sku %s", ErrNoInventoryRecord, ln.SKUID)
			}
			return err
		}
	}
	return nil
}

// reserve memotong stok line per line; mengembalikan line yang sudah
// kebagian potongan supaya caller bisa rollback.
func (s *Service) reserve(ctx context.Context, lines []resolvedLine) (applied []resolvedLine, err error) {
	for _, ln := range lines {
		if _, err := s.Ledger.AdjustQuantity(ctx, ln.SKUID, -ln.Qty); err != nil {
			return applied, err
		}
		applied = append(applied, ln)
	}
	return applied, nil
}

// rollback: kompensasi decrement yang sudah jalan. Dipakai juga saat
// request di-abort di tengah jalan, makanya context-nya dilepas dari
// cancel si caller.
func (s *Service) rollback(ctx context.Context, applied []resolvedLine) {
	ctx = context.WithoutCancel(ctx)
	for _, ln := range applied {
		if _, err := s.Ledger.AdjustQuantity(ctx, ln.SKUID, ln.Qty); err != nil {
			s.log().Error("FATAL: rollback restore failed, manual reconciliation required",
				"sku_id", ln.SKUID, "qty", ln.Qty, "err", err)
		}
	}
}

// RestoreForCancellation mengembalikan stok seluruh line order.
// Dipanggil tepat sekali per order oleh state machine; guard-nya ada
// di transisi status, bukan di sini.
func (s *Service) RestoreForCancellation(ctx context.Context, o *orders.Order) error {
	lines := append([]orders.Line(nil), o.Lines...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].SKUID < lines[j].SKUID })

	ctx = context.WithoutCancel(ctx)
	var firstErr error
	for _, ln := range lines {
		if _, err := s.Ledger.AdjustQuantity(ctx, ln.SKUID, ln.Qty); err != nil {
			// jangan berhenti di tengah: line lain tetap dikembalikan
			s.log().Error("restore line failed", "order_id", o.ID, "sku_id", ln.SKUID, "err", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("restore sku %s: %w", ln.SKUID, err)
			}
		}
	}
	if firstErr != nil {
		return firstErr
	}
	s.Events.StockRestoredFor(o)
	return nil
}

// idemCached: "" berarti miss atau Redis lagi tidak sehat; dua-duanya
// jatuh ke lookup store, jadi cache tidak pernah jadi sumber kebenaran.
func (s *Service) idemCached(ctx context.Context, req Request) string {
	if s.Redis == nil {
		return ""
	}
	key := fmt.Sprintf(redisx.KeyIdemCheckout, req.UserID, req.IdempotencyKey)
	id, err := s.Redis.Get(ctx, key).Result()
	if err != nil {
		return ""
	}
	return id
}

func (s *Service) cacheAfterCheckout(ctx context.Context, o *orders.Order) {
	if s.Redis == nil {
		return
	}
	if o.IdempotencyKey != "" {
		key := fmt.Sprintf(redisx.KeyIdemCheckout, o.UserID, o.IdempotencyKey)
		_ = s.Redis.Set(ctx, key, o.ID, redisx.TTLIdempotency).Err()
	}
	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	_ = s.Redis.Set(ctx, statusKey, `{"status":"pending","payment_status":"pending"}`, redisx.TTLStatusCache).Err()
}

func toOrderLines(lines []resolvedLine) []orders.Line {
	out := make([]orders.Line, 0, len(lines))
	for _, ln := range lines {
		out = append(out, ln.Line)
	}
	return out
}

func total(lines []resolvedLine) int64 {
	var t int64
	for _, ln := range lines {
		t += ln.UnitPriceCents * ln.Qty
	}
	return t
}

func (s *Service) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
