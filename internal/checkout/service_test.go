package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-storefront.git/internal/cart"
	"github.com/ariefcatur/go-storefront.git/internal/catalog"
	"github.com/ariefcatur/go-storefront.git/internal/inventory"
	"github.com/ariefcatur/go-storefront.git/internal/orders"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type fixture struct {
	svc    *Service
	cat    *catalog.MemCatalog
	ledger *inventory.MemLedger
	carts  *cart.Service
	orders orders.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat := catalog.NewMemCatalog()
	led := inventory.NewMemLedger()
	cartSvc := &cart.Service{Store: cart.NewMemStore(), Catalog: cat, Ledger: led}
	orderStore := orders.NewMemStore()
	return &fixture{
		svc: &Service{
			Cart:    cartSvc,
			Catalog: cat,
			Ledger:  led,
			Orders:  orderStore,
		},
		cat:    cat,
		ledger: led,
		carts:  cartSvc,
		orders: orderStore,
	}
}

func (f *fixture) seed(t *testing.T, p catalog.Product, qty int64) {
	t.Helper()
	f.cat.Put(p)
	require.NoError(t, f.ledger.Put(context.Background(), inventory.Record{SKUID: p.SKUID, Quantity: qty}))
}

func (f *fixture) qty(t *testing.T, sku string) int64 {
	t.Helper()
	q, err := f.ledger.Quantity(context.Background(), sku)
	require.NoError(t, err)
	return q
}

func TestCheckoutFromCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, SKUID: "sku-1"}, 10)
	f.seed(t, catalog.Product{ID: "p2", Name: "Teh", Active: true, PriceCents: 900, SKUID: "sku-2"}, 10)

	_, err := f.carts.AddLine(ctx, "u1", "p1", 2)
	require.NoError(t, err)
	_, err = f.carts.AddLine(ctx, "u1", "p2", 3)
	require.NoError(t, err)

	o, err := f.svc.Checkout(ctx, Request{UserID: "u1", ShippingAddress: "Jl. Merdeka 1"})
	require.NoError(t, err)

	assert.Equal(t, orders.StatusPending, o.Status)
	assert.Equal(t, orders.PaymentPending, o.PaymentStatus)
	assert.Equal(t, int64(2*1500+3*900), o.TotalCents)
	require.Len(t, o.Lines, 2)
	// line diurutkan stabil per SKU
	assert.Equal(t, "sku-1", o.Lines[0].SKUID)
	assert.Equal(t, "sku-2", o.Lines[1].SKUID)

	assert.Equal(t, int64(8), f.qty(t, "sku-1"))
	assert.Equal(t, int64(7), f.qty(t, "sku-2"))

	// cart dikosongkan setelah order jadi
	c, err := f.carts.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, c.Lines)

	// order sampai di store
	got, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.TotalCents, got.TotalCents)
}

// Total dihitung dari snapshot harga cart, bukan harga katalog sekarang.
func TestCheckoutUsesPriceSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, SKUID: "sku-1"}
	f.seed(t, p, 10)

	_, err := f.carts.AddLine(ctx, "u1", "p1", 2)
	require.NoError(t, err)

	p.PriceCents = 9900
	f.cat.Put(p)

	o, err := f.svc.Checkout(ctx, Request{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2*1500), o.TotalCents)
}

func TestCheckoutExplicitItemsTakePrecedence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, SKUID: "sku-1"}, 10)
	f.seed(t, catalog.Product{ID: "p2", Name: "Teh", Active: true, PriceCents: 900, SKUID: "sku-2"}, 10)

	_, err := f.carts.AddLine(ctx, "u1", "p1", 5)
	require.NoError(t, err)

	o, err := f.svc.Checkout(ctx, Request{
		UserID: "u1",
		Items:  []ItemInput{{ProductID: "p2", Qty: 1, UnitPriceCents: 800}},
	})
	require.NoError(t, err)

	require.Len(t, o.Lines, 1)
	assert.Equal(t, "p2", o.Lines[0].ProductID)
	assert.Equal(t, int64(800), o.TotalCents) // harga dari request, bukan katalog

	// cart tidak disentuh, stok cart item tidak terpotong
	c, err := f.carts.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, c.Lines, 1)
	assert.Equal(t, int64(10), f.qty(t, "sku-1"))
	assert.Equal(t, int64(9), f.qty(t, "sku-2"))
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Checkout(context.Background(), Request{UserID: "u1"})
	require.ErrorIs(t, err, ErrEmptyCart)
}

// Satu line kurang stok = seluruh checkout gagal dan line yang sudah
// terpotong dikembalikan; tidak ada order yang dibuat.
func TestCheckoutAllOrNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, SKUID: "sku-1"}, 10)
	f.seed(t, catalog.Product{ID: "p2", Name: "Teh", Active: true, PriceCents: 900, SKUID: "sku-2"}, 5)

	o, err := f.svc.Checkout(ctx, Request{
		UserID: "u1",
		Items: []ItemInput{
			{ProductID: "p1", Qty: 2, UnitPriceCents: 1500},
			{ProductID: "p2", Qty: 999, UnitPriceCents: 900},
		},
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Nil(t, o)

	// rollback: sku-1 balik ke nilai pre-checkout
	assert.Equal(t, int64(10), f.qty(t, "sku-1"))
	assert.Equal(t, int64(5), f.qty(t, "sku-2"))

	all, err := f.orders.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

// Dua checkout konkuren rebutan unit terakhir: tepat satu order jadi,
// stok akhir 0, tidak pernah oversell.
func TestCheckoutLastUnitRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, catalog.Product{ID: "p42", Name: "Limited", Active: true, PriceCents: 5000, SKUID: "sku-42"}, 1)

	items := []ItemInput{{ProductID: "p42", Qty: 1, UnitPriceCents: 5000}}
	results := make([]error, 2)
	var g errgroup.Group
	for i := 0; i < 2; i++ {
		i := i
		user := []string{"u1", "u2"}[i]
		g.Go(func() error {
			_, err := f.svc.Checkout(ctx, Request{UserID: user, Items: items})
			results[i] = err
			return nil
		})
	}
	require.NoError(t, g.Wait())

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, int64(0), f.qty(t, "sku-42"))

	all, err := f.orders.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(1), all[0].Lines[0].Qty)
}

// N checkout konkuren untuk stok N-1: total yang ter-commit tidak
// melebihi stok awal.
func TestCheckoutNoOversell(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	const stock = 5
	f.seed(t, catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1000, SKUID: "sku-1"}, stock)

	var g errgroup.Group
	for i := 0; i < 12; i++ {
		g.Go(func() error {
			_, err := f.svc.Checkout(ctx, Request{
				UserID: "u1",
				Items:  []ItemInput{{ProductID: "p1", Qty: 1, UnitPriceCents: 1000}},
			})
			if err != nil && !errors.Is(err, inventory.ErrInsufficientStock) {
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	all, err := f.orders.ListAll(ctx)
	require.NoError(t, err)

	var committed int64
	for _, o := range all {
		for _, ln := range o.Lines {
			committed += ln.Qty
		}
	}
	assert.Equal(t, int64(stock), committed)
	assert.Equal(t, int64(0), f.qty(t, "sku-1"))
}

func TestCheckoutProductDeactivatedAfterAdd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, SKUID: "sku-1"}
	f.seed(t, p, 10)

	_, err := f.carts.AddLine(ctx, "u1", "p1", 1)
	require.NoError(t, err)

	p.Active = false
	f.cat.Put(p)

	_, err = f.svc.Checkout(ctx, Request{UserID: "u1"})
	require.ErrorIs(t, err, ErrProductUnavailable)
	assert.Equal(t, int64(10), f.qty(t, "sku-1"))
}

func TestCheckoutNoInventoryRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	// produk ada di katalog tapi tidak punya inventory record
	f.cat.Put(catalog.Product{ID: "p1", Name: "Hantu", Active: true, PriceCents: 100, SKUID: "sku-ghost"})

	_, err := f.svc.Checkout(ctx, Request{
		UserID: "u1",
		Items:  []ItemInput{{ProductID: "p1", Qty: 1, UnitPriceCents: 100}},
	})
	require.ErrorIs(t, err, ErrNoInventoryRecord)
}

func TestCheckoutIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, SKUID: "sku-1"}, 10)

	req := Request{
		UserID:         "u1",
		Items:          []ItemInput{{ProductID: "p1", Qty: 2, UnitPriceCents: 1500}},
		IdempotencyKey: "req-abc",
	}

	first, err := f.svc.Checkout(ctx, req)
	require.NoError(t, err)
	second, err := f.svc.Checkout(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	// replay tidak boleh double-decrement
	assert.Equal(t, int64(8), f.qty(t, "sku-1"))
}

type countingIdemStore struct {
	orders.Store
	idemLookups int
}

func (s *countingIdemStore) GetByIdempotencyKey(ctx context.Context, userID, key string) (*orders.Order, error) {
	s.idemLookups++
	return s.Store.GetByIdempotencyKey(ctx, userID, key)
}

// Replay dengan cache Redis hangat tidak menyentuh index idempotency
// di store sama sekali.
func TestCheckoutIdempotencyFastPath(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := newFixture(t)
	cs := &countingIdemStore{Store: f.orders}
	f.svc.Orders = cs
	f.svc.Redis = rdb
	f.seed(t, catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, SKUID: "sku-1"}, 10)

	req := Request{
		UserID:         "u1",
		Items:          []ItemInput{{ProductID: "p1", Qty: 2, UnitPriceCents: 1500}},
		IdempotencyKey: "req-abc",
	}

	first, err := f.svc.Checkout(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, cs.idemLookups) // miss: jatuh ke store

	second, err := f.svc.Checkout(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, cs.idemLookups) // hit: order_id dari Redis
	assert.Equal(t, int64(8), f.qty(t, "sku-1"))
}

// Cache punya user lain / key basi tidak boleh membocorkan order orang:
// fast path memverifikasi ownership lalu jatuh ke jalur normal.
func TestCheckoutIdemCacheWrongOwnerFallsThrough(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := newFixture(t)
	f.svc.Redis = rdb
	f.seed(t, catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, SKUID: "sku-1"}, 10)

	victim, err := f.svc.Checkout(ctx, Request{
		UserID: "u1",
		Items:  []ItemInput{{ProductID: "p1", Qty: 1, UnitPriceCents: 1500}},
	})
	require.NoError(t, err)

	// cache korup: key milik u2 menunjuk order milik u1
	require.NoError(t, mr.Set(fmt.Sprintf("idem:checkout:%s:%s", "u2", "req-x"), victim.ID))

	o, err := f.svc.Checkout(ctx, Request{
		UserID:         "u2",
		Items:          []ItemInput{{ProductID: "p1", Qty: 1, UnitPriceCents: 1500}},
		IdempotencyKey: "req-x",
	})
	require.NoError(t, err)
	assert.NotEqual(t, victim.ID, o.ID)
	assert.Equal(t, "u2", o.UserID)
}

// Dua checkout simultan dengan idempotency key sama: maksimal satu
// order, stok terpotong sekali; yang kalah rollback dan lapor
// persistence failure (atau dapat replay kalau telat start).
func TestCheckoutConcurrentSameIdemKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, SKUID: "sku-1"}, 10)

	req := Request{
		UserID:         "u1",
		Items:          []ItemInput{{ProductID: "p1", Qty: 2, UnitPriceCents: 1500}},
		IdempotencyKey: "req-race",
	}

	var g errgroup.Group
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			_, err := f.svc.Checkout(ctx, req)
			if err != nil && !errors.Is(err, ErrPersistence) {
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	all, err := f.orders.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(8), f.qty(t, "sku-1"))
}

type failingOrderStore struct {
	orders.Store
}

func (s *failingOrderStore) Create(context.Context, *orders.Order) error {
	return errors.New("disk on fire")
}

// Persist gagal setelah stok terpotong: kompensasi wajib mengembalikan
// stok dan error-nya ditandai sebagai persistence failure.
func TestCheckoutPersistFailureCompensates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, SKUID: "sku-1"}, 10)
	f.svc.Orders = &failingOrderStore{Store: f.orders}

	_, err := f.svc.Checkout(ctx, Request{
		UserID: "u1",
		Items:  []ItemInput{{ProductID: "p1", Qty: 4, UnitPriceCents: 1500}},
	})
	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, int64(10), f.qty(t, "sku-1"))
}

func TestRestoreForCancellation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, catalog.Product{ID: "p7", Name: "Kopi", Active: true, PriceCents: 1000, SKUID: "sku-7"}, 10)

	o, err := f.svc.Checkout(ctx, Request{
		UserID: "u1",
		Items:  []ItemInput{{ProductID: "p7", Qty: 3, UnitPriceCents: 1000}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), f.qty(t, "sku-7"))

	require.NoError(t, f.svc.RestoreForCancellation(ctx, o))
	assert.Equal(t, int64(10), f.qty(t, "sku-7"))
}
