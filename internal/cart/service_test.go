package cart

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/ariefcatur/go-storefront.git/internal/catalog"
	"github.com/ariefcatur/go-storefront.git/internal/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T) (*Service, *catalog.MemCatalog, *inventory.MemLedger) {
	t.Helper()
	cat := catalog.NewMemCatalog()
	led := inventory.NewMemLedger()
	svc := &Service{
		Store:   NewMemStore(),
		Catalog: cat,
		Ledger:  led,
	}
	return svc, cat, led
}

func seed(t *testing.T, cat *catalog.MemCatalog, led *inventory.MemLedger, p catalog.Product, qty int64) {
	t.Helper()
	cat.Put(p)
	require.NoError(t, led.Put(context.Background(), inventory.Record{SKUID: p.SKUID, Quantity: qty}))
}

func TestAddLine(t *testing.T) {
	ctx := context.Background()
	svc, cat, led := newFixture(t)
	seed(t, cat, led, catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, SKUID: "sku-1"}, 10)

	c, err := svc.AddLine(ctx, "u1", "p1", 2)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, int64(2), c.Lines[0].Qty)
	assert.Equal(t, int64(1500), c.Lines[0].UnitPriceCents)
	assert.Equal(t, "sku-1", c.Lines[0].SKUID)
}

func TestAddLineMergesQuantity(t *testing.T) {
	ctx := context.Background()
	svc, cat, led := newFixture(t)
	seed(t, cat, led, catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, SKUID: "sku-1"}, 10)

	_, err := svc.AddLine(ctx, "u1", "p1", 2)
	require.NoError(t, err)
	c, err := svc.AddLine(ctx, "u1", "p1", 3)
	require.NoError(t, err)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, int64(5), c.Lines[0].Qty)
}

// Harga di cart adalah snapshot saat AddLine; perubahan harga katalog
// tidak ikut ke-refresh diam-diam.
func TestAddLinePriceSnapshotStable(t *testing.T) {
	ctx := context.Background()
	svc, cat, led := newFixture(t)
	p := catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, SKUID: "sku-1"}
	seed(t, cat, led, p, 10)

	_, err := svc.AddLine(ctx, "u1", "p1", 1)
	require.NoError(t, err)

	p.PriceCents = 9900
	cat.Put(p)

	c, err := svc.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), c.Lines[0].UnitPriceCents)

	// merge qty pun tetap pakai snapshot lama
	c, err = svc.AddLine(ctx, "u1", "p1", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), c.Lines[0].UnitPriceCents)
}

func TestAddLineDiscountApplied(t *testing.T) {
	ctx := context.Background()
	svc, cat, led := newFixture(t)
	seed(t, cat, led, catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, DiscountCents: 500, SKUID: "sku-1"}, 10)

	c, err := svc.AddLine(ctx, "u1", "p1", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), c.Lines[0].UnitPriceCents)
}

func TestAddLineValidation(t *testing.T) {
	ctx := context.Background()
	svc, cat, led := newFixture(t)
	seed(t, cat, led, catalog.Product{ID: "p-off", Name: "Mati", Active: false, PriceCents: 100, SKUID: "sku-off"}, 10)
	seed(t, cat, led, catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, SKUID: "sku-1"}, 3)

	_, err := svc.AddLine(ctx, "u1", "p-off", 1)
	assert.ErrorIs(t, err, ErrProductInactive)

	_, err = svc.AddLine(ctx, "u1", "missing", 1)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = svc.AddLine(ctx, "u1", "p1", 4)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	_, err = svc.AddLine(ctx, "u1", "p1", 0)
	assert.ErrorIs(t, err, ErrInvalidQty)
}

// Qty yang sudah di cart ikut dihitung saat cek ketersediaan.
func TestAddLineCountsExistingCartQty(t *testing.T) {
	ctx := context.Background()
	svc, cat, led := newFixture(t)
	seed(t, cat, led, catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, SKUID: "sku-1"}, 5)

	_, err := svc.AddLine(ctx, "u1", "p1", 3)
	require.NoError(t, err)

	_, err = svc.AddLine(ctx, "u1", "p1", 3)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
}

// AddLine cek stok tapi tidak memotong: ledger tidak berubah.
func TestAddLineDoesNotReserve(t *testing.T) {
	ctx := context.Background()
	svc, cat, led := newFixture(t)
	seed(t, cat, led, catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, SKUID: "sku-1"}, 5)

	_, err := svc.AddLine(ctx, "u1", "p1", 5)
	require.NoError(t, err)

	qty, err := led.Quantity(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), qty)
}

func TestUpdateLineQuantity(t *testing.T) {
	ctx := context.Background()
	svc, cat, led := newFixture(t)
	seed(t, cat, led, catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, SKUID: "sku-1"}, 5)

	_, err := svc.AddLine(ctx, "u1", "p1", 1)
	require.NoError(t, err)

	c, err := svc.UpdateLineQuantity(ctx, "u1", "p1", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), c.Lines[0].Qty)

	_, err = svc.UpdateLineQuantity(ctx, "u1", "p1", 6)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	_, err = svc.UpdateLineQuantity(ctx, "u1", "missing", 1)
	assert.ErrorIs(t, err, ErrLineNotFound)

	_, err = svc.UpdateLineQuantity(ctx, "u1", "p1", 0)
	assert.ErrorIs(t, err, ErrInvalidQty)
}

func TestRemoveLineAndClear(t *testing.T) {
	ctx := context.Background()
	svc, cat, led := newFixture(t)
	seed(t, cat, led, catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, SKUID: "sku-1"}, 5)
	seed(t, cat, led, catalog.Product{ID: "p2", Name: "Teh", Active: true, PriceCents: 900, SKUID: "sku-2"}, 5)

	_, err := svc.AddLine(ctx, "u1", "p1", 1)
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, "u1", "p2", 1)
	require.NoError(t, err)

	c, err := svc.RemoveLine(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, "p2", c.Lines[0].ProductID)

	_, err = svc.RemoveLine(ctx, "u1", "p1")
	assert.ErrorIs(t, err, ErrLineNotFound)

	require.NoError(t, svc.Clear(ctx, "u1"))
	c, err = svc.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, c.Lines)
}

// Line boleh menunjuk produk yang keburu dinonaktifkan; Snapshot tetap
// mengembalikannya apa adanya.
func TestSnapshotToleratesDeactivatedProduct(t *testing.T) {
	ctx := context.Background()
	svc, cat, led := newFixture(t)
	p := catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, SKUID: "sku-1"}
	seed(t, cat, led, p, 5)

	_, err := svc.AddLine(ctx, "u1", "p1", 1)
	require.NoError(t, err)

	p.Active = false
	cat.Put(p)

	c, err := svc.Snapshot(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
}

// Mutasi cart tercatat di logger yang dipasang, bukan slog.Default.
func TestMutationsLogged(t *testing.T) {
	ctx := context.Background()
	svc, cat, led := newFixture(t)
	var buf bytes.Buffer
	svc.Log = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	seed(t, cat, led, catalog.Product{ID: "p1", Name: "Kopi", Active: true, PriceCents: 1500, SKUID: "sku-1"}, 10)

	_, err := svc.AddLine(ctx, "u1", "p1", 2)
	require.NoError(t, err)
	_, err = svc.UpdateLineQuantity(ctx, "u1", "p1", 3)
	require.NoError(t, err)
	_, err = svc.RemoveLine(ctx, "u1", "p1")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "cart line added")
	assert.Contains(t, out, "cart line updated")
	assert.Contains(t, out, "cart line removed")
}

func TestSnapshotLazyCart(t *testing.T) {
	svc, _, _ := newFixture(t)
	c, err := svc.Snapshot(context.Background(), "fresh-user")
	require.NoError(t, err)
	assert.Equal(t, "fresh-user", c.UserID)
	assert.Empty(t, c.Lines)
}
