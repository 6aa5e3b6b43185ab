package catalog

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("product not found")

// Product adalah proyeksi read-only dari katalog; engine tidak pernah
// menulis ke sini.
type Product struct {
	ID            string
	Name          string
	Active        bool
	PriceCents    int64
	DiscountCents int64
	SKUID         string // referensi ke inventory record
}

// UnitPriceCents: harga efektif yang di-snapshot cart saat AddLine.
func (p Product) UnitPriceCents() int64 {
	price := p.PriceCents - p.DiscountCents
	if price < 0 {
		return 0
	}
	return price
}

type Catalog interface {
	GetProduct(ctx context.Context, id string) (Product, error)
}
