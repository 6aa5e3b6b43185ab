package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgCatalog struct{ DB *pgxpool.Pool }

func (c *PgCatalog) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := c.DB.QueryRow(ctx, `
		SELECT id, name, active, price_cents, discount_cents, sku_id
		FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Active, &p.PriceCents, &p.DiscountCents, &p.SKUID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}
