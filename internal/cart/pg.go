package cart

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct{ DB *pgxpool.Pool }

func (s *PgStore) Get(ctx context.Context, userID string) (*Cart, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT product_id, sku_id, name, qty, unit_price_cents, added_at
		FROM cart_lines WHERE user_id=$1 ORDER BY added_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	c := &Cart{UserID: userID}
	for rows.Next() {
		var ln Line
		if err := rows.Scan(&ln.ProductID, &ln.SKUID, &ln.Name, &ln.Qty, &ln.UnitPriceCents, &ln.AddedAt); err != nil {
			return nil, err
		}
		c.Lines = append(c.Lines, ln)
	}
	return c, rows.Err()
}

// Save menulis ulang seluruh cart dalam satu transaksi. Cart kecil dan
// single-owner, delete+insert lebih sederhana daripada diff per line.
func (s *PgStore) Save(ctx context.Context, c *Cart) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE user_id=$1`, c.UserID); err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, ln := range c.Lines {
		addedAt := ln.AddedAt
		if addedAt.IsZero() {
			addedAt = now
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO cart_lines (user_id, product_id, sku_id, name, qty, unit_price_cents, added_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			c.UserID, ln.ProductID, ln.SKUID, ln.Name, ln.Qty, ln.UnitPriceCents, addedAt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PgStore) Clear(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, `DELETE FROM cart_lines WHERE user_id=$1`, userID)
	return err
}
