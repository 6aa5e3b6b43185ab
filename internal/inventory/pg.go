package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgLedger struct{ DB *pgxpool.Pool }

// AdjustQuantity: satu statement kondisional, bukan read-check-then-write.
// Dua checkout rebutan unit terakhir diserialisasi oleh row lock UPDATE,
// dan guard `quantity + delta >= 0` memastikan yang kalah gagal bersih.
func (l *PgLedger) AdjustQuantity(ctx context.Context, skuID string, delta int64) (int64, error) {
	var qty int64
	err := l.DB.QueryRow(ctx, `
		UPDATE inventory
		SET quantity = quantity + $2, updated_at = now()
		WHERE sku_id = $1 AND quantity + $2 >= 0
		RETURNING quantity`, skuID, delta).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		// bedakan SKU hilang vs stok kurang
		var exists bool
		if err2 := l.DB.QueryRow(ctx, `SELECT true FROM inventory WHERE sku_id=$1`, skuID).Scan(&exists); err2 != nil {
			if errors.Is(err2, pgx.ErrNoRows) {
				return 0, ErrNotFound
			}
			return 0, err2
		}
		return 0, ErrInsufficientStock
	}
	if err != nil {
		return 0, err
	}
	return qty, nil
}

func (l *PgLedger) Quantity(ctx context.Context, skuID string) (int64, error) {
	var qty int64
	err := l.DB.QueryRow(ctx, `SELECT quantity FROM inventory WHERE sku_id=$1`, skuID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return qty, nil
}

func (l *PgLedger) Put(ctx context.Context, rec Record) error {
	_, err := l.DB.Exec(ctx, `
		INSERT INTO inventory (sku_id, quantity, reorder_level, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (sku_id) DO UPDATE
		SET quantity = EXCLUDED.quantity, reorder_level = EXCLUDED.reorder_level, updated_at = now()`,
		rec.SKUID, rec.Quantity, rec.ReorderLevel)
	return err
}
