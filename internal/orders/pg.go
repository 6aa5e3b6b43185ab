package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct{ DB *pgxpool.Pool }

func (s *PgStore) Create(ctx context.Context, o *Order) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, total_cents, status, payment_status,
		                    shipping_address, idempotency_key, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),$8,$9,$10)`,
		o.ID, o.UserID, o.TotalCents, o.Status, o.PaymentStatus,
		o.ShippingAddress, o.IdempotencyKey, o.Version, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}

	for _, ln := range o.Lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_lines (order_id, product_id, sku_id, name, qty, unit_price_cents)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			o.ID, ln.ProductID, ln.SKUID, ln.Name, ln.Qty, ln.UnitPriceCents)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PgStore) Get(ctx context.Context, id string) (*Order, error) {
	return s.getOne(ctx, `WHERE id=$1`, id)
}

func (s *PgStore) GetByIdempotencyKey(ctx context.Context, userID, key string) (*Order, error) {
	return s.getOne(ctx, `WHERE user_id=$1 AND idempotency_key=$2`, userID, key)
}

func (s *PgStore) getOne(ctx context.Context, where string, args ...any) (*Order, error) {
	var o Order
	err := s.DB.QueryRow(ctx, `
		SELECT id, user_id, total_cents, status, payment_status,
		       COALESCE(shipping_address,''), COALESCE(idempotency_key,''),
		       version, created_at, updated_at
		FROM orders `+where, args...).
		Scan(&o.ID, &o.UserID, &o.TotalCents, &o.Status, &o.PaymentStatus,
			&o.ShippingAddress, &o.IdempotencyKey, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadLines(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *PgStore) loadLines(ctx context.Context, o *Order) error {
	rows, err := s.DB.Query(ctx, `
		SELECT product_id, sku_id, name, qty, unit_price_cents
		FROM order_lines WHERE order_id=$1 ORDER BY sku_id`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var ln Line
		if err := rows.Scan(&ln.ProductID, &ln.SKUID, &ln.Name, &ln.Qty, &ln.UnitPriceCents); err != nil {
			return err
		}
		o.Lines = append(o.Lines, ln)
	}
	return rows.Err()
}

func (s *PgStore) ListByUser(ctx context.Context, userID string) ([]*Order, error) {
	return s.list(ctx, `WHERE user_id=$1`, userID)
}

func (s *PgStore) ListAll(ctx context.Context) ([]*Order, error) {
	return s.list(ctx, ``)
}

func (s *PgStore) list(ctx context.Context, where string, args ...any) ([]*Order, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, user_id, total_cents, status, payment_status,
		       COALESCE(shipping_address,''), COALESCE(idempotency_key,''),
		       version, created_at, updated_at
		FROM orders `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalCents, &o.Status, &o.PaymentStatus,
			&o.ShippingAddress, &o.IdempotencyKey, &o.Version, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range out {
		if err := s.loadLines(ctx, o); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UpdateStatus: CAS di kolom version. RowsAffected 0 berarti ada yang
// mendahului (ErrConflict) atau ordernya hilang (ErrNotFound).
func (s *PgStore) UpdateStatus(ctx context.Context, id string, version int64, status Status, pay PaymentStatus) (*Order, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE orders
		SET status=$3, payment_status=$4, version=version+1, updated_at=now()
		WHERE id=$1 AND version=$2`, id, version, status, pay)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		if _, err := s.Get(ctx, id); errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrConflict
	}
	return s.Get(ctx, id)
}

func (s *PgStore) PurgeCancelled(ctx context.Context) (int64, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		DELETE FROM order_lines WHERE order_id IN (SELECT id FROM orders WHERE status=$1)`,
		StatusCancelled); err != nil {
		return 0, err
	}
	ct, err := tx.Exec(ctx, `DELETE FROM orders WHERE status=$1`, StatusCancelled)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), tx.Commit(ctx)
}
