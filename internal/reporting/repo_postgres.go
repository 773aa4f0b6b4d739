package reporting

import (
	"context"
	"database/sql"
	"time"

	"credit-store/internal/orders"
	"credit-store/internal/wallet"
)

// PostgresRepo reads reporting rows straight from the ledger and order
// tables. Aggregation happens in the service so both implementations
// share it.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) ListTopups(ctx context.Context, from, to time.Time) ([]wallet.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, status, amount, created_at
		FROM ledger_entries
		WHERE type = 'topup' AND created_at >= $1 AND created_at < $2`,
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []wallet.LedgerEntry
	for rows.Next() {
		var e wallet.LedgerEntry
		if err := rows.Scan(&e.ID, &e.Status, &e.Amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListOrders(ctx context.Context, from, to time.Time) ([]orders.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, status, total_price, created_at
		FROM orders
		WHERE created_at >= $1 AND created_at < $2`,
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Order
	for rows.Next() {
		var o orders.Order
		if err := rows.Scan(&o.ID, &o.Status, &o.TotalPrice, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
