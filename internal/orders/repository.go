package orders

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("order not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Repository persists orders. Finalization methods take the enclosing
// transaction so the order status and the wallet hold commit or release
// atomically.
type Repository interface {
	Create(ctx context.Context, o Order) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
	List(ctx context.Context, limit, offset int) ([]Order, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Order, error)
	MarkSentTx(ctx context.Context, tx *sql.Tx, id string, res ProviderResult) (Order, error)
	MarkFailedTx(ctx context.Context, tx *sql.Tx, id, errMsg string) (Order, error)
	MarkCompleted(ctx context.Context, id string) (Order, error)
}

const orderColumns = `id, user_id, product_id, provider_product_id, product_name,
	order_uuid, qty, target, unit_price, total_price, status, hold_entry_id,
	provider_order_id, provider_status, provider_price, provider_payload,
	error_msg, created_at, updated_at`

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func scanOrder(s interface{ Scan(...any) error }) (Order, error) {
	var o Order
	var providerOrderID, providerStatus, providerPayload, errMsg, holdEntry sql.NullString
	var providerPrice decimal.NullDecimal
	err := s.Scan(&o.ID, &o.UserID, &o.ProductID, &o.ProviderProductID, &o.ProductName,
		&o.OrderUUID, &o.Qty, &o.Target, &o.UnitPrice, &o.TotalPrice, &o.Status,
		&holdEntry, &providerOrderID, &providerStatus, &providerPrice,
		&providerPayload, &errMsg, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	o.HoldEntryID = holdEntry.String
	o.ProviderOrderID = providerOrderID.String
	o.ProviderStatus = providerStatus.String
	o.ProviderPayload = providerPayload.String
	o.ErrorMsg = errMsg.String
	if providerPrice.Valid {
		o.ProviderPrice = providerPrice.Decimal
	}
	return o, nil
}

func (r *PostgresRepo) Create(ctx context.Context, o Order) (Order, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO orders (id, user_id, product_id, provider_product_id, product_name,
			order_uuid, qty, target, unit_price, total_price, status, hold_entry_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''))
		RETURNING `+orderColumns,
		o.ID, o.UserID, o.ProductID, o.ProviderProductID, o.ProductName,
		o.OrderUUID, o.Qty, o.Target, o.UnitPrice, o.TotalPrice, o.Status, o.HoldEntryID,
	)
	return scanOrder(row)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Order, error) {
	return scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

func (r *PostgresRepo) List(ctx context.Context, limit, offset int) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func collectOrders(rows *sql.Rows) ([]Order, error) {
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) MarkSentTx(ctx context.Context, tx *sql.Tx, id string, res ProviderResult) (Order, error) {
	row := tx.QueryRowContext(ctx, `
		UPDATE orders
		SET status = $2, provider_order_id = NULLIF($3, ''), provider_status = NULLIF($4, ''),
			provider_price = $5, provider_payload = NULLIF($6, ''), updated_at = now()
		WHERE id = $1 AND status = $7
		RETURNING `+orderColumns,
		id, StatusSent, res.OrderID, res.Status, res.Price, res.Raw, StatusCreated,
	)
	return scanOrder(row)
}

func (r *PostgresRepo) MarkFailedTx(ctx context.Context, tx *sql.Tx, id, errMsg string) (Order, error) {
	row := tx.QueryRowContext(ctx, `
		UPDATE orders
		SET status = $2, error_msg = NULLIF($3, ''), updated_at = now()
		WHERE id = $1 AND status = $4
		RETURNING `+orderColumns,
		id, StatusFailed, errMsg, StatusCreated,
	)
	return scanOrder(row)
}

func (r *PostgresRepo) MarkCompleted(ctx context.Context, id string) (Order, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE orders
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING `+orderColumns,
		id, StatusCompleted, StatusSent,
	)
	return scanOrder(row)
}
