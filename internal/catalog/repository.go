package catalog

import (
	"context"
	"database/sql"
	"errors"

	"credit-store/pkg/utils"
)

var (
	ErrNotFound        = errors.New("catalog item not found")
	ErrConflict        = errors.New("catalog item already exists")
	ErrInvalidArgument = errors.New("invalid argument")
)

type Repository interface {
	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, p Product) (Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	ListProducts(ctx context.Context, activeOnly bool) ([]Product, error)

	CreateMethod(ctx context.Context, m TopupMethod) (TopupMethod, error)
	UpdateMethod(ctx context.Context, m TopupMethod) (TopupMethod, error)
	GetMethod(ctx context.Context, id string) (TopupMethod, error)
	ListMethods(ctx context.Context, activeOnly bool) ([]TopupMethod, error)

	UpsertRate(ctx context.Context, r ExchangeRate) (ExchangeRate, error)
	GetRate(ctx context.Context, from, to string) (ExchangeRate, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const productColumns = `id, provider_product_id, name, category, cost_per_unit,
	profit_1, profit_2, profit_3, profit_4, min_qty, max_qty, unit_label,
	active, created_at, updated_at`

func scanProduct(s interface{ Scan(...any) error }) (Product, error) {
	var p Product
	err := s.Scan(&p.ID, &p.ProviderProductID, &p.Name, &p.Category, &p.CostPerUnit,
		&p.Profit1, &p.Profit2, &p.Profit3, &p.Profit4, &p.MinQty, &p.MaxQty,
		&p.UnitLabel, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *PostgresRepo) CreateProduct(ctx context.Context, p Product) (Product, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO products (id, provider_product_id, name, category, cost_per_unit,
			profit_1, profit_2, profit_3, profit_4, min_qty, max_qty, unit_label, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+productColumns,
		p.ID, p.ProviderProductID, p.Name, p.Category, p.CostPerUnit,
		p.Profit1, p.Profit2, p.Profit3, p.Profit4, p.MinQty, p.MaxQty, p.UnitLabel, p.Active,
	)
	created, err := scanProduct(row)
	if utils.IsUniqueViolation(err, "") {
		return Product{}, ErrConflict
	}
	return created, err
}

func (r *PostgresRepo) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET provider_product_id = $2, name = $3, category = $4, cost_per_unit = $5,
			profit_1 = $6, profit_2 = $7, profit_3 = $8, profit_4 = $9,
			min_qty = $10, max_qty = $11, unit_label = $12, active = $13,
			updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID, p.ProviderProductID, p.Name, p.Category, p.CostPerUnit,
		p.Profit1, p.Profit2, p.Profit3, p.Profit4, p.MinQty, p.MaxQty, p.UnitLabel, p.Active,
	)
	return scanProduct(row)
}

func (r *PostgresRepo) GetProduct(ctx context.Context, id string) (Product, error) {
	return scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (r *PostgresRepo) ListProducts(ctx context.Context, activeOnly bool) ([]Product, error) {
	q := `SELECT ` + productColumns + ` FROM products`
	if activeOnly {
		q += ` WHERE active`
	}
	q += ` ORDER BY category, name`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const methodColumns = `id, name, details, COALESCE(note, ''), active, created_at`

func scanMethod(s interface{ Scan(...any) error }) (TopupMethod, error) {
	var m TopupMethod
	err := s.Scan(&m.ID, &m.Name, &m.Details, &m.Note, &m.Active, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return TopupMethod{}, ErrNotFound
	}
	return m, err
}

func (r *PostgresRepo) CreateMethod(ctx context.Context, m TopupMethod) (TopupMethod, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO topup_methods (id, name, details, note, active)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		RETURNING `+methodColumns,
		m.ID, m.Name, m.Details, m.Note, m.Active,
	)
	created, err := scanMethod(row)
	if utils.IsUniqueViolation(err, "") {
		return TopupMethod{}, ErrConflict
	}
	return created, err
}

func (r *PostgresRepo) UpdateMethod(ctx context.Context, m TopupMethod) (TopupMethod, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE topup_methods
		SET name = $2, details = $3, note = NULLIF($4, ''), active = $5
		WHERE id = $1
		RETURNING `+methodColumns,
		m.ID, m.Name, m.Details, m.Note, m.Active,
	)
	return scanMethod(row)
}

func (r *PostgresRepo) GetMethod(ctx context.Context, id string) (TopupMethod, error) {
	return scanMethod(r.db.QueryRowContext(ctx,
		`SELECT `+methodColumns+` FROM topup_methods WHERE id = $1`, id))
}

func (r *PostgresRepo) ListMethods(ctx context.Context, activeOnly bool) ([]TopupMethod, error) {
	q := `SELECT ` + methodColumns + ` FROM topup_methods`
	if activeOnly {
		q += ` WHERE active`
	}
	q += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopupMethod
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) UpsertRate(ctx context.Context, rate ExchangeRate) (ExchangeRate, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO exchange_rates (id, from_currency, to_currency, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (from_currency, to_currency)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()
		RETURNING id, from_currency, to_currency, value, updated_at`,
		rate.ID, rate.From, rate.To, rate.Value,
	)
	var out ExchangeRate
	err := row.Scan(&out.ID, &out.From, &out.To, &out.Value, &out.UpdatedAt)
	return out, err
}

func (r *PostgresRepo) GetRate(ctx context.Context, from, to string) (ExchangeRate, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, from_currency, to_currency, value, updated_at
		FROM exchange_rates
		WHERE from_currency = $1 AND to_currency = $2`, from, to)
	var out ExchangeRate
	err := row.Scan(&out.ID, &out.From, &out.To, &out.Value, &out.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ExchangeRate{}, ErrNotFound
	}
	return out, err
}
