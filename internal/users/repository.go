package users

import (
	"context"
	"database/sql"
	"errors"

	"credit-store/pkg/utils"
)

var (
	ErrNotFound        = errors.New("user not found")
	ErrConflict        = errors.New("user already exists")
	ErrInvalidArgument = errors.New("invalid argument")
)

type Repository interface {
	Create(ctx context.Context, u User) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByTgID(ctx context.Context, tgID int64) (User, error)
	Update(ctx context.Context, u User) (User, error)
	List(ctx context.Context, limit, offset int) ([]User, error)
}

const userColumns = `id, tg_id, name, country, tier, blocked, referrer_id, created_at, updated_at`

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	var country, referrer sql.NullString
	err := row.Scan(&u.ID, &u.TgID, &u.Name, &country, &u.Tier, &u.Blocked, &referrer, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.Country = country.String
	u.ReferrerID = referrer.String
	return u, nil
}

func (r *PostgresRepo) Create(ctx context.Context, u User) (User, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, tg_id, name, country, tier, blocked, referrer_id)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''))
		RETURNING `+userColumns,
		u.ID, u.TgID, u.Name, u.Country, u.Tier, u.Blocked, u.ReferrerID,
	)
	created, err := scanUser(row)
	if utils.IsUniqueViolation(err, "uq_users_tg_id") {
		return User{}, ErrConflict
	}
	return created, err
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *PostgresRepo) GetByTgID(ctx context.Context, tgID int64) (User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE tg_id = $1`, tgID))
}

func (r *PostgresRepo) Update(ctx context.Context, u User) (User, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users
		SET name = $2, country = NULLIF($3, ''), tier = $4, blocked = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		u.ID, u.Name, u.Country, u.Tier, u.Blocked,
	)
	return scanUser(row)
}

func (r *PostgresRepo) List(ctx context.Context, limit, offset int) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		var country, referrer sql.NullString
		if err := rows.Scan(&u.ID, &u.TgID, &u.Name, &country, &u.Tier, &u.Blocked, &referrer, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.Country = country.String
		u.ReferrerID = referrer.String
		out = append(out, u)
	}
	return out, rows.Err()
}
