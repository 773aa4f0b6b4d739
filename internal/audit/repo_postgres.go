package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends audit events to an INSERT-only table. No update
// or delete statements exist anywhere for audit_events.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, type, actor_admin_id, actor_role, ip_address,
			entry_id, wallet_id, user_id, order_id, message, metadata, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''),
			NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''),
			NULLIF($10, ''), NULLIF($11, ''), $12)`,
		e.ID, e.Type, e.ActorAdminID, e.ActorRole, e.IPAddress,
		e.EntryID, e.WalletID, e.UserID, e.OrderID, e.Message, e.Metadata, e.CreatedAt,
	)
	return err
}
