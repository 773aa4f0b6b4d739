package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// NOTE: This repository assumes the following tables exist (see
// migrations/schema.sql):
// - wallets           UNIQUE (user_id, currency), CHECK (balance >= 0)
// - ledger_entries    UNIQUE (op_ref), UNIQUE (idempotency_key)
//
// Lock ordering is entry-then-wallet, consistently, so concurrent
// approvals touching different entries on the same wallet cannot
// deadlock.

const entryColumns = `
id, wallet_id, method_id, related_order_id, type, direction, amount,
status, op_ref, idempotency_key, note, balance_after, created_at, approved_at
`

func scanEntry(row *sql.Row) (LedgerEntry, error) {
	var e LedgerEntry
	var methodID, relatedOrderID, opRef, idemKey, note sql.NullString
	var balanceAfter decimal.NullDecimal
	var approvedAt sql.NullTime

	err := row.Scan(
		&e.ID,
		&e.WalletID,
		&methodID,
		&relatedOrderID,
		&e.Type,
		&e.Direction,
		&e.Amount,
		&e.Status,
		&opRef,
		&idemKey,
		&note,
		&balanceAfter,
		&e.CreatedAt,
		&approvedAt,
	)
	if err != nil {
		return LedgerEntry{}, err
	}

	e.MethodID = methodID.String
	e.RelatedOrderID = relatedOrderID.String
	e.OpRef = opRef.String
	e.IdempotencyKey = idemKey.String
	e.Note = note.String
	if balanceAfter.Valid {
		b := balanceAfter.Decimal
		e.BalanceAfter = &b
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		e.ApprovedAt = &t
	}
	return e, nil
}

func lockEntry(ctx context.Context, tx *sql.Tx, entryID string) (LedgerEntry, error) {
	// Entry lock first; serializes concurrent finalization attempts.
	const q = `
SELECT ` + entryColumns + `
FROM ledger_entries
WHERE id = $1
FOR UPDATE
`
	e, err := scanEntry(tx.QueryRowContext(ctx, q, entryID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LedgerEntry{}, ErrNotFound
		}
		return LedgerEntry{}, err
	}
	return e, nil
}

func findEntryByOpRef(ctx context.Context, q queryer, opRef string) (LedgerEntry, bool, error) {
	const query = `
SELECT ` + entryColumns + `
FROM ledger_entries
WHERE op_ref = $1
LIMIT 1
`
	e, err := scanEntry(q.QueryRowContext(ctx, query, opRef))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LedgerEntry{}, false, nil
		}
		return LedgerEntry{}, false, err
	}
	return e, true, nil
}

func findEntryByIdempotencyKey(ctx context.Context, q queryer, key string) (LedgerEntry, bool, error) {
	const query = `
SELECT ` + entryColumns + `
FROM ledger_entries
WHERE idempotency_key = $1
LIMIT 1
`
	e, err := scanEntry(q.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LedgerEntry{}, false, nil
		}
		return LedgerEntry{}, false, err
	}
	return e, true, nil
}

func getEntry(ctx context.Context, db *sql.DB, entryID string) (LedgerEntry, error) {
	const q = `
SELECT ` + entryColumns + `
FROM ledger_entries
WHERE id = $1
`
	e, err := scanEntry(db.QueryRowContext(ctx, q, entryID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LedgerEntry{}, ErrNotFound
		}
		return LedgerEntry{}, err
	}
	return e, nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, e LedgerEntry) error {
	const q = `
INSERT INTO ledger_entries (
  id, wallet_id, method_id, related_order_id, type, direction, amount,
  status, op_ref, idempotency_key, note, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)
`
	_, err := tx.ExecContext(ctx, q,
		e.ID,
		e.WalletID,
		nullIfEmpty(e.MethodID),
		nullIfEmpty(e.RelatedOrderID),
		e.Type,
		e.Direction,
		e.Amount,
		e.Status,
		nullIfEmpty(e.OpRef),
		nullIfEmpty(e.IdempotencyKey),
		nullIfEmpty(e.Note),
		e.CreatedAt,
	)
	return err
}

func finalizeEntry(ctx context.Context, tx *sql.Tx, e LedgerEntry) error {
	const q = `
UPDATE ledger_entries
SET status = $2, note = $3, balance_after = $4, approved_at = $5
WHERE id = $1
`
	var balanceAfter decimal.NullDecimal
	if e.BalanceAfter != nil {
		balanceAfter = decimal.NullDecimal{Decimal: *e.BalanceAfter, Valid: true}
	}
	var approvedAt sql.NullTime
	if e.ApprovedAt != nil {
		approvedAt = sql.NullTime{Time: *e.ApprovedAt, Valid: true}
	}
	_, err := tx.ExecContext(ctx, q, e.ID, e.Status, nullIfEmpty(e.Note), balanceAfter, approvedAt)
	return err
}

func lockWallet(ctx context.Context, tx *sql.Tx, walletID string) (Wallet, error) {
	const q = `
SELECT id, user_id, currency, balance, created_at, updated_at
FROM wallets
WHERE id = $1
FOR UPDATE
`
	var w Wallet
	err := tx.QueryRowContext(ctx, q, walletID).Scan(
		&w.ID,
		&w.UserID,
		&w.Currency,
		&w.Balance,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	return w, nil
}

func updateWalletBalance(ctx context.Context, tx *sql.Tx, walletID string, balance decimal.Decimal, now time.Time) error {
	const q = `
UPDATE wallets
SET balance = $2, updated_at = $3
WHERE id = $1
`
	_, err := tx.ExecContext(ctx, q, walletID, balance, now)
	return err
}

func getWalletByUser(ctx context.Context, q queryer, userID, currency string) (Wallet, error) {
	const query = `
SELECT id, user_id, currency, balance, created_at, updated_at
FROM wallets
WHERE user_id = $1 AND currency = $2
`
	var w Wallet
	err := q.QueryRowContext(ctx, query, userID, currency).Scan(
		&w.ID,
		&w.UserID,
		&w.Currency,
		&w.Balance,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	return w, nil
}

func getWalletByID(ctx context.Context, q queryer, walletID string) (Wallet, error) {
	const query = `
SELECT id, user_id, currency, balance, created_at, updated_at
FROM wallets
WHERE id = $1
`
	var w Wallet
	err := q.QueryRowContext(ctx, query, walletID).Scan(
		&w.ID,
		&w.UserID,
		&w.Currency,
		&w.Balance,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	return w, nil
}

func insertWalletIfMissing(ctx context.Context, db *sql.DB, w Wallet) error {
	const q = `
INSERT INTO wallets (id, user_id, currency, balance, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (user_id, currency) DO NOTHING
`
	_, err := db.ExecContext(ctx, q, w.ID, w.UserID, w.Currency, w.Balance, w.CreatedAt, w.UpdatedAt)
	return err
}

// sumPendingDebits totals the unfinalized debit entries for a wallet.
// Called with the wallet row already locked, so the total is stable for
// the duration of the enclosing transaction.
func sumPendingDebits(ctx context.Context, tx *sql.Tx, walletID string) (decimal.Decimal, error) {
	const q = `
SELECT COALESCE(SUM(amount), 0)
FROM ledger_entries
WHERE wallet_id = $1 AND direction = 'debit' AND status = 'pending'
`
	var total decimal.Decimal
	if err := tx.QueryRowContext(ctx, q, walletID).Scan(&total); err != nil {
		return decimal.Decimal{}, err
	}
	return total, nil
}

func listTopupsByUser(ctx context.Context, db *sql.DB, userID string, limit int) ([]LedgerEntry, error) {
	const q = `
SELECT e.id, e.wallet_id, e.method_id, e.related_order_id, e.type, e.direction,
       e.amount, e.status, e.op_ref, e.idempotency_key, e.note, e.balance_after,
       e.created_at, e.approved_at
FROM ledger_entries e
JOIN wallets w ON w.id = e.wallet_id
WHERE w.user_id = $1 AND e.type = 'topup'
ORDER BY e.created_at DESC
LIMIT $2
`
	rows, err := db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var methodID, relatedOrderID, opRef, idemKey, note sql.NullString
		var balanceAfter decimal.NullDecimal
		var approvedAt sql.NullTime

		if err := rows.Scan(
			&e.ID, &e.WalletID, &methodID, &relatedOrderID, &e.Type, &e.Direction,
			&e.Amount, &e.Status, &opRef, &idemKey, &note, &balanceAfter,
			&e.CreatedAt, &approvedAt,
		); err != nil {
			return nil, err
		}
		e.MethodID = methodID.String
		e.RelatedOrderID = relatedOrderID.String
		e.OpRef = opRef.String
		e.IdempotencyKey = idemKey.String
		e.Note = note.String
		if balanceAfter.Valid {
			b := balanceAfter.Decimal
			e.BalanceAfter = &b
		}
		if approvedAt.Valid {
			t := approvedAt.Time
			e.ApprovedAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func listEntriesByStatus(ctx context.Context, db *sql.DB, status Status, limit int) ([]LedgerEntry, error) {
	const q = `
SELECT ` + entryColumns + `
FROM ledger_entries
WHERE status = $1 AND type = 'topup'
ORDER BY created_at ASC
LIMIT $2
`
	rows, err := db.QueryContext(ctx, q, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var methodID, relatedOrderID, opRef, idemKey, note sql.NullString
		var balanceAfter decimal.NullDecimal
		var approvedAt sql.NullTime

		if err := rows.Scan(
			&e.ID, &e.WalletID, &methodID, &relatedOrderID, &e.Type, &e.Direction,
			&e.Amount, &e.Status, &opRef, &idemKey, &note, &balanceAfter,
			&e.CreatedAt, &approvedAt,
		); err != nil {
			return nil, err
		}
		e.MethodID = methodID.String
		e.RelatedOrderID = relatedOrderID.String
		e.OpRef = opRef.String
		e.IdempotencyKey = idemKey.String
		e.Note = note.String
		if balanceAfter.Valid {
			b := balanceAfter.Decimal
			e.BalanceAfter = &b
		}
		if approvedAt.Valid {
			t := approvedAt.Time
			e.ApprovedAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
