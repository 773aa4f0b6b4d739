package sms

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"credit-store/pkg/utils"
)

var ErrInvalidArgument = errors.New("sms: invalid argument")

// ClaimQuery describes one exclusive matching attempt.
type ClaimQuery struct {
	OpRef string

	// AmountSYP is the claimed amount; nil disables the amount check.
	AmountSYP *int64

	// Tolerance is the accepted absolute difference between the claimed
	// amount and the SMS amount (absorbs fee/rounding noise). Only
	// applied when both amounts are present.
	Tolerance int64

	// Window is the lookback window from Now.
	Window time.Duration

	Now time.Time
}

// Store is the persistence contract for inbound notifications.
//
// Claim semantics are exclusive under concurrency: two concurrent claims
// for the same reference must never both succeed. The Postgres
// implementation relies on FOR UPDATE SKIP LOCKED, so a locked-but-
// uncommitted candidate is invisible to a concurrent matcher, which
// proceeds to the next candidate or reports no-match instead of
// blocking. MemoryStore provides the same contract under a mutex.
type Store interface {
	// Insert stores a notification. A duplicate msg_uid is not an
	// error: stored=false reports the dedup.
	Insert(ctx context.Context, n IncomingSMS) (stored bool, err error)

	// ClaimMatching finds the oldest unconsumed candidate satisfying q,
	// marks it consumed, and returns it. Nil result means no match;
	// callers fall back to manual review.
	ClaimMatching(ctx context.Context, q ClaimQuery) (*IncomingSMS, error)
}

// amountMatches applies the tolerance rule: when either side has no
// amount, the check passes.
func amountMatches(claimed, actual *int64, tolerance int64) bool {
	if claimed == nil || actual == nil {
		return true
	}
	diff := *claimed - *actual
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// PostgresStore persists notifications in the incoming_sms table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, n IncomingSMS) (bool, error) {
	if n.ID == "" || n.Body == "" {
		return false, ErrInvalidArgument
	}

	const q = `
INSERT INTO incoming_sms (id, sender, body, op_ref, amount_syp, msg_uid, received_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (msg_uid) DO NOTHING
`
	var amount sql.NullInt64
	if n.AmountSYP != nil {
		amount = sql.NullInt64{Int64: *n.AmountSYP, Valid: true}
	}
	var msgUID, opRef sql.NullString
	if n.MsgUID != "" {
		msgUID = sql.NullString{String: n.MsgUID, Valid: true}
	}
	if n.OpRef != "" {
		opRef = sql.NullString{String: n.OpRef, Valid: true}
	}

	// sender is NOT NULL in the schema; a blank sender is stored as ''.
	res, err := s.db.ExecContext(ctx, q, n.ID, n.Sender, n.Body, opRef, amount, msgUID, n.ReceivedAt)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *PostgresStore) ClaimMatching(ctx context.Context, q ClaimQuery) (*IncomingSMS, error) {
	if q.OpRef == "" {
		return nil, ErrInvalidArgument
	}

	var out *IncomingSMS
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const sel = `
SELECT id, sender, body, op_ref, amount_syp, msg_uid, received_at
FROM incoming_sms
WHERE op_ref = $1 AND consumed_at IS NULL AND received_at >= $2
ORDER BY received_at ASC
LIMIT 1
FOR UPDATE SKIP LOCKED
`
		cutoff := q.Now.Add(-q.Window)

		var n IncomingSMS
		var sender, msgUID, opRef sql.NullString
		var amount sql.NullInt64
		err := tx.QueryRowContext(ctx, sel, q.OpRef, cutoff).Scan(
			&n.ID, &sender, &n.Body, &opRef, &amount, &msgUID, &n.ReceivedAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		n.Sender = sender.String
		n.OpRef = opRef.String
		n.MsgUID = msgUID.String
		if amount.Valid {
			v := amount.Int64
			n.AmountSYP = &v
		}

		if !amountMatches(q.AmountSYP, n.AmountSYP, q.Tolerance) {
			return nil
		}

		const upd = `UPDATE incoming_sms SET consumed_at = $2 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, upd, n.ID, q.Now); err != nil {
			return err
		}
		consumed := q.Now
		n.ConsumedAt = &consumed
		out = &n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
