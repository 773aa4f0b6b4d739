package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is a per-user, per-currency balance.
//
// Invariants:
// - (user_id, currency) is unique.
// - balance >= 0, enforced both here and by a storage CHECK constraint.
// - Balance is mutated only by the approve transition (see service.go).
//   No code path may write the balance column in reaction to a field
//   change; mutation is always an explicit service call.
type Wallet struct {
	ID       string `json:"id" db:"id"`
	UserID   string `json:"user_id" db:"user_id"`
	Currency string `json:"currency" db:"currency"`

	// Balance is a fixed-point decimal with 2 fractional digits.
	Balance decimal.Decimal `json:"balance" db:"balance"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LedgerEntry is the append-mostly record of an intended balance change.
//
// Lifecycle: created pending, finalized exactly once to approved or
// rejected. Finalized entries are immutable and never deleted.
type LedgerEntry struct {
	ID       string `json:"id" db:"id"`
	WalletID string `json:"wallet_id" db:"wallet_id"`

	// MethodID references the top-up method used, when applicable.
	MethodID string `json:"method_id,omitempty" db:"method_id"`

	// RelatedOrderID links order-debit entries (holds) to their order.
	RelatedOrderID string `json:"related_order_id,omitempty" db:"related_order_id"`

	Type      EntryType `json:"type" db:"type"`
	Direction Direction `json:"direction" db:"direction"`

	Amount decimal.Decimal `json:"amount" db:"amount"`

	Status Status `json:"status" db:"status"`

	// OpRef is the operator-supplied operation reference / external
	// transaction id. Globally unique when present; used to deduplicate
	// retries of the same top-up claim.
	OpRef string `json:"op_ref,omitempty" db:"op_ref"`

	// IdempotencyKey deduplicates programmatic retries (order holds,
	// admin adjustments). Unique when present.
	IdempotencyKey string `json:"idempotency_key,omitempty" db:"idempotency_key"`

	Note string `json:"note,omitempty" db:"note"`

	// BalanceAfter snapshots the wallet balance produced by approval.
	// Nil until the entry is approved.
	BalanceAfter *decimal.Decimal `json:"balance_after,omitempty" db:"balance_after"`

	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ApprovedAt *time.Time `json:"approved_at,omitempty" db:"approved_at"`
}

type EntryType string

const (
	EntryTypeTopup           EntryType = "topup"
	EntryTypeOrder           EntryType = "order"
	EntryTypeRefund          EntryType = "refund"
	EntryTypeAdminAdjustment EntryType = "admin_adjustment"
)

type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsFinal reports whether the status is terminal.
func (s Status) IsFinal() bool {
	return s == StatusApproved || s == StatusRejected
}
