package wallet

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("wallet: not found")
	ErrConflict          = errors.New("wallet: operation reference already claimed")
	ErrAlreadyFinalized  = errors.New("wallet: entry already finalized")
	ErrInsufficientFunds = errors.New("wallet: insufficient funds")
	ErrInvalidArgument   = errors.New("wallet: invalid argument")
)

// The entry state machine:
//
//	pending  --approve--> approved   (terminal)
//	pending  --reject-->  rejected   (terminal)
//	approved --approve--> approved   (idempotent no-op)
//	approved --reject-->  ErrAlreadyFinalized
//	rejected --*-->       ErrAlreadyFinalized
//
// checkApprove and checkReject are the only transition guards; every
// approve/reject path (bot, webhook auto-approval, admin API) goes
// through them.

// checkApprove returns (noop=true) when the entry is already approved.
func checkApprove(cur Status) (noop bool, err error) {
	switch cur {
	case StatusApproved:
		return true, nil
	case StatusPending:
		return false, nil
	default:
		return false, ErrAlreadyFinalized
	}
}

func checkReject(cur Status) error {
	if cur != StatusPending {
		return ErrAlreadyFinalized
	}
	return nil
}

// applyApprove computes the wallet balance that results from approving an
// entry. The result is truncated to 2 decimal places toward zero, so a
// credit can never add a fraction of a cent beyond what is owed. Debits
// that would drive the balance negative are clamped to zero; the clamped
// value is snapshotted into BalanceAfter so the under-debit stays visible
// in the ledger.
func applyApprove(balance, amount decimal.Decimal, dir Direction) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Decimal{}, ErrInvalidArgument
	}

	var next decimal.Decimal
	switch dir {
	case DirectionCredit:
		next = balance.Add(amount)
	case DirectionDebit:
		next = balance.Sub(amount)
	default:
		return decimal.Decimal{}, ErrInvalidArgument
	}

	next = next.Truncate(2)
	if next.IsNegative() {
		next = decimal.Zero
	}
	return next, nil
}

// availableBalance is the spendable balance: the settled balance minus
// all pending debit entries (order holds). Reservations reduce what can
// be spent without touching the settled balance.
func availableBalance(balance, pendingDebits decimal.Decimal) decimal.Decimal {
	return balance.Sub(pendingDebits)
}
