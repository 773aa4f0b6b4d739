package wallet

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCheckApprove_Transitions(t *testing.T) {
	noop, err := checkApprove(StatusPending)
	if err != nil || noop {
		t.Fatalf("pending: expected (false, nil), got (%v, %v)", noop, err)
	}

	noop, err = checkApprove(StatusApproved)
	if err != nil || !noop {
		t.Fatalf("approved: expected idempotent no-op, got (%v, %v)", noop, err)
	}

	if _, err = checkApprove(StatusRejected); err != ErrAlreadyFinalized {
		t.Fatalf("rejected: expected ErrAlreadyFinalized, got %v", err)
	}
}

func TestCheckReject_Transitions(t *testing.T) {
	if err := checkReject(StatusPending); err != nil {
		t.Fatalf("pending: expected nil, got %v", err)
	}
	if err := checkReject(StatusApproved); err != ErrAlreadyFinalized {
		t.Fatalf("approved: expected ErrAlreadyFinalized, got %v", err)
	}
	if err := checkReject(StatusRejected); err != ErrAlreadyFinalized {
		t.Fatalf("rejected: expected ErrAlreadyFinalized, got %v", err)
	}
}

func TestApplyApprove_CreditAddsExactly(t *testing.T) {
	// Balance 10.00, credit 5.25 -> 15.25.
	next, err := applyApprove(dec("10.00"), dec("5.25"), DirectionCredit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.Equal(dec("15.25")) {
		t.Fatalf("expected 15.25, got %s", next)
	}
}

func TestApplyApprove_DebitSubtracts(t *testing.T) {
	next, err := applyApprove(dec("10.00"), dec("7.50"), DirectionDebit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.Equal(dec("2.50")) {
		t.Fatalf("expected 2.50, got %s", next)
	}
}

func TestApplyApprove_TruncatesTowardZero(t *testing.T) {
	// 0.999 must become 0.99, never 1.00: a credit may not add a
	// fraction of a cent beyond what is owed.
	next, err := applyApprove(dec("0"), dec("0.999"), DirectionCredit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.Equal(dec("0.99")) {
		t.Fatalf("expected 0.99, got %s", next)
	}
}

func TestApplyApprove_DebitClampsAtZero(t *testing.T) {
	next, err := applyApprove(dec("3.00"), dec("7.50"), DirectionDebit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.Equal(decimal.Zero) {
		t.Fatalf("expected clamp to zero, got %s", next)
	}
}

func TestApplyApprove_DebitNeverIncreasesBalance(t *testing.T) {
	balances := []string{"0.00", "0.01", "3.00", "100.00"}
	amounts := []string{"0.01", "2.99", "3.00", "99.99", "1000.00"}
	for _, b := range balances {
		for _, a := range amounts {
			next, err := applyApprove(dec(b), dec(a), DirectionDebit)
			if err != nil {
				t.Fatalf("balance %s amount %s: %v", b, a, err)
			}
			if next.IsNegative() {
				t.Fatalf("balance %s amount %s: negative result %s", b, a, next)
			}
			if next.GreaterThan(dec(b)) {
				t.Fatalf("balance %s amount %s: debit increased balance to %s", b, a, next)
			}
		}
	}
}

func TestApplyApprove_RejectsBadInput(t *testing.T) {
	if _, err := applyApprove(dec("1.00"), dec("-1.00"), DirectionCredit); err != ErrInvalidArgument {
		t.Fatalf("negative amount: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := applyApprove(dec("1.00"), dec("1.00"), Direction("sideways")); err != ErrInvalidArgument {
		t.Fatalf("bad direction: expected ErrInvalidArgument, got %v", err)
	}
}

func TestAvailableBalance(t *testing.T) {
	got := availableBalance(dec("10.00"), dec("7.50"))
	if !got.Equal(dec("2.50")) {
		t.Fatalf("expected 2.50 available, got %s", got)
	}

	// Holds can exceed the settled balance transiently only if created
	// before a debit was approved; available goes negative, blocking
	// further holds.
	got = availableBalance(dec("5.00"), dec("7.00"))
	if !got.Equal(dec("-2.00")) {
		t.Fatalf("expected -2.00 available, got %s", got)
	}
}
