package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"credit-store/pkg/utils"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// Service owns every wallet mutation.
//
// Money invariants:
// - The approve transition is the single authoritative balance mutator.
// - Every money operation runs in one DB transaction; locks are never
//   held across network calls.
// - The ledger is append-mostly: entries are created pending and
//   finalized exactly once; nothing is ever deleted.
//
// Concurrency-dependent behavior (FOR UPDATE ordering, unique-constraint
// races) is implemented in Postgres-specific SQL; end-to-end tests for it
// belong to integration tests against Postgres. The pure transition rules
// are unit-tested in transition_test.go.
type Service struct {
	db *sql.DB
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, clock: time.Now}
}

// newID returns a lexicographically sortable id; ulid.Make is safe for
// concurrent use.
func (s *Service) newID() string {
	return ulid.Make().String()
}

type CreateTopupRequest struct {
	WalletID string          `json:"wallet_id"`
	MethodID string          `json:"method_id"`
	Amount   decimal.Decimal `json:"amount"`
	OpRef    string          `json:"op_ref,omitempty"`
	Note     string          `json:"note,omitempty"`
}

// CreatePendingTopup turns a user-submitted payment claim into a pending
// credit entry. No balance change happens here.
//
// Deduplication by OpRef:
// - same reference, same wallet: the existing entry is returned unchanged
//   (idempotent retry)
// - same reference, different wallet: ErrConflict
// - no reference: a new entry is always created
//
// The pre-insert probe is an optimization; a concurrent identical request
// loses the race at the unique constraint and is mapped to the same
// outcome.
func (s *Service) CreatePendingTopup(ctx context.Context, req CreateTopupRequest) (LedgerEntry, error) {
	if req.WalletID == "" {
		return LedgerEntry{}, ErrInvalidArgument
	}
	if !req.Amount.IsPositive() {
		return LedgerEntry{}, ErrInvalidArgument
	}

	if req.OpRef != "" {
		existing, ok, err := findEntryByOpRef(ctx, s.db, req.OpRef)
		if err != nil {
			return LedgerEntry{}, err
		}
		if ok {
			if existing.WalletID == req.WalletID {
				return existing, nil
			}
			return LedgerEntry{}, ErrConflict
		}
	}

	entry := LedgerEntry{
		ID:        s.newID(),
		WalletID:  req.WalletID,
		MethodID:  req.MethodID,
		Type:      EntryTypeTopup,
		Direction: DirectionCredit,
		Amount:    req.Amount.Truncate(2),
		Status:    StatusPending,
		OpRef:     req.OpRef,
		Note:      req.Note,
		CreatedAt: s.clock().UTC(),
	}

	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		return insertEntry(ctx, tx, entry)
	})
	if err != nil {
		if utils.IsUniqueViolation(err, "uq_ledger_op_ref") {
			// Lost the race against an identical request. The aborted
			// transaction is already rolled back, so re-read outside it.
			existing, ok, ferr := findEntryByOpRef(ctx, s.db, req.OpRef)
			if ferr != nil {
				return LedgerEntry{}, ferr
			}
			if ok && existing.WalletID == req.WalletID {
				return existing, nil
			}
			return LedgerEntry{}, ErrConflict
		}
		return LedgerEntry{}, err
	}
	return entry, nil
}

// Approve finalizes a pending entry and applies its amount to the owning
// wallet. Repeated approval of an approved entry is an idempotent no-op;
// approving a rejected entry fails with ErrAlreadyFinalized.
func (s *Service) Approve(ctx context.Context, entryID, note string) (LedgerEntry, error) {
	if entryID == "" {
		return LedgerEntry{}, ErrInvalidArgument
	}

	var out LedgerEntry
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		e, err := s.ApproveTx(ctx, tx, entryID, note)
		if err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return LedgerEntry{}, err
	}
	return out, nil
}

// ApproveTx runs the approve transition inside a caller-owned transaction
// so collaborators (order commit) can atomically combine it with their
// own writes. Lock order: entry first, wallet second.
func (s *Service) ApproveTx(ctx context.Context, tx *sql.Tx, entryID, note string) (LedgerEntry, error) {
	e, err := lockEntry(ctx, tx, entryID)
	if err != nil {
		return LedgerEntry{}, err
	}

	noop, err := checkApprove(e.Status)
	if err != nil {
		return LedgerEntry{}, err
	}
	if noop {
		return e, nil
	}

	w, err := lockWallet(ctx, tx, e.WalletID)
	if err != nil {
		return LedgerEntry{}, err
	}

	now := s.clock().UTC()
	next, err := applyApprove(w.Balance, e.Amount, e.Direction)
	if err != nil {
		return LedgerEntry{}, err
	}

	if err := updateWalletBalance(ctx, tx, w.ID, next, now); err != nil {
		return LedgerEntry{}, err
	}

	e.Status = StatusApproved
	e.BalanceAfter = &next
	if e.ApprovedAt == nil {
		e.ApprovedAt = &now
	}
	e.Note = appendNote(e.Note, note)
	if err := finalizeEntry(ctx, tx, e); err != nil {
		return LedgerEntry{}, err
	}
	return e, nil
}

// Reject finalizes a pending entry without touching the wallet.
func (s *Service) Reject(ctx context.Context, entryID, reason string) (LedgerEntry, error) {
	if entryID == "" {
		return LedgerEntry{}, ErrInvalidArgument
	}

	var out LedgerEntry
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		e, err := s.RejectTx(ctx, tx, entryID, reason)
		if err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return LedgerEntry{}, err
	}
	return out, nil
}

// RejectTx runs the reject transition inside a caller-owned transaction.
func (s *Service) RejectTx(ctx context.Context, tx *sql.Tx, entryID, reason string) (LedgerEntry, error) {
	e, err := lockEntry(ctx, tx, entryID)
	if err != nil {
		return LedgerEntry{}, err
	}
	if err := checkReject(e.Status); err != nil {
		return LedgerEntry{}, err
	}

	e.Status = StatusRejected
	if reason != "" {
		e.Note = appendNote(e.Note, "rejected: "+reason)
	}
	if err := finalizeEntry(ctx, tx, e); err != nil {
		return LedgerEntry{}, err
	}
	return e, nil
}

// HoldForOrder reserves funds for an order by creating a pending debit
// entry. The reservation reduces the available balance without touching
// the settled balance; committing it (ApproveTx) applies the debit,
// releasing it (RejectTx) frees the funds.
func (s *Service) HoldForOrder(ctx context.Context, walletID string, amount decimal.Decimal, orderID string) (LedgerEntry, error) {
	if walletID == "" || orderID == "" {
		return LedgerEntry{}, ErrInvalidArgument
	}
	if !amount.IsPositive() {
		return LedgerEntry{}, ErrInvalidArgument
	}

	idemKey := "order:" + orderID
	var out LedgerEntry
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if existing, ok, err := findEntryByIdempotencyKey(ctx, tx, idemKey); err != nil {
			return err
		} else if ok {
			out = existing
			return nil
		}

		w, err := lockWallet(ctx, tx, walletID)
		if err != nil {
			return err
		}

		held, err := sumPendingDebits(ctx, tx, walletID)
		if err != nil {
			return err
		}
		if availableBalance(w.Balance, held).LessThan(amount) {
			return ErrInsufficientFunds
		}

		entry := LedgerEntry{
			ID:             s.newID(),
			WalletID:       walletID,
			RelatedOrderID: orderID,
			Type:           EntryTypeOrder,
			Direction:      DirectionDebit,
			Amount:         amount.Truncate(2),
			Status:         StatusPending,
			IdempotencyKey: idemKey,
			CreatedAt:      s.clock().UTC(),
		}
		if err := insertEntry(ctx, tx, entry); err != nil {
			return err
		}
		out = entry
		return nil
	})
	if err != nil {
		return LedgerEntry{}, err
	}
	return out, nil
}

type AdminAdjustRequest struct {
	WalletID       string          `json:"wallet_id"`
	Direction      Direction       `json:"direction"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// AdminAdjust creates and immediately approves an admin_adjustment entry.
// It still routes through the transition so the adjustment shows up in
// the ledger like any other balance change.
func (s *Service) AdminAdjust(ctx context.Context, req AdminAdjustRequest) (LedgerEntry, error) {
	if req.WalletID == "" || req.Reason == "" || req.IdempotencyKey == "" {
		return LedgerEntry{}, ErrInvalidArgument
	}
	if req.Direction != DirectionCredit && req.Direction != DirectionDebit {
		return LedgerEntry{}, ErrInvalidArgument
	}
	if !req.Amount.IsPositive() {
		return LedgerEntry{}, ErrInvalidArgument
	}

	var out LedgerEntry
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if existing, ok, err := findEntryByIdempotencyKey(ctx, tx, req.IdempotencyKey); err != nil {
			return err
		} else if ok {
			out = existing
			return nil
		}

		entry := LedgerEntry{
			ID:             s.newID(),
			WalletID:       req.WalletID,
			Type:           EntryTypeAdminAdjustment,
			Direction:      req.Direction,
			Amount:         req.Amount.Truncate(2),
			Status:         StatusPending,
			IdempotencyKey: req.IdempotencyKey,
			Note:           req.Reason,
			CreatedAt:      s.clock().UTC(),
		}
		if err := insertEntry(ctx, tx, entry); err != nil {
			return err
		}

		e, err := s.ApproveTx(ctx, tx, entry.ID, "")
		if err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return LedgerEntry{}, err
	}
	return out, nil
}

// GetBalance returns the wallet for a user/currency pair. Reads that feed
// a financial decision must not use this value; they re-read under lock
// inside their own transaction.
func (s *Service) GetBalance(ctx context.Context, userID, currency string) (Wallet, error) {
	if userID == "" || currency == "" {
		return Wallet{}, ErrInvalidArgument
	}
	return getWalletByUser(ctx, s.db, userID, currency)
}

// GetWallet resolves a wallet by id, e.g. to find the owner of a
// ledger entry.
func (s *Service) GetWallet(ctx context.Context, walletID string) (Wallet, error) {
	if walletID == "" {
		return Wallet{}, ErrInvalidArgument
	}
	return getWalletByID(ctx, s.db, walletID)
}

// EnsureWallet lazily creates the wallet on first use.
func (s *Service) EnsureWallet(ctx context.Context, userID, currency string) (Wallet, error) {
	if userID == "" || currency == "" {
		return Wallet{}, ErrInvalidArgument
	}

	w, err := getWalletByUser(ctx, s.db, userID, currency)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Wallet{}, err
	}

	now := s.clock().UTC()
	candidate := Wallet{
		ID:        s.newID(),
		UserID:    userID,
		Currency:  currency,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := insertWalletIfMissing(ctx, s.db, candidate); err != nil {
		return Wallet{}, err
	}
	// Re-read: a concurrent creator may have won the upsert.
	return getWalletByUser(ctx, s.db, userID, currency)
}

// FindTopupByOpRef resolves a ledger entry by its operation reference,
// e.g. to correlate an inbound operator SMS with a pending top-up.
func (s *Service) FindTopupByOpRef(ctx context.Context, opRef string) (LedgerEntry, bool, error) {
	if opRef == "" {
		return LedgerEntry{}, false, ErrInvalidArgument
	}
	return findEntryByOpRef(ctx, s.db, opRef)
}

func (s *Service) GetEntry(ctx context.Context, entryID string) (LedgerEntry, error) {
	if entryID == "" {
		return LedgerEntry{}, ErrInvalidArgument
	}
	return getEntry(ctx, s.db, entryID)
}

func (s *Service) ListRecentTopups(ctx context.Context, userID string, limit int) ([]LedgerEntry, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return listTopupsByUser(ctx, s.db, userID, limit)
}

// ListPendingTopups feeds the admin review queue, oldest first.
func (s *Service) ListPendingTopups(ctx context.Context, limit int) ([]LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return listEntriesByStatus(ctx, s.db, StatusPending, limit)
}

func appendNote(existing, extra string) string {
	if extra == "" {
		return existing
	}
	if existing == "" {
		return extra
	}
	return existing + " | " + extra
}
