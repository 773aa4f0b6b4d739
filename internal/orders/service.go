package orders

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"credit-store/internal/catalog"
	"credit-store/internal/users"
	"credit-store/internal/wallet"
	"credit-store/pkg/utils"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// WalletGateway is the slice of the wallet service order placement
// needs: reserve funds before the provider call, then commit or release
// the hold inside the finalizing transaction.
type WalletGateway interface {
	GetBalance(ctx context.Context, userID, currency string) (wallet.Wallet, error)
	HoldForOrder(ctx context.Context, walletID string, amount decimal.Decimal, orderID string) (wallet.LedgerEntry, error)
	ApproveTx(ctx context.Context, tx *sql.Tx, entryID, note string) (wallet.LedgerEntry, error)
	RejectTx(ctx context.Context, tx *sql.Tx, entryID, reason string) (wallet.LedgerEntry, error)
}

// Quoter prices a product for a customer tier.
type Quoter interface {
	Quote(ctx context.Context, productID string, tier, qty int) (catalog.Product, decimal.Decimal, error)
}

type Service struct {
	repo     Repository
	wallets  WalletGateway
	provider Provider
	quoter   Quoter

	runTx func(ctx context.Context, fn utils.TxFunc) error
	clock func() time.Time
}

func NewService(db *sql.DB, repo Repository, wallets WalletGateway, provider Provider, quoter Quoter) *Service {
	return &Service{
		repo:     repo,
		wallets:  wallets,
		provider: provider,
		quoter:   quoter,
		runTx: func(ctx context.Context, fn utils.TxFunc) error {
			return utils.WithTx(ctx, db, &sql.TxOptions{}, fn)
		},
		clock: time.Now,
	}
}

// Place runs the full purchase flow:
//
//  1. price the product for the user's tier and reserve the total as a
//     pending debit (insufficient funds abort here, nothing persisted),
//  2. persist the order in status created,
//  3. call the provider with no locks held,
//  4. on success, mark the order sent and commit the hold in one
//     transaction; on failure, mark it failed and release the hold.
//
// There is no automatic retry: a failed order stays failed and the
// user's balance is untouched.
func (s *Service) Place(ctx context.Context, user users.User, productID string, qty int, target string) (Order, error) {
	if target == "" {
		return Order{}, ErrInvalidArgument
	}

	product, total, err := s.quoter.Quote(ctx, productID, user.Tier, qty)
	if err != nil {
		return Order{}, err
	}

	w, err := s.wallets.GetBalance(ctx, user.ID, "USD")
	if err != nil {
		return Order{}, err
	}

	orderID := ulid.Make().String()
	hold, err := s.wallets.HoldForOrder(ctx, w.ID, total, orderID)
	if err != nil {
		return Order{}, err
	}

	now := s.clock().UTC()
	o := Order{
		ID:                orderID,
		UserID:            user.ID,
		ProductID:         product.ID,
		ProviderProductID: product.ProviderProductID,
		ProductName:       product.Name,
		OrderUUID:         uuid.NewString(),
		Qty:               qty,
		Target:            target,
		UnitPrice:         product.UnitPriceForTier(user.Tier),
		TotalPrice:        total,
		Status:            StatusCreated,
		HoldEntryID:       hold.ID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	o, err = s.repo.Create(ctx, o)
	if err != nil {
		s.releaseHold(ctx, hold.ID, "order persist failed")
		return Order{}, err
	}

	res, callErr := s.provider.CreateOrder(ctx, o.ProviderProductID, o.Qty, o.Target, o.OrderUUID)
	if callErr != nil {
		return s.fail(ctx, o, callErr)
	}
	if res.Status == "reject" {
		return s.fail(ctx, o, fmt.Errorf("%w: provider rejected order %s", ErrProviderFailure, res.OrderID))
	}

	var sent Order
	err = s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var txErr error
		if sent, txErr = s.repo.MarkSentTx(ctx, tx, o.ID, res); txErr != nil {
			return txErr
		}
		_, txErr = s.wallets.ApproveTx(ctx, tx, o.HoldEntryID, "order "+o.ID+" committed")
		return txErr
	})
	if err != nil {
		return Order{}, err
	}
	return sent, nil
}

func (s *Service) fail(ctx context.Context, o Order, cause error) (Order, error) {
	var failed Order
	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var txErr error
		if failed, txErr = s.repo.MarkFailedTx(ctx, tx, o.ID, cause.Error()); txErr != nil {
			return txErr
		}
		_, txErr = s.wallets.RejectTx(ctx, tx, o.HoldEntryID, "order "+o.ID+" failed")
		return txErr
	})
	if err != nil {
		return Order{}, err
	}
	return failed, cause
}

func (s *Service) releaseHold(ctx context.Context, entryID, reason string) {
	_ = s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := s.wallets.RejectTx(ctx, tx, entryID, reason)
		return err
	})
}

// Complete marks a sent order delivered, after the provider confirms.
func (s *Service) Complete(ctx context.Context, id string) (Order, error) {
	return s.repo.MarkCompleted(ctx, id)
}

func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]Order, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.repo.ListByUser(ctx, userID, limit)
}
