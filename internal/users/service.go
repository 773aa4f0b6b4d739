package users

import (
	"context"
	"errors"
	"time"

	"credit-store/internal/wallet"

	"github.com/oklog/ulid/v2"
)

var ErrBlocked = errors.New("user is blocked")

// WalletProvisioner is the slice of the wallet service user onboarding
// needs.
type WalletProvisioner interface {
	EnsureWallet(ctx context.Context, userID, currency string) (wallet.Wallet, error)
}

type Service struct {
	repo    Repository
	wallets WalletProvisioner

	clock func() time.Time
}

func NewService(repo Repository, wallets WalletProvisioner) *Service {
	return &Service{repo: repo, wallets: wallets, clock: time.Now}
}

// RegisterOrFetch returns the user for a Telegram account, creating the
// user and their USD wallet on first contact. Name and country refresh
// on every call; tier, blocked and referrer never change here.
func (s *Service) RegisterOrFetch(ctx context.Context, tgID int64, name, country string) (User, error) {
	if tgID == 0 {
		return User{}, ErrInvalidArgument
	}

	u, err := s.repo.GetByTgID(ctx, tgID)
	switch {
	case err == nil:
		if name != "" && name != u.Name {
			u.Name = name
			if u, err = s.repo.Update(ctx, u); err != nil {
				return User{}, err
			}
		}
	case errors.Is(err, ErrNotFound):
		now := s.clock().UTC()
		u = User{
			ID:        ulid.Make().String(),
			TgID:      tgID,
			Name:      name,
			Country:   country,
			Tier:      MinTier,
			CreatedAt: now,
			UpdatedAt: now,
		}
		u, err = s.repo.Create(ctx, u)
		if errors.Is(err, ErrConflict) {
			// Lost a concurrent first-contact race; the other copy wins.
			u, err = s.repo.GetByTgID(ctx, tgID)
		}
		if err != nil {
			return User{}, err
		}
	default:
		return User{}, err
	}

	if s.wallets != nil {
		if _, err := s.wallets.EnsureWallet(ctx, u.ID, "USD"); err != nil {
			return User{}, err
		}
	}
	return u, nil
}

// RequireActive fetches a user by Telegram id and rejects blocked
// accounts. Bot-facing operations go through this.
func (s *Service) RequireActive(ctx context.Context, tgID int64) (User, error) {
	u, err := s.repo.GetByTgID(ctx, tgID)
	if err != nil {
		return User{}, err
	}
	if u.Blocked {
		return User{}, ErrBlocked
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// SetTier moves a user to a pricing tier (1..4).
func (s *Service) SetTier(ctx context.Context, id string, tier int) (User, error) {
	if tier < MinTier || tier > MaxTier {
		return User{}, ErrInvalidArgument
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	u.Tier = tier
	return s.repo.Update(ctx, u)
}

func (s *Service) SetBlocked(ctx context.Context, id string, blocked bool) (User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	u.Blocked = blocked
	return s.repo.Update(ctx, u)
}
