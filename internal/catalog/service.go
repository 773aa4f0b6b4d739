package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

type Service struct {
	repo Repository

	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// Quote prices qty units of a product for a customer tier and checks
// the product's quantity bounds.
func (s *Service) Quote(ctx context.Context, productID string, tier, qty int) (Product, decimal.Decimal, error) {
	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return Product{}, decimal.Zero, err
	}
	if !p.Active {
		return Product{}, decimal.Zero, ErrNotFound
	}
	if qty < p.MinQty || (p.MaxQty > 0 && qty > p.MaxQty) {
		return Product{}, decimal.Zero, fmt.Errorf("%w: quantity %d outside [%d, %d]", ErrInvalidArgument, qty, p.MinQty, p.MaxQty)
	}
	unit := p.UnitPriceForTier(tier)
	return p, unit.Mul(decimal.NewFromInt(int64(qty))).Truncate(2), nil
}

func (s *Service) CreateProduct(ctx context.Context, p Product) (Product, error) {
	if p.Name == "" || p.ProviderProductID == "" {
		return Product{}, ErrInvalidArgument
	}
	if p.CostPerUnit.IsNegative() {
		return Product{}, ErrInvalidArgument
	}
	if p.MinQty <= 0 {
		p.MinQty = 1
	}
	p.ID = ulid.Make().String()
	now := s.clock().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	return s.repo.CreateProduct(ctx, p)
}

func (s *Service) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	if p.ID == "" {
		return Product{}, ErrInvalidArgument
	}
	return s.repo.UpdateProduct(ctx, p)
}

func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, activeOnly bool) ([]Product, error) {
	return s.repo.ListProducts(ctx, activeOnly)
}

// Menu returns active products grouped for the bot's product menu.
func (s *Service) Menu(ctx context.Context) ([]string, map[string][]Product, error) {
	products, err := s.repo.ListProducts(ctx, true)
	if err != nil {
		return nil, nil, err
	}
	order, groups := GroupProducts(products)
	return order, groups, nil
}

func (s *Service) CreateMethod(ctx context.Context, m TopupMethod) (TopupMethod, error) {
	if m.Name == "" {
		return TopupMethod{}, ErrInvalidArgument
	}
	if m.Details == "" {
		m.Details = "{}"
	}
	m.ID = ulid.Make().String()
	m.CreatedAt = s.clock().UTC()
	return s.repo.CreateMethod(ctx, m)
}

func (s *Service) UpdateMethod(ctx context.Context, m TopupMethod) (TopupMethod, error) {
	if m.ID == "" {
		return TopupMethod{}, ErrInvalidArgument
	}
	return s.repo.UpdateMethod(ctx, m)
}

func (s *Service) GetMethod(ctx context.Context, id string) (TopupMethod, error) {
	return s.repo.GetMethod(ctx, id)
}

func (s *Service) ListMethods(ctx context.Context, activeOnly bool) ([]TopupMethod, error) {
	return s.repo.ListMethods(ctx, activeOnly)
}

// SetRate upserts the conversion rate for a currency pair.
func (s *Service) SetRate(ctx context.Context, from, to string, value decimal.Decimal) (ExchangeRate, error) {
	if from == "" || to == "" || !value.IsPositive() {
		return ExchangeRate{}, ErrInvalidArgument
	}
	return s.repo.UpsertRate(ctx, ExchangeRate{
		ID:        ulid.Make().String(),
		From:      from,
		To:        to,
		Value:     value,
		UpdatedAt: s.clock().UTC(),
	})
}

// ConvertToUSD turns a local-currency amount into USD using the stored
// rate for (currency, "USD").
func (s *Service) ConvertToUSD(ctx context.Context, currency string, amount decimal.Decimal) (decimal.Decimal, error) {
	rate, err := s.repo.GetRate(ctx, currency, "USD")
	if err != nil {
		return decimal.Zero, err
	}
	return rate.Convert(amount), nil
}
