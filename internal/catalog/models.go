package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a purchasable credit denomination of an upstream provider.
type Product struct {
	ID string `json:"id" db:"id"`

	// ProviderProductID identifies the product in the fulfillment
	// provider's API.
	ProviderProductID string `json:"provider_product_id" db:"provider_product_id"`

	Name     string `json:"name" db:"name"`
	Category string `json:"category" db:"category"`

	// CostPerUnit is what the provider charges us, in USD.
	CostPerUnit decimal.Decimal `json:"cost_per_unit" db:"cost_per_unit"`

	// Per-unit markup by customer tier. A zero tier-N markup falls back
	// to tier 1.
	Profit1 decimal.Decimal `json:"profit_1" db:"profit_1"`
	Profit2 decimal.Decimal `json:"profit_2" db:"profit_2"`
	Profit3 decimal.Decimal `json:"profit_3" db:"profit_3"`
	Profit4 decimal.Decimal `json:"profit_4" db:"profit_4"`

	MinQty int `json:"min_qty" db:"min_qty"`
	MaxQty int `json:"max_qty" db:"max_qty"`

	// UnitLabel is "amount" for free-quantity products and "package"
	// for fixed bundles.
	UnitLabel string `json:"unit_label" db:"unit_label"`

	Active bool `json:"active" db:"active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UnitPriceForTier returns cost plus the tier's markup, truncated to
// cents. Unknown or unpriced tiers use tier 1.
func (p Product) UnitPriceForTier(tier int) decimal.Decimal {
	profit := p.Profit1
	switch tier {
	case 2:
		if !p.Profit2.IsZero() {
			profit = p.Profit2
		}
	case 3:
		if !p.Profit3.IsZero() {
			profit = p.Profit3
		}
	case 4:
		if !p.Profit4.IsZero() {
			profit = p.Profit4
		}
	}
	return p.CostPerUnit.Add(profit).Truncate(2)
}

// TopupMethod is a way customers can send us money (cash transfer
// operators, crypto, ...). Details holds operator-specific fields as
// raw JSON.
type TopupMethod struct {
	ID      string `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	Details string `json:"details" db:"details"`
	Note    string `json:"note,omitempty" db:"note"`
	Active  bool   `json:"active" db:"active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ExchangeRate converts between a local currency and USD. Unique per
// (from, to) pair.
type ExchangeRate struct {
	ID    string          `json:"id" db:"id"`
	From  string          `json:"from" db:"from_currency"`
	To    string          `json:"to" db:"to_currency"`
	Value decimal.Decimal `json:"value" db:"value"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Convert applies the rate and truncates to 2 decimal places, never
// rounding in the customer's favor.
func (r ExchangeRate) Convert(amount decimal.Decimal) decimal.Decimal {
	if r.Value.IsZero() {
		return decimal.Zero
	}
	return amount.Div(r.Value).Truncate(2)
}
