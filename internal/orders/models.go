package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	// StatusCreated: order persisted, funds held, provider not yet called.
	StatusCreated Status = "created"
	// StatusSent: provider accepted the request; the hold is committed.
	StatusSent Status = "sent"
	// StatusCompleted: provider confirmed delivery.
	StatusCompleted Status = "completed"
	// StatusFailed: provider call failed; the hold was released.
	StatusFailed Status = "failed"
)

type Order struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	ProductID         string `json:"product_id" db:"product_id"`
	ProviderProductID string `json:"provider_product_id" db:"provider_product_id"`
	ProductName       string `json:"product_name" db:"product_name"`

	// OrderUUID is the correlation id sent to the provider, generated
	// before the provider call so retries on our side stay traceable.
	OrderUUID string `json:"order_uuid" db:"order_uuid"`

	Qty int `json:"qty" db:"qty"`

	// Target is the player/account id the credits are delivered to.
	Target string `json:"target" db:"target"`

	UnitPrice  decimal.Decimal `json:"unit_price" db:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price" db:"total_price"`

	Status Status `json:"status" db:"status"`

	// HoldEntryID links to the pending debit ledger entry reserving the
	// funds for this order.
	HoldEntryID string `json:"hold_entry_id,omitempty" db:"hold_entry_id"`

	ProviderOrderID string          `json:"provider_order_id,omitempty" db:"provider_order_id"`
	ProviderStatus  string          `json:"provider_status,omitempty" db:"provider_status"`
	ProviderPrice   decimal.Decimal `json:"provider_price,omitempty" db:"provider_price"`
	ProviderPayload string          `json:"provider_payload,omitempty" db:"provider_payload"`
	ErrorMsg        string          `json:"error_msg,omitempty" db:"error_msg"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
