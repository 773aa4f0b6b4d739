package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// TopupSummary aggregates top-up entries over a time range.
type TopupSummary struct {
	PendingCount  int `json:"pending_count"`
	ApprovedCount int `json:"approved_count"`
	RejectedCount int `json:"rejected_count"`

	ApprovedTotal decimal.Decimal `json:"approved_total"`
}

// OrderSummary aggregates orders over a time range.
type OrderSummary struct {
	CreatedCount   int `json:"created_count"`
	SentCount      int `json:"sent_count"`
	CompletedCount int `json:"completed_count"`
	FailedCount    int `json:"failed_count"`

	// Revenue is the sum of total_price over sent and completed orders.
	Revenue decimal.Decimal `json:"revenue"`
}

// Summary is the admin dashboard payload.
type Summary struct {
	Range  TimeRange    `json:"range"`
	Topups TopupSummary `json:"topups"`
	Orders OrderSummary `json:"orders"`
}
