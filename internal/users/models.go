package users

import "time"

// User is a storefront customer, keyed by the immutable Telegram id.
type User struct {
	ID string `json:"id" db:"id"`

	// TgID is the Telegram account id. Unique and never changes; all
	// bot-side lookups go through it.
	TgID int64 `json:"tg_id" db:"tg_id"`

	Name    string `json:"name" db:"name"`
	Country string `json:"country,omitempty" db:"country"`

	// Tier selects the pricing column (1..4). Defaults to 1.
	Tier int `json:"tier" db:"tier"`

	Blocked bool `json:"blocked" db:"blocked"`

	// ReferrerID is the id of the user who referred this one, if any.
	ReferrerID string `json:"referrer_id,omitempty" db:"referrer_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

const (
	MinTier = 1
	MaxTier = 4
)
