package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Actor and ip capture are best-effort; do not block financial flows
//   on audit failures.
type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorAdminID is the authenticated admin causing the event.
	ActorAdminID string `json:"actor_admin_id,omitempty" db:"actor_admin_id"`
	ActorRole    string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress captures the original client IP when available.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Target identifiers (optional, depending on the event type).
	EntryID  string `json:"entry_id,omitempty" db:"entry_id"`
	WalletID string `json:"wallet_id,omitempty" db:"wallet_id"`
	UserID   string `json:"user_id,omitempty" db:"user_id"`
	OrderID  string `json:"order_id,omitempty" db:"order_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeTopupApproved EventType = "topup_approved"
	EventTypeTopupRejected EventType = "topup_rejected"
	EventTypeWalletAdjust  EventType = "wallet_adjust"
	EventTypeUserUpdated   EventType = "user_updated"
	EventTypeCatalogChange EventType = "catalog_change"
	EventTypeAdminLogin    EventType = "admin_login"
)
