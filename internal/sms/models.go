package sms

import "time"

// IncomingSMS is a raw operator/bank notification received through the
// webhook. Rows are immutable except for ConsumedAt, which marks the
// message as claimed by exactly one top-up match.
type IncomingSMS struct {
	ID     string `json:"id" db:"id"`
	Sender string `json:"sender,omitempty" db:"sender"`
	Body   string `json:"body" db:"body"`

	// OpRef is the operation reference extracted from the body, when the
	// parser recognized one.
	OpRef string `json:"op_ref,omitempty" db:"op_ref"`

	// AmountSYP is the amount extracted from the body, in SYP integer
	// units. Nil when the parser found none.
	AmountSYP *int64 `json:"amount_syp,omitempty" db:"amount_syp"`

	// MsgUID is the provider-supplied message uid; unique, used for
	// at-least-once delivery dedup.
	MsgUID string `json:"msg_uid,omitempty" db:"msg_uid"`

	ReceivedAt time.Time `json:"received_at" db:"received_at"`

	// ConsumedAt is nil while the message is still available for
	// matching.
	ConsumedAt *time.Time `json:"consumed_at,omitempty" db:"consumed_at"`
}
