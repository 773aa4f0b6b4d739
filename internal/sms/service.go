package sms

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Service wires parsing, storage and matching together.
//
// Matching is a best-effort heuristic, not a proof of payment: a
// no-match outcome must degrade to manual admin review, never to a lost
// top-up request.
type Service struct {
	store Store

	// Defaults applied when a claim does not specify its own.
	tolerance int64
	window    time.Duration

	clock func() time.Time
}

func NewService(store Store, tolerance int64, window time.Duration) *Service {
	if tolerance < 0 {
		tolerance = 0
	}
	if window <= 0 {
		window = 240 * time.Minute
	}
	return &Service{
		store:     store,
		tolerance: tolerance,
		window:    window,
		clock:     time.Now,
	}
}

// Ingest parses and stores one inbound notification.
// stored=false reports a msg_uid dedup (duplicate delivery).
func (s *Service) Ingest(ctx context.Context, sender, body, msgUID string) (IncomingSMS, bool, error) {
	if body == "" {
		return IncomingSMS{}, false, ErrInvalidArgument
	}

	n := IncomingSMS{
		ID:         ulid.Make().String(),
		Sender:     sender,
		Body:       body,
		OpRef:      ExtractOpRef(body),
		MsgUID:     msgUID,
		ReceivedAt: s.clock().UTC(),
	}
	if n.OpRef == "" {
		n.OpRef = FallbackRef(body)
	}
	if amt, ok := ExtractAmount(body); ok {
		n.AmountSYP = &amt
	}

	stored, err := s.store.Insert(ctx, n)
	if err != nil {
		return IncomingSMS{}, false, err
	}
	return n, stored, nil
}

// Claim exclusively matches the oldest unconsumed notification with the
// given reference, using the configured tolerance and lookback window.
// Nil result means no eligible candidate.
func (s *Service) Claim(ctx context.Context, opRef string, amountSYP *int64) (*IncomingSMS, error) {
	if opRef == "" {
		return nil, ErrInvalidArgument
	}
	return s.store.ClaimMatching(ctx, ClaimQuery{
		OpRef:     opRef,
		AmountSYP: amountSYP,
		Tolerance: s.tolerance,
		Window:    s.window,
		Now:       s.clock().UTC(),
	})
}
