package sms

import (
	"context"
	"sync"
)

// MemoryStore implements Store under a mutex. Useful for tests and early
// development; the claim contract (exclusive, oldest-first) matches the
// Postgres implementation.
type MemoryStore struct {
	mu   sync.Mutex
	rows []*IncomingSMS
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Insert(_ context.Context, n IncomingSMS) (bool, error) {
	if n.ID == "" || n.Body == "" {
		return false, ErrInvalidArgument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n.MsgUID != "" {
		for _, r := range s.rows {
			if r.MsgUID == n.MsgUID {
				return false, nil
			}
		}
	}
	cp := n
	s.rows = append(s.rows, &cp)
	return true, nil
}

func (s *MemoryStore) ClaimMatching(_ context.Context, q ClaimQuery) (*IncomingSMS, error) {
	if q.OpRef == "" {
		return nil, ErrInvalidArgument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := q.Now.Add(-q.Window)

	var best *IncomingSMS
	for _, r := range s.rows {
		if r.OpRef != q.OpRef {
			continue
		}
		if r.ConsumedAt != nil {
			continue
		}
		if r.ReceivedAt.Before(cutoff) {
			continue
		}
		if best == nil || r.ReceivedAt.Before(best.ReceivedAt) {
			best = r
		}
	}
	if best == nil {
		return nil, nil
	}

	if !amountMatches(q.AmountSYP, best.AmountSYP, q.Tolerance) {
		return nil, nil
	}

	consumed := q.Now
	best.ConsumedAt = &consumed
	cp := *best
	return &cp, nil
}
