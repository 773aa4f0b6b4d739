package orders

import (
	"context"
	"database/sql"
	"sort"
	"sync"
)

// MemoryRepo implements Repository in memory. The Tx variants ignore
// the transaction handle; atomicity under test comes from the mutex.
type MemoryRepo struct {
	mu   sync.Mutex
	byID map[string]Order
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Order)}
}

func (r *MemoryRepo) Create(_ context.Context, o Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[o.ID] = o
	return o, nil
}

func (r *MemoryRepo) Get(_ context.Context, id string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (r *MemoryRepo) List(_ context.Context, limit, offset int) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted()
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepo) ListByUser(_ context.Context, userID string, limit int) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, o := range r.sorted() {
		if o.UserID != userID {
			continue
		}
		out = append(out, o)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryRepo) sorted() []Order {
	all := make([]Order, 0, len(r.byID))
	for _, o := range r.byID {
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all
}

func (r *MemoryRepo) MarkSentTx(_ context.Context, _ *sql.Tx, id string, res ProviderResult) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok || o.Status != StatusCreated {
		return Order{}, ErrNotFound
	}
	o.Status = StatusSent
	o.ProviderOrderID = res.OrderID
	o.ProviderStatus = res.Status
	o.ProviderPrice = res.Price
	o.ProviderPayload = res.Raw
	r.byID[id] = o
	return o, nil
}

func (r *MemoryRepo) MarkFailedTx(_ context.Context, _ *sql.Tx, id, errMsg string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok || o.Status != StatusCreated {
		return Order{}, ErrNotFound
	}
	o.Status = StatusFailed
	o.ErrorMsg = errMsg
	r.byID[id] = o
	return o, nil
}

func (r *MemoryRepo) MarkCompleted(_ context.Context, id string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok || o.Status != StatusSent {
		return Order{}, ErrNotFound
	}
	o.Status = StatusCompleted
	r.byID[id] = o
	return o, nil
}
