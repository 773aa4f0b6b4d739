package reporting

import (
	"context"
	"sync"
	"time"

	"credit-store/internal/orders"
	"credit-store/internal/wallet"
)

// MemoryRepo is an in-memory reporting source for tests.
type MemoryRepo struct {
	mu     sync.Mutex
	topups []wallet.LedgerEntry
	ords   []orders.Order
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) AddTopup(e wallet.LedgerEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topups = append(r.topups, e)
}

func (r *MemoryRepo) AddOrder(o orders.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ords = append(r.ords, o)
}

func (r *MemoryRepo) ListTopups(_ context.Context, from, to time.Time) ([]wallet.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []wallet.LedgerEntry
	for _, e := range r.topups {
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *MemoryRepo) ListOrders(_ context.Context, from, to time.Time) ([]orders.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []orders.Order
	for _, o := range r.ords {
		if o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}
