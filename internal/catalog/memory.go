package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo implements Repository in memory for tests.
type MemoryRepo struct {
	mu       sync.Mutex
	products map[string]Product
	methods  map[string]TopupMethod
	rates    map[string]ExchangeRate
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		products: make(map[string]Product),
		methods:  make(map[string]TopupMethod),
		rates:    make(map[string]ExchangeRate),
	}
}

func (r *MemoryRepo) CreateProduct(_ context.Context, p Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; ok {
		return Product{}, ErrConflict
	}
	r.products[p.ID] = p
	return p, nil
}

func (r *MemoryRepo) UpdateProduct(_ context.Context, p Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return Product{}, ErrNotFound
	}
	r.products[p.ID] = p
	return p, nil
}

func (r *MemoryRepo) GetProduct(_ context.Context, id string) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) ListProducts(_ context.Context, activeOnly bool) ([]Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Product
	for _, p := range r.products {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *MemoryRepo) CreateMethod(_ context.Context, m TopupMethod) (TopupMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.methods[m.ID]; ok {
		return TopupMethod{}, ErrConflict
	}
	r.methods[m.ID] = m
	return m, nil
}

func (r *MemoryRepo) UpdateMethod(_ context.Context, m TopupMethod) (TopupMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.methods[m.ID]; !ok {
		return TopupMethod{}, ErrNotFound
	}
	r.methods[m.ID] = m
	return m, nil
}

func (r *MemoryRepo) GetMethod(_ context.Context, id string) (TopupMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.methods[id]
	if !ok {
		return TopupMethod{}, ErrNotFound
	}
	return m, nil
}

func (r *MemoryRepo) ListMethods(_ context.Context, activeOnly bool) ([]TopupMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []TopupMethod
	for _, m := range r.methods {
		if activeOnly && !m.Active {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepo) UpsertRate(_ context.Context, rate ExchangeRate) (ExchangeRate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := rate.From + "/" + rate.To
	if cur, ok := r.rates[key]; ok {
		cur.Value = rate.Value
		r.rates[key] = cur
		return cur, nil
	}
	r.rates[key] = rate
	return rate, nil
}

func (r *MemoryRepo) GetRate(_ context.Context, from, to string) (ExchangeRate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rate, ok := r.rates[from+"/"+to]
	if !ok {
		return ExchangeRate{}, ErrNotFound
	}
	return rate, nil
}
