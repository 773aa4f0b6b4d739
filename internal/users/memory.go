package users

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo keeps users in a map under a mutex. Same contract as the
// Postgres repository.
type MemoryRepo struct {
	mu   sync.Mutex
	byID map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]User)}
}

func (r *MemoryRepo) Create(_ context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.TgID == u.TgID {
			return User{}, ErrConflict
		}
	}
	r.byID[u.ID] = u
	return u, nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryRepo) GetByTgID(_ context.Context, tgID int64) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.TgID == tgID {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *MemoryRepo) Update(_ context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[u.ID]
	if !ok {
		return User{}, ErrNotFound
	}
	cur.Name = u.Name
	cur.Country = u.Country
	cur.Tier = u.Tier
	cur.Blocked = u.Blocked
	r.byID[u.ID] = cur
	return cur, nil
}

func (r *MemoryRepo) List(_ context.Context, limit, offset int) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]User, 0, len(r.byID))
	for _, u := range r.byID {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}
