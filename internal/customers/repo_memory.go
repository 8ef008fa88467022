package customers

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo stores customers in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu      sync.RWMutex
	byPhone map[string]Customer
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byPhone: make(map[string]Customer)}
}

func (r *MemoryRepo) GetByPhone(ctx context.Context, phone string) (Customer, error) {
	if err := ctx.Err(); err != nil {
		return Customer{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byPhone[phone]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, c Customer) (Customer, error) {
	if err := ctx.Err(); err != nil {
		return Customer{}, err
	}
	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byPhone[c.Phone]; ok {
		c.CreatedAt = existing.CreatedAt
	} else {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	r.byPhone[c.Phone] = c
	return c, nil
}
