package assessments

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores assessments in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu         sync.RWMutex
	byID       map[string]Assessment
	byCustomer map[string][]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:       make(map[string]Assessment),
		byCustomer: make(map[string][]string),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, a Assessment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[a.ID] = a
	r.byCustomer[a.CustomerPhone] = append(r.byCustomer[a.CustomerPhone], a.ID)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Assessment, error) {
	if err := ctx.Err(); err != nil {
		return Assessment{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return Assessment{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) ListByCustomer(ctx context.Context, phone string, limit, offset int) ([]Assessment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	ids := r.byCustomer[phone]
	out := make([]Assessment, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id])
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []Assessment{}, nil
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, id, status string) error {
	return r.update(ctx, id, func(a *Assessment) {
		a.Status = status
	})
}

func (r *MemoryRepo) Complete(ctx context.Context, id string, report Report, completedAt time.Time) error {
	return r.update(ctx, id, func(a *Assessment) {
		a.Status = StatusCompleted
		a.Report = &report
		a.ErrorCode = ""
		a.ErrorMessage = ""
		a.CompletedAt = &completedAt
	})
}

func (r *MemoryRepo) Fail(ctx context.Context, id, code, message string, completedAt time.Time) error {
	return r.update(ctx, id, func(a *Assessment) {
		a.Status = StatusFailed
		a.ErrorCode = code
		a.ErrorMessage = message
		a.CompletedAt = &completedAt
	})
}

func (r *MemoryRepo) update(ctx context.Context, id string, fn func(*Assessment)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	fn(&a)
	a.UpdatedAt = time.Now().UTC()
	r.byID[id] = a
	return nil
}
