package assessments

import (
	"context"
	"time"
)

// Repo defines persistence operations for assessments.
type Repo interface {
	Create(ctx context.Context, a Assessment) error
	GetByID(ctx context.Context, id string) (Assessment, error)
	// ListByCustomer returns newest first. limit <= 0 means no limit.
	ListByCustomer(ctx context.Context, phone string, limit, offset int) ([]Assessment, error)
	UpdateStatus(ctx context.Context, id, status string) error
	Complete(ctx context.Context, id string, report Report, completedAt time.Time) error
	Fail(ctx context.Context, id, code, message string, completedAt time.Time) error
}
