package customers

import "context"

// Repo defines persistence operations for customers.
type Repo interface {
	GetByPhone(ctx context.Context, phone string) (Customer, error)
	// Upsert stores c, keeping the original CreatedAt on update.
	Upsert(ctx context.Context, c Customer) (Customer, error)
}
