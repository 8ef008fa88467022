package customers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Upsert(ctx context.Context, c Customer) (Customer, error) {
	const query = `
INSERT INTO customers (phone, name, age_range, gender, chemical_history, lifestyle, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now(), now())
ON CONFLICT (phone) DO UPDATE SET
  name = EXCLUDED.name,
  age_range = EXCLUDED.age_range,
  gender = EXCLUDED.gender,
  chemical_history = EXCLUDED.chemical_history,
  lifestyle = EXCLUDED.lifestyle,
  updated_at = now()
RETURNING created_at, updated_at`
	lifestyle, err := json.Marshal(c.Lifestyle)
	if err != nil {
		return Customer{}, err
	}
	err = r.DB.QueryRowContext(ctx, query,
		c.Phone,
		c.Name,
		c.AgeRange,
		c.Gender,
		c.HasChemicalHistory,
		lifestyle,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Customer{}, err
	}
	return c, nil
}

func (r *PGRepo) GetByPhone(ctx context.Context, phone string) (Customer, error) {
	const query = `
SELECT phone, name, age_range, gender, chemical_history, lifestyle, created_at, updated_at
FROM customers
WHERE phone = $1
LIMIT 1`
	var c Customer
	var lifestyle []byte
	err := r.DB.QueryRowContext(ctx, query, phone).Scan(
		&c.Phone,
		&c.Name,
		&c.AgeRange,
		&c.Gender,
		&c.HasChemicalHistory,
		&lifestyle,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, err
	}
	if len(lifestyle) > 0 {
		if err := json.Unmarshal(lifestyle, &c.Lifestyle); err != nil {
			return Customer{}, err
		}
	}
	return c, nil
}

var _ Repo = (*PGRepo)(nil)
