package assessments

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"scalpcare-backend/internal/kb"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

type inputDoc struct {
	Input            kb.AssessmentInput   `json:"input"`
	ObservationAfter *kb.ScalpObservation `json:"observationAfter,omitempty"`
}

const selectColumns = `
SELECT id, customer_phone, status, input, analysis, prompt_block, images,
       report_text, report_panel, report_model, error_code, error_message, request_id,
       created_at, updated_at, completed_at
FROM assessments`

func (r *PGRepo) Create(ctx context.Context, a Assessment) error {
	const query = `
INSERT INTO assessments (
	id, customer_phone, status, input, analysis, prompt_block, images, request_id, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`
	input, err := json.Marshal(inputDoc{Input: a.Input, ObservationAfter: a.ObservationAfter})
	if err != nil {
		return err
	}
	analysis, err := json.Marshal(a.Analysis)
	if err != nil {
		return err
	}
	images := a.Images
	if images == nil {
		images = []StoredImage{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		a.ID,
		a.CustomerPhone,
		a.Status,
		input,
		analysis,
		a.PromptBlock,
		imagesJSON,
		nullableString(a.RequestID),
		a.CreatedAt,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Assessment, error) {
	row := r.DB.QueryRowContext(ctx, selectColumns+`
WHERE id = $1
LIMIT 1`, id)
	a, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Assessment{}, ErrNotFound
	}
	return a, err
}

func (r *PGRepo) ListByCustomer(ctx context.Context, phone string, limit, offset int) ([]Assessment, error) {
	if offset < 0 {
		offset = 0
	}
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := r.DB.QueryContext(ctx, selectColumns+`
WHERE customer_phone = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, phone, limitArg, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdateStatus(ctx context.Context, id, status string) error {
	const query = `UPDATE assessments SET status = $2, updated_at = now() WHERE id = $1`
	return r.execOne(ctx, query, id, status)
}

func (r *PGRepo) Complete(ctx context.Context, id string, report Report, completedAt time.Time) error {
	const query = `
UPDATE assessments
SET status = $2, report_text = $3, report_panel = $4, report_model = $5,
    error_code = NULL, error_message = NULL, completed_at = $6, updated_at = now()
WHERE id = $1`
	panel, err := json.Marshal(report.Panel)
	if err != nil {
		return err
	}
	return r.execOne(ctx, query, id, StatusCompleted, report.Text, panel, nullableString(report.Model), completedAt)
}

func (r *PGRepo) Fail(ctx context.Context, id, code, message string, completedAt time.Time) error {
	const query = `
UPDATE assessments
SET status = $2, error_code = $3, error_message = $4, completed_at = $5, updated_at = now()
WHERE id = $1`
	return r.execOne(ctx, query, id, StatusFailed, code, message, completedAt)
}

func (r *PGRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row scanner) (Assessment, error) {
	var a Assessment
	var input, analysis, images, panel []byte
	var reportText, reportModel, errorCode, errorMessage, requestID sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(
		&a.ID,
		&a.CustomerPhone,
		&a.Status,
		&input,
		&analysis,
		&a.PromptBlock,
		&images,
		&reportText,
		&panel,
		&reportModel,
		&errorCode,
		&errorMessage,
		&requestID,
		&a.CreatedAt,
		&a.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return Assessment{}, err
	}

	var doc inputDoc
	if err := json.Unmarshal(input, &doc); err != nil {
		return Assessment{}, err
	}
	a.Input = doc.Input
	a.ObservationAfter = doc.ObservationAfter
	if err := json.Unmarshal(analysis, &a.Analysis); err != nil {
		return Assessment{}, err
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &a.Images); err != nil {
			return Assessment{}, err
		}
	}
	if reportText.Valid {
		report := &Report{Text: reportText.String, Model: reportModel.String}
		if len(panel) > 0 {
			if err := json.Unmarshal(panel, &report.Panel); err != nil {
				return Assessment{}, err
			}
		}
		a.Report = report
	}
	a.ErrorCode = errorCode.String
	a.ErrorMessage = errorMessage.String
	a.RequestID = requestID.String
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}
	return a, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Repo = (*PGRepo)(nil)
