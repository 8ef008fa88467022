package assessments

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"scalpcare-backend/internal/customers"
	"scalpcare-backend/internal/kb"
	"scalpcare-backend/internal/llm"
	"scalpcare-backend/internal/queue"
	"scalpcare-backend/internal/shared/metrics"
	"scalpcare-backend/internal/shared/storage/object"
	"scalpcare-backend/internal/shared/telemetry"
	"scalpcare-backend/internal/shared/util"
)

// CustomerLookup resolves the customer an assessment belongs to.
type CustomerLookup interface {
	Lookup(ctx context.Context, phone string) (customers.Customer, bool, error)
}

// Service contains business logic for assessments.
type Service struct {
	Repo      Repo
	Engine    *kb.Engine
	Generator llm.ReportGenerator
	Store     object.Store
	Customers CustomerLookup
	// Queue receives report jobs. When nil, reports are generated in-process.
	Queue queue.Client
}

// Create runs the rule engine, stores the record and its images, and
// schedules report generation.
func (s *Service) Create(ctx context.Context, rawPhone string, in CreateInput) (Assessment, error) {
	phone, err := util.NormalizePhone(rawPhone)
	if err != nil {
		return Assessment{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := prepareObservation(&in.Observation); err != nil {
		return Assessment{}, err
	}
	if in.ObservationAfter != nil {
		if err := prepareObservation(in.ObservationAfter); err != nil {
			return Assessment{}, err
		}
	}
	before, err := decodeImages(PhaseBefore, in.Images)
	if err != nil {
		return Assessment{}, err
	}
	after, err := decodeImages(PhaseAfter, in.ImagesAfter)
	if err != nil {
		return Assessment{}, err
	}

	if s.Customers != nil {
		customer, found, err := s.Customers.Lookup(ctx, phone)
		if err != nil {
			return Assessment{}, fmt.Errorf("customer lookup: %w", err)
		}
		if !found {
			return Assessment{}, ErrCustomerNotFound
		}
		if strings.TrimSpace(in.Name) == "" {
			in.Name = customer.Name
		}
		if strings.TrimSpace(in.AgeRange) == "" {
			in.AgeRange = customer.AgeRange
		}
	}

	engine := s.engine()
	analysis := engine.RunAnalysis(in.AssessmentInput)
	now := time.Now().UTC()
	a := Assessment{
		ID:               uuid.NewString(),
		CustomerPhone:    phone,
		Status:           StatusQueued,
		Input:            in.AssessmentInput,
		ObservationAfter: in.ObservationAfter,
		Analysis:         analysis,
		PromptBlock:      engine.FormatForGeneration(analysis),
		RequestID:        requestIDFromContext(ctx),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	a.Images = saveImages(ctx, s.Store, phone, a.ID, append(before, after...))

	if err := s.Repo.Create(ctx, a); err != nil {
		return Assessment{}, fmt.Errorf("store assessment: %w", err)
	}
	metrics.IncAssessmentCreated()
	for _, d := range analysis.Diagnoses {
		metrics.IncDiagnosis(string(d.ID))
	}
	telemetry.Info("assessment.status", map[string]any{
		"request_id":        a.RequestID,
		"assessment_id":     a.ID,
		"customer_hash":     util.HashKey(phone),
		"status":            StatusQueued,
		"status_transition": "->queued",
		"diagnoses":         len(analysis.Diagnoses),
		"images":            len(a.Images),
	})

	if s.Queue != nil {
		msg := queue.Message{
			AssessmentID: a.ID,
			RequestID:    a.RequestID,
			EnqueuedAt:   now.Format(time.RFC3339),
			Version:      queue.MessageVersion,
		}
		if err := s.Queue.Send(ctx, msg); err != nil {
			s.fail(ctx, a.ID, StatusQueued, fmt.Errorf("enqueue: %w", err), nil)
			return Assessment{}, fmt.Errorf("enqueue assessment: %w", err)
		}
		return a, nil
	}
	go func() {
		_ = s.ProcessAssessment(backgroundWithRequestID(ctx), a.ID)
	}()
	return a, nil
}

// Preview runs the rule engine without persisting anything.
func (s *Service) Preview(in kb.AssessmentInput) (kb.Analysis, string, error) {
	if err := prepareObservation(&in.Observation); err != nil {
		return kb.Analysis{}, "", err
	}
	engine := s.engine()
	analysis := engine.RunAnalysis(in)
	return analysis, engine.FormatForGeneration(analysis), nil
}

// Get returns an assessment by ID.
func (s *Service) Get(ctx context.Context, id string) (Assessment, error) {
	if strings.TrimSpace(id) == "" {
		return Assessment{}, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, id)
}

// ListByCustomer returns a customer's assessments newest first.
func (s *Service) ListByCustomer(ctx context.Context, rawPhone string, limit, offset int) ([]Assessment, error) {
	phone, err := util.NormalizePhone(rawPhone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.Repo.ListByCustomer(ctx, phone, limit, offset)
}

// Compare diffs the engine output of two assessments of the same customer.
func (s *Service) Compare(ctx context.Context, rawPhone, fromID, toID string) (Comparison, error) {
	phone, err := util.NormalizePhone(rawPhone)
	if err != nil {
		return Comparison{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if fromID == "" || toID == "" {
		return Comparison{}, fmt.Errorf("%w: from and to are required", ErrInvalidInput)
	}
	if fromID == toID {
		return Comparison{}, fmt.Errorf("%w: from and to must differ", ErrNotComparable)
	}
	from, err := s.Repo.GetByID(ctx, fromID)
	if err != nil {
		return Comparison{}, err
	}
	to, err := s.Repo.GetByID(ctx, toID)
	if err != nil {
		return Comparison{}, err
	}
	if from.CustomerPhone != phone || to.CustomerPhone != phone {
		return Comparison{}, fmt.Errorf("%w: assessments belong to different customers", ErrNotComparable)
	}
	return compare(from, to), nil
}

func compare(from, to Assessment) Comparison {
	fi, ti := from.Analysis.NormalizedIndices, to.Analysis.NormalizedIndices
	c := Comparison{
		From: snapshot(from),
		To:   snapshot(to),
		Delta: IndexDelta{
			Density:      ti.Density - fi.Density,
			MiniRate:     round2(ti.MiniRate - fi.MiniRate),
			ClogRate:     round2(ti.ClogRate - fi.ClogRate),
			RednessScore: round2(ti.RednessScore - fi.RednessScore),
		},
		Resolved:   []kb.Diagnosis{},
		Added:      []kb.Diagnosis{},
		Persisting: []kb.DiagnosisID{},
	}
	for _, d := range from.Analysis.Diagnoses {
		if kb.HasDiagnosis(to.Analysis.Diagnoses, d.ID) {
			c.Persisting = append(c.Persisting, d.ID)
		} else {
			c.Resolved = append(c.Resolved, d)
		}
	}
	for _, d := range to.Analysis.Diagnoses {
		if !kb.HasDiagnosis(from.Analysis.Diagnoses, d.ID) {
			c.Added = append(c.Added, d)
		}
	}
	return c
}

func snapshot(a Assessment) Snapshot {
	ids := make([]kb.DiagnosisID, 0, len(a.Analysis.Diagnoses))
	for _, d := range a.Analysis.Diagnoses {
		ids = append(ids, d.ID)
	}
	return Snapshot{
		ID:        a.ID,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
		Indices:   a.Analysis.NormalizedIndices,
		Diagnoses: ids,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ProcessAssessment generates the narrative report for a queued assessment.
// Terminal assessments are left untouched so redelivered jobs are harmless.
// Generator failures are recorded on the assessment and not returned.
func (s *Service) ProcessAssessment(ctx context.Context, id string) (err error) {
	startedAt := time.Now().UTC()
	defer func() {
		if r := recover(); r != nil {
			s.fail(ctx, id, StatusProcessing, fmt.Errorf("panic: %v", r), &startedAt)
			err = nil
		}
	}()

	a, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load assessment %s: %w", id, err)
	}
	if a.Terminal() {
		return nil
	}
	if err := s.Repo.UpdateStatus(ctx, id, StatusProcessing); err != nil {
		return fmt.Errorf("set processing %s: %w", id, err)
	}
	metrics.IncReportStarted()
	telemetry.Info("assessment.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"assessment_id":     id,
		"status":            StatusProcessing,
		"status_transition": a.Status + "->processing",
	})

	generator := s.Generator
	if generator == nil {
		generator = llm.PlaceholderGenerator{}
	}
	req := llm.ReportRequest{
		Prompt: llm.BuildPrompt(llm.PromptInput{
			Name:            a.Input.Name,
			AgeRange:        a.Input.AgeRange,
			ConsultantNotes: a.Input.ConsultantNotes,
			KBBlock:         a.PromptBlock,
		}),
		Images: loadGeneratorImages(ctx, s.Store, a),
	}
	res, genErr := newRetryingGenerator(generator, id, requestIDFromContext(ctx)).GenerateReport(ctx, req)
	if genErr != nil {
		s.fail(ctx, id, StatusProcessing, genErr, &startedAt)
		return nil
	}
	if strings.TrimSpace(res.ReportText) == "" {
		res.ReportText = llm.FallbackReportText
	}

	completedAt := time.Now().UTC()
	report := Report{Text: res.ReportText, Panel: res.Panel, Model: res.Model}
	if err := s.Repo.Complete(ctx, id, report, completedAt); err != nil {
		s.fail(ctx, id, StatusProcessing, fmt.Errorf("store report: %w", err), &startedAt)
		return nil
	}
	metrics.IncReportCompleted()
	metrics.ObserveReportDurationMs(durationMs(startedAt, completedAt))
	telemetry.Info("assessment.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"assessment_id":     id,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"duration_ms":       durationMs(startedAt, completedAt),
		"model":             res.Model,
	})
	return nil
}

func (s *Service) fail(ctx context.Context, id, from string, cause error, startedAt *time.Time) {
	msg := sanitizeError(cause)
	completedAt := time.Now().UTC()
	if err := s.Repo.Fail(context.Background(), id, ErrorCodeAnalysisFailed, msg, completedAt); err != nil {
		telemetry.Error("assessment.fail_update", map[string]any{
			"request_id":    requestIDFromContext(ctx),
			"assessment_id": id,
			"error":         sanitizeError(err),
			"cause":         msg,
		})
	}
	metrics.IncReportFailed()
	fields := map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"assessment_id":     id,
		"status":            StatusFailed,
		"status_transition": from + "->failed",
		"error_code":        ErrorCodeAnalysisFailed,
		"error":             msg,
	}
	if startedAt != nil {
		ms := durationMs(*startedAt, completedAt)
		metrics.ObserveReportDurationMs(ms)
		fields["duration_ms"] = ms
	}
	telemetry.Error("assessment.status", fields)
}

var defaultEngine = sync.OnceValue(func() *kb.Engine { return kb.NewEngine(nil) })

func (s *Service) engine() *kb.Engine {
	if s.Engine == nil {
		return defaultEngine()
	}
	return s.Engine
}

// prepareObservation applies the observation defaults and maps unknown
// values to ErrInvalidInput.
func prepareObservation(o *kb.ScalpObservation) error {
	if err := o.Normalize(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToValidUTF8(err.Error(), "\uFFFD")
	msg = strings.ReplaceAll(msg, "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return msg
}
