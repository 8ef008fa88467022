package assessments

import (
	"context"
	"errors"
	"log"
	"net"
	"time"

	"scalpcare-backend/internal/llm"
	"scalpcare-backend/internal/shared/metrics"
)

var generatorRetryDelay = 300 * time.Millisecond

type retryingGenerator struct {
	base         llm.ReportGenerator
	requestID    string
	assessmentID string
}

func newRetryingGenerator(base llm.ReportGenerator, assessmentID, requestID string) llm.ReportGenerator {
	if base == nil {
		return nil
	}
	return retryingGenerator{base: base, requestID: requestID, assessmentID: assessmentID}
}

// GenerateReport retries once on a transient failure.
func (r retryingGenerator) GenerateReport(ctx context.Context, req llm.ReportRequest) (llm.ReportResult, error) {
	res, err := r.base.GenerateReport(ctx, req)
	if err == nil || !shouldRetryGenerator(err) {
		return res, err
	}

	metrics.IncReportRetry()
	log.Printf("report retry attempt=1 request_id=%s assessment_id=%s error=%s", r.requestID, r.assessmentID, sanitizeError(err))
	select {
	case <-time.After(generatorRetryDelay):
	case <-ctx.Done():
		return llm.ReportResult{}, llm.FromTransport(ctx.Err())
	}
	return r.base.GenerateReport(ctx, req)
}

func shouldRetryGenerator(err error) bool {
	var genErr *llm.GenerationError
	if errors.As(err, &genErr) {
		return genErr.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
