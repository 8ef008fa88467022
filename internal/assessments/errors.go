package assessments

import "errors"

var (
	ErrNotFound         = errors.New("assessment not found")
	ErrInvalidInput     = errors.New("invalid assessment input")
	ErrNotComparable    = errors.New("assessments are not comparable")
	ErrCustomerNotFound = errors.New("customer not found")
)

const (
	// ErrorCodeAnalysisFailed is the single code recorded for any failed report.
	ErrorCodeAnalysisFailed = "ANALYSIS_FAILED"
)
