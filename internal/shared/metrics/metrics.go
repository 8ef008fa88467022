package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	assessmentsCreatedTotal atomic.Uint64
	reportsStartedTotal     atomic.Uint64
	reportsCompletedTotal   atomic.Uint64
	reportsFailedTotal      atomic.Uint64
	reportRetriesTotal      atomic.Uint64

	jobsReceivedTotal             atomic.Uint64
	jobsCompletedTotal            atomic.Uint64
	jobsFailedTotal               atomic.Uint64
	jobsDeletedUnrecoverableTotal atomic.Uint64

	diagnoses = newLabeledCounter()

	reportDuration = newHistogram([]float64{500, 1000, 2500, 5000, 10000, 30000, 60000, 120000})
)

// IncAssessmentCreated counts an assessment accepted by the API.
func IncAssessmentCreated() {
	assessmentsCreatedTotal.Add(1)
}

// IncDiagnosis counts one emitted diagnosis by ID.
func IncDiagnosis(id string) {
	diagnoses.Inc(id)
}

// IncReportStarted increments the report generation started counter.
func IncReportStarted() {
	reportsStartedTotal.Add(1)
}

// IncReportCompleted increments the report generation completed counter.
func IncReportCompleted() {
	reportsCompletedTotal.Add(1)
}

// IncReportFailed increments the report generation failed counter.
func IncReportFailed() {
	reportsFailedTotal.Add(1)
}

// IncReportRetry counts a retried generator call.
func IncReportRetry() {
	reportRetriesTotal.Add(1)
}

// IncJobReceived counts a queue message picked up by a worker.
func IncJobReceived() {
	jobsReceivedTotal.Add(1)
}

// IncJobCompleted counts a queue message processed and deleted.
func IncJobCompleted() {
	jobsCompletedTotal.Add(1)
}

// IncJobFailed counts a queue message left for redelivery.
func IncJobFailed() {
	jobsFailedTotal.Add(1)
}

// IncJobDeletedUnrecoverable counts a malformed or orphaned message that was dropped.
func IncJobDeletedUnrecoverable() {
	jobsDeletedUnrecoverableTotal.Add(1)
}

// ObserveReportDurationMs records a report generation duration in milliseconds.
func ObserveReportDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	reportDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "assessments_created_total", "Total assessments accepted", assessmentsCreatedTotal.Load())
	writeLabeledCounter(&buf, "diagnoses_total", "Diagnoses emitted by the rule engine", "id", diagnoses.Snapshot())
	writeCounter(&buf, "reports_started_total", "Total report generations started", reportsStartedTotal.Load())
	writeCounter(&buf, "reports_completed_total", "Total report generations completed", reportsCompletedTotal.Load())
	writeCounter(&buf, "reports_failed_total", "Total report generations failed", reportsFailedTotal.Load())
	writeCounter(&buf, "report_retries_total", "Total retried generator calls", reportRetriesTotal.Load())
	writeCounter(&buf, "jobs_received_total", "Total queue messages received", jobsReceivedTotal.Load())
	writeCounter(&buf, "jobs_completed_total", "Total queue messages completed", jobsCompletedTotal.Load())
	writeCounter(&buf, "jobs_failed_total", "Total queue messages left for retry", jobsFailedTotal.Load())
	writeCounter(&buf, "jobs_deleted_unrecoverable_total", "Total unrecoverable queue messages deleted", jobsDeletedUnrecoverableTotal.Load())
	writeHistogram(&buf, "report_duration_ms", "Report generation duration in milliseconds", reportDuration.Snapshot())
	return buf.String()
}

type labeledCounter struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newLabeledCounter() *labeledCounter {
	return &labeledCounter{values: make(map[string]uint64)}
}

func (l *labeledCounter) Inc(label string) {
	l.mu.Lock()
	l.values[label]++
	l.mu.Unlock()
}

func (l *labeledCounter) Snapshot() map[string]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]uint64, len(l.values))
	for k, v := range l.values {
		out[k] = v
	}
	return out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe places value in the first bucket whose bound it does not exceed.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeLabeledCounter(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
