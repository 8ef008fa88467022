package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"scalpcare-backend/internal/assessments"
	"scalpcare-backend/internal/queue"
)

// Processor generates the report for a queued assessment.
type Processor interface {
	ProcessAssessment(ctx context.Context, id string) error
}

// MessageMeta identifies a payload in logs without printing it.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a payload that is not a valid message.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrMissingAssessmentID indicates a message without an assessment id.
type ErrMissingAssessmentID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingAssessmentID) Error() string { return "missing assessment id" }

// ErrProcess wraps a failure returned by the processor.
type ErrProcess struct {
	AssessmentID string
	RequestID    string
	Err          error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process assessment"
	}
	return "process assessment: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Unrecoverable reports whether redelivery cannot succeed.
func (e ErrProcess) Unrecoverable() bool {
	return errors.Is(e.Err, assessments.ErrNotFound)
}

// IsUnrecoverable reports whether a HandleMessage error should drop the
// message instead of leaving it for redelivery.
func IsUnrecoverable(err error) bool {
	var empty ErrEmptyBody
	var decode ErrDecode
	var missing ErrMissingAssessmentID
	var proc ErrProcess
	switch {
	case errors.As(err, &empty), errors.As(err, &decode), errors.As(err, &missing):
		return true
	case errors.As(err, &proc):
		return proc.Unrecoverable()
	}
	return false
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if msg.Version > queue.MessageVersion {
		return msg, meta, ErrDecode{Meta: meta, Err: fmt.Errorf("unsupported version %d", msg.Version)}
	}
	if strings.TrimSpace(msg.AssessmentID) == "" {
		return msg, meta, ErrMissingAssessmentID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// HandleMessage parses a payload, unless one is already in ctx, and
// runs the processor for the referenced assessment.
func HandleMessage(ctx context.Context, proc Processor, body string) error {
	if proc == nil {
		return errors.New("assessment processor not configured")
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return err
		}
	}
	if strings.TrimSpace(msg.AssessmentID) == "" {
		return ErrMissingAssessmentID{Meta: ComputeMeta(body), RequestID: msg.RequestID}
	}

	ctx = assessments.WithRequestID(ctx, msg.RequestID)
	if err := proc.ProcessAssessment(ctx, msg.AssessmentID); err != nil {
		return ErrProcess{AssessmentID: msg.AssessmentID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}
