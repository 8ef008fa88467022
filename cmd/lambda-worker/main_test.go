package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

type stubProcessor map[string]error

func (s stubProcessor) ProcessAssessment(ctx context.Context, id string) error {
	return s[id]
}

func TestProcessBatchReportsRetryableFailuresOnly(t *testing.T) {
	proc := stubProcessor{"bad": errors.New("db down")}
	event := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: `{"assessmentId":"ok","version":1}`},
		{MessageId: "m2", Body: `{"assessmentId":"bad","version":1}`},
		{MessageId: "m3", Body: `not-json`},
	}}

	resp := processBatch(context.Background(), proc, event)

	if len(resp.BatchItemFailures) != 1 {
		t.Fatalf("expected 1 failure, got %+v", resp.BatchItemFailures)
	}
	if resp.BatchItemFailures[0].ItemIdentifier != "m2" {
		t.Fatalf("unexpected failure %q", resp.BatchItemFailures[0].ItemIdentifier)
	}
}
