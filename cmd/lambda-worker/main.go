package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"log"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"scalpcare-backend/internal/bootstrap"
	"scalpcare-backend/internal/shared/config"
	"scalpcare-backend/internal/shared/metrics"
	"scalpcare-backend/internal/shared/telemetry"
	"scalpcare-backend/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	proc     workerproc.Processor
)

func initApp() {
	app, err := bootstrap.Build(config.Load())
	if err != nil {
		initErr = err
		return
	}
	proc = app.Processor
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		log.Printf("bootstrap error: %v", initErr)
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return processBatch(ctx, proc, event), nil
}

// processBatch reports only retryable failures so unrecoverable records
// are dropped from the queue.
func processBatch(ctx context.Context, p workerproc.Processor, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		metrics.IncJobReceived()
		err := workerproc.HandleMessage(ctx, p, record.Body)
		switch {
		case err == nil:
			metrics.IncJobCompleted()
		case workerproc.IsUnrecoverable(err):
			telemetry.Error("worker.assessment.unrecoverable", map[string]any{
				"sqs_message_id": record.MessageId,
				"error":          err.Error(),
			})
			metrics.IncJobDeletedUnrecoverable()
		default:
			telemetry.Error("worker.assessment.failed", map[string]any{
				"sqs_message_id": record.MessageId,
				"error":          err.Error(),
			})
			metrics.IncJobFailed()
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
