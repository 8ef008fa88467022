package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"scalpcare-backend/internal/bootstrap"
	"scalpcare-backend/internal/shared/config"
	"scalpcare-backend/internal/shared/metrics"
	"scalpcare-backend/internal/shared/telemetry"
	"scalpcare-backend/internal/workerproc"
)

const (
	defaultRegion             = "us-east-1"
	defaultVisibilitySeconds  = 600
	defaultWorkerConcurrency  = 4
	defaultShutdownTimeoutSec = 30
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

func main() {
	cfg := config.Load()

	queueURL := strings.TrimSpace(cfg.SQSQueueURL)
	if queueURL == "" {
		log.Fatal("SQS_QUEUE_URL is required")
	}
	region := cfg.AWSRegion
	if region == "" {
		region = defaultRegion
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	visibilitySeconds := envInt("SQS_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds)
	concurrency := max(1, envInt("WORKER_CONCURRENCY", defaultWorkerConcurrency))
	shutdownTimeout := time.Duration(envInt("SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}
	var client sqsAPI = sqs.NewFromConfig(awsCfg)

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	log.Printf("worker started queue=%s concurrency=%d visibility=%ds", queueURL, concurrency, visibilitySeconds)

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   int32(visibilitySeconds),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			log.Printf("receive message: %v", err)
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				// Jobs outlive the poll context so a shutdown lets them finish.
				handleMessage(context.WithoutCancel(ctx), client, queueURL, app.Processor, m)
			}(msg)
		}
	}

	log.Printf("shutdown requested, waiting up to %s for in-flight jobs", shutdownTimeout)
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(shutdownTimeout):
		log.Printf("shutdown timeout reached; exiting with in-flight jobs")
	}
}

// handleMessage processes one SQS message. Successful and unrecoverable
// messages are deleted; anything else is left for redelivery.
func handleMessage(ctx context.Context, client sqsAPI, queueURL string, proc workerproc.Processor, msg sqstypes.Message) {
	metrics.IncJobReceived()
	body := aws.ToString(msg.Body)

	decoded, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, decoded.AssessmentID, decoded.RequestID)
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.assessment.invalid_message", fields)
		if deleteMessage(ctx, client, queueURL, msg, decoded.AssessmentID, decoded.RequestID) {
			metrics.IncJobDeletedUnrecoverable()
		}
		return
	}

	telemetry.Info("worker.assessment.received", baseFields(msg, decoded.AssessmentID, decoded.RequestID))

	err = workerproc.HandleMessage(workerproc.WithParsedMessage(ctx, decoded), proc, body)
	if err != nil {
		fields := baseFields(msg, decoded.AssessmentID, decoded.RequestID)
		fields["error"] = err.Error()
		if workerproc.IsUnrecoverable(err) {
			telemetry.Error("worker.assessment.unrecoverable", fields)
			if deleteMessage(ctx, client, queueURL, msg, decoded.AssessmentID, decoded.RequestID) {
				metrics.IncJobDeletedUnrecoverable()
			}
			return
		}
		telemetry.Error("worker.assessment.failed", fields)
		metrics.IncJobFailed()
		return
	}

	if deleteMessage(ctx, client, queueURL, msg, decoded.AssessmentID, decoded.RequestID) {
		telemetry.Info("worker.assessment.completed", baseFields(msg, decoded.AssessmentID, decoded.RequestID))
		metrics.IncJobCompleted()
	}
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, assessmentID, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, assessmentID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.assessment.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, assessmentID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.assessment.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, assessmentID, requestID string) map[string]any {
	fields := map[string]any{
		"assessment_id":  assessmentID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
