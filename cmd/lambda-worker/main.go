package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"lexease-backend/internal/bootstrap"
	"lexease-backend/internal/shared/config"
	"lexease-backend/internal/shared/metrics"
	"lexease-backend/internal/shared/telemetry"
	"lexease-backend/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	proc     workerproc.Processor
)

func initApp() {
	cfg := config.Load()
	// Jobs run inline; nothing here enqueues.
	cfg.QueueURL = ""
	app, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": err.Error()})
		return
	}
	proc = app.AnalysesService
}

// handler reports partial batch failures so only retryable records are
// redelivered. Unrecoverable records are acknowledged and dropped.
func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		return events.SQSEventResponse{BatchItemFailures: allFailed(event)}, initErr
	}
	return processBatch(ctx, proc, event), nil
}

func processBatch(ctx context.Context, p workerproc.Processor, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		metrics.IncJobsReceived()
		fields := map[string]any{"sqs_message_id": record.MessageId}

		err := workerproc.HandleMessage(ctx, p, record.Body)
		switch {
		case err == nil:
			metrics.IncJobsCompleted()
			telemetry.Info("worker.analysis.completed", fields)
		case workerproc.Unrecoverable(err):
			metrics.IncJobsDiscarded()
			fields["error"] = err.Error()
			telemetry.Error("worker.analysis.discarded", fields)
		default:
			metrics.IncJobsFailed()
			fields["error"] = err.Error()
			telemetry.Error("worker.analysis.failed", fields)
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func allFailed(event events.SQSEvent) []events.SQSBatchItemFailure {
	failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
	for _, record := range event.Records {
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}
	return failures
}

func main() {
	lambda.Start(handler)
}
