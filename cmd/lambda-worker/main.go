package main

// Build the report worker Lambda:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"career-hub/internal/bootstrap"
	"career-hub/internal/shared/config"
	"career-hub/internal/shared/metrics"
	"career-hub/internal/shared/telemetry"
	"career-hub/internal/workerproc"
)

var (
	mu        sync.Mutex
	processor workerproc.ReportProcessor
)

func loadProcessor() (workerproc.ReportProcessor, error) {
	mu.Lock()
	defer mu.Unlock()
	if processor != nil {
		return processor, nil
	}
	cfg := config.Load()
	if err := telemetry.Init(cfg.LogFormat, cfg.LogLevel); err != nil {
		return nil, err
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		return nil, err
	}
	processor = app.Reports
	return processor, nil
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	proc, err := loadProcessor()
	if err != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": err, "records": len(event.Records)})
		return events.SQSEventResponse{BatchItemFailures: failAll(event.Records)}, nil
	}
	return processBatch(ctx, proc, event.Records), nil
}

// processBatch reports only retryable failures; poison messages count as
// handled so SQS drops them.
func processBatch(ctx context.Context, proc workerproc.ReportProcessor, records []events.SQSMessage) events.SQSEventResponse {
	var failures []events.SQSBatchItemFailure
	for _, record := range records {
		metrics.IncReportJobsReceived()
		err := workerproc.HandleMessage(ctx, proc, record.Body)
		switch {
		case err == nil:
			metrics.IncReportJobsProcessed()
		case workerproc.Poison(err):
			telemetry.Warn("worker.poison_message", map[string]any{"sqs_message_id": record.MessageId, "error": err})
		default:
			metrics.IncReportJobsFailed()
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func failAll(records []events.SQSMessage) []events.SQSBatchItemFailure {
	out := make([]events.SQSBatchItemFailure, 0, len(records))
	for _, record := range records {
		out = append(out, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}
	return out
}

func main() {
	lambda.Start(handler)
}
