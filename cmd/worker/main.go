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

	"career-hub/internal/bootstrap"
	"career-hub/internal/queue"
	"career-hub/internal/shared/config"
	"career-hub/internal/shared/metrics"
	"career-hub/internal/shared/telemetry"
	"career-hub/internal/workerproc"
)

const (
	defaultWorkerConcurrency  = 4
	defaultShutdownTimeoutSec = 30
	receiveBatch              = 10
)

type receiver interface {
	Receive(ctx context.Context, max int32) ([]queue.Delivery, error)
	Ack(ctx context.Context, d queue.Delivery) error
}

func main() {
	cfg := config.Load()
	if strings.TrimSpace(cfg.SQSQueueURL) == "" {
		log.Fatal("SQS_QUEUE_URL is required")
	}
	if err := telemetry.Init(cfg.LogFormat, cfg.LogLevel); err != nil {
		log.Printf("logger init: %v", err)
	}
	defer telemetry.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	concurrency := envInt("WORKER_CONCURRENCY", defaultWorkerConcurrency)
	shutdownTimeout := time.Duration(envInt("SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second

	telemetry.Info("worker.started", map[string]any{"queue": cfg.SQSQueueURL, "concurrency": concurrency})
	wait := run(ctx, app.SQS, app.Reports, concurrency)

	telemetry.Info("worker.draining", map[string]any{"timeout": shutdownTimeout.String()})
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		telemetry.Warn("worker.shutdown_timeout", nil)
	}
}

// run polls until ctx is cancelled, processing up to concurrency deliveries
// at once. The returned func blocks until in-flight work finishes.
func run(ctx context.Context, q receiver, processor workerproc.ReportProcessor, concurrency int) func() {
	sem := make(chan struct{}, max(1, concurrency))
	var wg sync.WaitGroup

	for ctx.Err() == nil {
		deliveries, err := q.Receive(ctx, receiveBatch)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				break
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err})
			continue
		}

		for _, d := range deliveries {
			select {
			case <-ctx.Done():
				return wg.Wait
			case sem <- struct{}{}:
			}
			metrics.IncReportJobsReceived()
			wg.Add(1)
			go func(d queue.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				handleDelivery(context.WithoutCancel(ctx), q, processor, d)
			}(d)
		}
	}
	return wg.Wait
}

// handleDelivery acks on success and on messages that can never succeed.
// Other failures are left for SQS to redeliver.
func handleDelivery(ctx context.Context, q receiver, processor workerproc.ReportProcessor, d queue.Delivery) {
	err := workerproc.HandleMessage(ctx, processor, d.Body)
	if err != nil && !workerproc.Poison(err) {
		metrics.IncReportJobsFailed()
		telemetry.Error("worker.report_failed", map[string]any{"sqs_message_id": d.ID, "error": err})
		return
	}

	if err := q.Ack(ctx, d); err != nil {
		telemetry.Error("worker.ack_failed", map[string]any{"sqs_message_id": d.ID, "error": err})
		return
	}
	if err == nil {
		metrics.IncReportJobsProcessed()
	}
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
