package advisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"career-hub/internal/documents"
	"career-hub/internal/llm"
	"career-hub/internal/queue"
	"career-hub/internal/shared/metrics"
	"career-hub/internal/shared/telemetry"
	"career-hub/internal/usage"
)

// DocumentSource resolves uploaded résumés and their text.
type DocumentSource interface {
	Get(ctx context.Context, userID, documentID string) (documents.Document, error)
	Text(ctx context.Context, userID, documentID string) (string, error)
}

// Recommender produces a recommendation from résumé text.
type Recommender interface {
	Recommend(ctx context.Context, cvText string) (Recommendation, error)
}

// Service contains business logic for advisor reports.
type Service struct {
	Repo  Repo
	Docs  DocumentSource
	Agent Recommender
	Usage *usage.Service
	// Queue hands reports to a worker. When nil they are processed in a
	// goroutine of the API process.
	Queue queue.Client
	Model string
}

// Recommend runs the advisor synchronously on raw résumé text.
func (s *Service) Recommend(ctx context.Context, cvText string) (Recommendation, error) {
	return s.Agent.Recommend(ctx, cvText)
}

// Create queues a report for one of the user's documents.
func (s *Service) Create(ctx context.Context, userID, documentID string) (Report, error) {
	if userID == "" || strings.TrimSpace(documentID) == "" {
		return Report{}, fmt.Errorf("%w: documentId is required", ErrInvalidInput)
	}
	if _, err := s.Docs.Get(ctx, userID, documentID); err != nil {
		return Report{}, err
	}

	report := Report{
		ID:         uuid.NewString(),
		UserID:     userID,
		DocumentID: documentID,
		Status:     StatusQueued,
		Model:      s.Model,
		CreatedAt:  time.Now().UTC(),
	}
	err := s.Usage.Gate(ctx, userID, func() error {
		return s.Repo.Create(ctx, report)
	})
	if err != nil {
		return Report{}, err
	}

	telemetry.Info("report.status", map[string]any{
		"request_id":  telemetry.RequestIDFrom(ctx),
		"user_id":     userID,
		"document_id": documentID,
		"report_id":   report.ID,
		"status":      StatusQueued,
	})

	if s.Queue == nil {
		go func(ctx context.Context) {
			_ = s.ProcessReport(ctx, report.ID)
		}(telemetry.Detach(ctx))
		return report, nil
	}

	if err := s.Queue.Send(ctx, queue.NewMessage(report.ID, telemetry.RequestIDFrom(ctx))); err != nil {
		s.fail(telemetry.Detach(ctx), report, fmt.Errorf("enqueue report: %w", err), nil)
		return Report{}, err
	}
	return report, nil
}

// Get returns one of the user's reports.
func (s *Service) Get(ctx context.Context, userID, id string) (Report, error) {
	report, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Report{}, err
	}
	if report.UserID != userID {
		return Report{}, ErrNotFound
	}
	return report, nil
}

// List returns the user's reports newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Report, error) {
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Claim moves a guest's reports to the authenticated user.
func (s *Service) Claim(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if guestUserID == "" || authedUserID == "" || guestUserID == authedUserID {
		return 0, nil
	}
	return s.Repo.ClaimGuest(ctx, guestUserID, authedUserID)
}

// ProcessReport moves a queued report through processing to completed or
// failed. Reports that already finished are left alone.
func (s *Service) ProcessReport(ctx context.Context, id string) (err error) {
	report, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("report lookup: %w", err)
	}

	startedAt := time.Now().UTC()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.fail(ctx, report, err, &startedAt)
		}
	}()

	if err := s.Repo.MarkProcessing(ctx, id, startedAt); err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			telemetry.Info("report.skipped", map[string]any{
				"request_id": telemetry.RequestIDFrom(ctx),
				"report_id":  id,
				"status":     report.Status,
			})
			return nil
		}
		err = fmt.Errorf("set processing failed: %w", err)
		s.fail(ctx, report, err, &startedAt)
		return err
	}
	metrics.IncReportStarted()
	s.logStatus(ctx, report, StatusProcessing, "queued->processing", nil)

	text, err := s.Docs.Text(ctx, report.UserID, report.DocumentID)
	if err != nil {
		err = fmt.Errorf("document text: %w", err)
		s.fail(ctx, report, err, &startedAt)
		return err
	}

	rec, err := s.Agent.Recommend(ctx, text)
	if err != nil {
		s.fail(ctx, report, err, &startedAt)
		return err
	}

	completedAt := time.Now().UTC()
	if err := s.Repo.Complete(ctx, id, rec, completedAt); err != nil {
		err = fmt.Errorf("storage: save report: %w", err)
		s.fail(ctx, report, err, &startedAt)
		return err
	}
	metrics.IncReportCompleted()
	metrics.ObserveReportDurationMs(durationMs(&startedAt, &completedAt))
	s.logStatus(ctx, report, StatusCompleted, "processing->completed", &startedAt)
	return nil
}

func (s *Service) fail(ctx context.Context, report Report, err error, startedAt *time.Time) {
	code, retryable := classifyFailure(err)
	msg := sanitizeError(err)
	completedAt := time.Now().UTC()
	if updateErr := s.Repo.Fail(context.Background(), report.ID, code, msg, retryable, completedAt); updateErr != nil {
		telemetry.Error("report.fail_update", map[string]any{
			"request_id": telemetry.RequestIDFrom(ctx),
			"report_id":  report.ID,
			"error":      updateErr,
			"cause":      msg,
		})
	}
	metrics.IncReportFailed()
	if startedAt != nil {
		metrics.ObserveReportDurationMs(durationMs(startedAt, &completedAt))
	}
	telemetry.Warn("report.status", map[string]any{
		"request_id":  telemetry.RequestIDFrom(ctx),
		"user_id":     report.UserID,
		"document_id": report.DocumentID,
		"report_id":   report.ID,
		"status":      StatusFailed,
		"error_code":  code,
		"retryable":   retryable,
		"error":       msg,
	})
}

func (s *Service) logStatus(ctx context.Context, report Report, status, transition string, startedAt *time.Time) {
	fields := map[string]any{
		"request_id":        telemetry.RequestIDFrom(ctx),
		"user_id":           report.UserID,
		"document_id":       report.DocumentID,
		"report_id":         report.ID,
		"status":            status,
		"status_transition": transition,
	}
	if startedAt != nil {
		now := time.Now().UTC()
		fields["duration_ms"] = durationMs(startedAt, &now)
	}
	telemetry.Info("report.status", fields)
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}

// classifyFailure maps an error onto a stored error code and whether a retry
// could succeed.
func classifyFailure(err error) (string, bool) {
	if err == nil {
		return ErrorCodeInternal, false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeLLMTimeout, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorCodeLLMTimeout, true
	}
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, documents.ErrInvalidInput) {
		return ErrorCodeValidation, false
	}
	if errors.Is(err, documents.ErrNotFound) {
		return ErrorCodeStorage, false
	}
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		return ErrorCodeLLM, llm.IsTransient(err)
	}
	if errors.Is(err, llm.ErrNotConfigured) {
		return ErrorCodeLLM, false
	}
	if errors.Is(err, llm.ErrEmptyResponse) {
		return ErrorCodeLLM, true
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return ErrorCodeLLMTimeout, true
	case strings.Contains(msg, "no text could be extracted"), strings.Contains(msg, "unsupported"):
		return ErrorCodeValidation, false
	case strings.Contains(msg, "llm"):
		return ErrorCodeLLM, true
	case strings.Contains(msg, "document"), strings.Contains(msg, "storage"), strings.Contains(msg, "set processing"), strings.Contains(msg, "enqueue"):
		return ErrorCodeStorage, true
	}
	return ErrorCodeInternal, false
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
