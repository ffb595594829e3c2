package workerproc

import (
	"context"
	"errors"
	"testing"

	"career-hub/internal/queue"
	"career-hub/internal/shared/telemetry"
)

type recordingProcessor struct {
	ids        []string
	requestIDs []string
	err        error
}

func (p *recordingProcessor) ProcessReport(ctx context.Context, reportID string) error {
	p.ids = append(p.ids, reportID)
	p.requestIDs = append(p.requestIDs, telemetry.RequestIDFrom(ctx))
	return p.err
}

func encode(t *testing.T, msg queue.Message) string {
	t.Helper()
	body, err := queue.EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(body)
}

func TestHandleMessageProcessesReport(t *testing.T) {
	p := &recordingProcessor{}
	body := encode(t, queue.NewMessage("r1", "req-9"))

	if err := HandleMessage(context.Background(), p, body); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(p.ids) != 1 || p.ids[0] != "r1" {
		t.Fatalf("unexpected ids %v", p.ids)
	}
	if p.requestIDs[0] != "req-9" {
		t.Fatalf("request id should propagate, got %q", p.requestIDs[0])
	}
}

func TestHandleMessageErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		procErr    error
		wantPoison bool
	}{
		{"empty body", "  ", nil, true},
		{"bad json", "{not json", nil, true},
		{"missing report id", `{"requestId":"x","version":1}`, nil, true},
		{"processing failure", `{"reportId":"r1","version":1}`, errors.New("llm down"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := HandleMessage(context.Background(), &recordingProcessor{err: tt.procErr}, tt.body)
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := Poison(err); got != tt.wantPoison {
				t.Fatalf("Poison(%v) = %v, want %v", err, got, tt.wantPoison)
			}
		})
	}
}

func TestComputeMeta(t *testing.T) {
	if meta := ComputeMeta(""); meta.BodyLen != 0 || meta.BodySHA != "" {
		t.Fatalf("unexpected meta for empty body: %+v", meta)
	}
	meta := ComputeMeta("abc")
	if meta.BodyLen != 3 || len(meta.BodySHA) != 64 {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}
