// Package workerproc turns queue deliveries into advisor report runs. It is
// shared by the long-polling worker and the Lambda SQS handler.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"career-hub/internal/queue"
	"career-hub/internal/shared/telemetry"
)

// ReportProcessor runs a queued report to completion.
type ReportProcessor interface {
	ProcessReport(ctx context.Context, reportID string) error
}

// MessageMeta captures details useful for logging and diagnostics.
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

// ErrDecode indicates a JSON decode failure.
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

// ErrMissingReportID indicates a message without a report id.
type ErrMissingReportID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingReportID) Error() string { return "missing report id" }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	ReportID  string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process report"
	}
	return "process report: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Poison reports whether err can never succeed on redelivery, so the message
// should be deleted rather than retried.
func Poison(err error) bool {
	var empty ErrEmptyBody
	var decode ErrDecode
	var missing ErrMissingReportID
	return errors.As(err, &empty) || errors.As(err, &decode) || errors.As(err, &missing)
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
	if strings.TrimSpace(msg.ReportID) == "" {
		return msg, meta, ErrMissingReportID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// HandleMessage parses body and processes the report it names. The request id
// carried by the message is attached to ctx for logging.
func HandleMessage(ctx context.Context, processor ReportProcessor, body string) error {
	if processor == nil {
		return errors.New("report processor not configured")
	}
	msg, meta, err := ParseMessage(body)
	if err != nil {
		telemetry.Warn("worker.message_invalid", map[string]any{
			"body_len": meta.BodyLen,
			"body_sha": meta.BodySHA,
			"error":    err,
		})
		return err
	}

	ctx = telemetry.WithRequestID(ctx, msg.RequestID)
	if err := processor.ProcessReport(ctx, msg.ReportID); err != nil {
		return ErrProcess{ReportID: msg.ReportID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}
