package advisor

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrQueueNotConfigured = errors.New("report queue not configured")
	ErrAlreadyProcessed   = errors.New("report already processed")
)

const (
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeLLMTimeout = "LLM_TIMEOUT"
	ErrorCodeLLM        = "LLM_ERROR"
	ErrorCodeStorage    = "STORAGE_ERROR"
	ErrorCodeInternal   = "INTERNAL_ERROR"
)
