// Package errors provides standardized error handling for the risk engine.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Journey state machine
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	// Assessment pipeline
	ErrCodeScorerUnavailable ErrorCode = "SCORER_UNAVAILABLE"
	ErrCodeExtractionFailed  ErrorCode = "EXTRACTION_FAILED"
	ErrCodeScoringFailed     ErrorCode = "SCORING_FAILED"

	// Escalation / notification
	ErrCodeDispatchFailed ErrorCode = "DISPATCH_FAILED"

	// Registry / storage
	ErrCodeRegistryUnavailable ErrorCode = "REGISTRY_UNAVAILABLE"
	ErrCodeCandidateNotFound   ErrorCode = "CANDIDATE_NOT_FOUND"
	ErrCodeDatabaseWriteFailed ErrorCode = "DATABASE_WRITE_FAILED"

	// Ingestion
	ErrCodeDuplicateMessage       ErrorCode = "DUPLICATE_MESSAGE"
	ErrCodeInvalidActivityPayload ErrorCode = "INVALID_ACTIVITY_PAYLOAD"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidTransitionError creates a non-retryable state machine error.
// The candidate's state is unchanged when this is returned.
func NewInvalidTransitionError(state, trigger string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   "Transition not allowed from current journey state",
		Details:   fmt.Sprintf("state: %s, trigger: %s", state, trigger),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewScorerUnavailableError creates a retryable scorer error. The current
// assessment is skipped; the next scheduler tick retries.
func NewScorerUnavailableError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeScorerUnavailable,
		Message:   "Risk scorer not initialized or unreachable",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewExtractionFailedError creates a per-candidate extraction error.
func NewExtractionFailedError(candidateID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExtractionFailed,
		Message:   "Feature extraction failed for candidate",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"candidateId": candidateID},
		Timestamp: time.Now().UTC(),
	}
}

// NewScoringFailedError creates a per-candidate scoring error.
func NewScoringFailedError(candidateID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeScoringFailed,
		Message:   "Risk scoring failed for candidate",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"candidateId": candidateID},
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatchFailedError creates an error raised after the retry budget for a
// notification step is exhausted. The escalation sequence continues with the
// remaining steps.
func NewDispatchFailedError(channel string, attempts int, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchFailed,
		Message:   "Notification dispatch failed after retries",
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"channel": channel, "attempts": attempts},
		Timestamp: time.Now().UTC(),
	}
}

// NewRegistryUnavailableError creates a tick-fatal registry error, retried on
// the next scheduled tick.
func NewRegistryUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRegistryUnavailable,
		Message:   "Candidate registry unreachable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCandidateNotFoundError creates a non-retryable lookup error.
func NewCandidateNotFoundError(candidateID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCandidateNotFound,
		Message:   "Candidate not registered",
		Details:   fmt.Sprintf("candidateId: %s", candidateID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseWriteFailedError creates a retryable persistence error.
func NewDatabaseWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseWriteFailed,
		Message:   "Database write error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateMessageError signals an idempotent no-op: the message id was
// already counted in the feature window.
func NewDuplicateMessageError(messageID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateMessage,
		Message:   "Message already registered",
		Details:   fmt.Sprintf("messageId: %s", messageID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidActivityPayloadError creates a non-retryable ingestion error.
func NewInvalidActivityPayloadError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidActivityPayload,
		Message:   "Activity payload failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// IsCode reports whether err is a StandardError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}

// IsRetryable reports whether err should be retried by its caller. Unknown
// errors are treated as non-retryable.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TRANSITION"):
		return "JOURNEY"
	case strings.Contains(codeStr, "SCOR") || strings.Contains(codeStr, "EXTRACTION"):
		return "ASSESSMENT"
	case strings.Contains(codeStr, "DISPATCH"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "REGISTRY") || strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "CANDIDATE"):
		return "REGISTRY"
	case strings.Contains(codeStr, "MESSAGE") || strings.Contains(codeStr, "PAYLOAD"):
		return "INGEST"
	default:
		return "OTHER"
	}
}
