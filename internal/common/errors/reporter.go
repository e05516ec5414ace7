// internal/common/errors/reporter.go
package errors

import "time"

// Reporter logs errors from the assessment and escalation paths in a uniform
// shape so dashboards can group by code and category.
type Reporter struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func NewReporter(logger Logger) *Reporter {
	return &Reporter{logger: logger}
}

// Report normalizes err to a StandardError and logs it. Retryable errors log
// at warn level since the next tick or attempt will pick them up.
func (r *Reporter) Report(candidateID string, err error) *StandardError {
	stdErr := r.normalizeError(err)

	fields := map[string]interface{}{
		"candidateId": candidateID,
		"errorCode":   string(stdErr.Code),
		"category":    GetErrorCategory(stdErr.Code),
		"details":     stdErr.Details,
		"retryable":   stdErr.Retryable,
	}
	for k, v := range stdErr.Metadata {
		fields[k] = v
	}

	if stdErr.Retryable {
		r.logger.Warn(stdErr.Message, fields)
	} else {
		r.logger.Error(stdErr.Message, fields)
	}
	return stdErr
}

// normalizeError ensures we always have a StandardError
func (r *Reporter) normalizeError(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
