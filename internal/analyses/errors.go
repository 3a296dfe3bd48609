package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lexease-backend/internal/documents"
	"lexease-backend/internal/llm"
	"lexease-backend/internal/shared/util"
)

var (
	// ErrValidation rejects a request before any LLM call is made.
	ErrValidation            = errors.New("validation error")
	ErrAnalysisInProgress    = errors.New("analysis already in progress")
	ErrJobQueueNotConfigured = errors.New("job queue not configured")
)

// Failure codes recorded in logs and returned to API callers.
const (
	ErrorCodeValidation        = "VALIDATION_ERROR"
	ErrorCodeLLMTimeout        = "LLM_TIMEOUT"
	ErrorCodeLLMUnavailable    = "LLM_UNAVAILABLE"
	ErrorCodeLLMSchemaMismatch = "LLM_SCHEMA_MISMATCH"
	ErrorCodeStorage           = "STORAGE_ERROR"
	ErrorCodeInternal          = "INTERNAL_ERROR"
)

// StageError reports that one stage failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("stage %s failed", e.Stage)
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageErrors returns every StageError joined into err, looking through
// single-error wrappers on the way.
func StageErrors(err error) []*StageError {
	switch e := err.(type) {
	case nil:
		return nil
	case *StageError:
		return []*StageError{e}
	case interface{ Unwrap() []error }:
		var out []*StageError
		for _, inner := range e.Unwrap() {
			out = append(out, StageErrors(inner)...)
		}
		return out
	case interface{ Unwrap() error }:
		return StageErrors(e.Unwrap())
	}
	return nil
}

// Retryable reports whether running the job again could change the outcome.
// Joined stage failures are retryable when at least one of them is.
func Retryable(err error) bool {
	if stageErrs := StageErrors(err); len(stageErrs) > 0 {
		for _, se := range stageErrs {
			if _, retry := classifyFailure(se.Err); retry {
				return true
			}
		}
		return false
	}
	_, retry := classifyFailure(err)
	return retry
}

// classifyFailure maps an error to a failure code and whether retrying could help.
func classifyFailure(err error) (string, bool) {
	switch {
	case err == nil:
		return ErrorCodeInternal, false
	case errors.Is(err, ErrValidation):
		return ErrorCodeValidation, false
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorCodeLLMTimeout, true
	case errors.Is(err, llm.ErrInvalidJSON), errors.Is(err, errInvalidOutput):
		return ErrorCodeLLMSchemaMismatch, false
	case errors.Is(err, llm.ErrNotImplemented):
		return ErrorCodeLLMUnavailable, false
	case errors.Is(err, documents.ErrPersistence), errors.Is(err, documents.ErrNotFound):
		return ErrorCodeStorage, true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") {
		return ErrorCodeLLMTimeout, true
	}
	if llm.ShouldRetry(err) {
		return ErrorCodeLLMUnavailable, true
	}
	return ErrorCodeInternal, false
}

// sanitizeError flattens err into a single line of at most 500 characters.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	return util.Truncate(strings.TrimSpace(msg), 500)
}
