package common

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrStorage      = errors.New("storage error")
)

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ValidationError reports malformed caller input. It is never retried and
// surfaces to the caller as an InvalidArgument-equivalent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
}

// TransientError marks a failure expected to potentially succeed on retry
// (connection reset, 5xx, vendor rate limit). The retry layer absorbs these
// up to its attempt ceiling; anything else propagates on first occurrence.
type TransientError struct {
	Op         string
	StatusCode int
	Cause      error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: transient failure (status %d): %v", e.Op, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("%s: transient failure: %v", e.Op, e.Cause)
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// IsTransient reports whether err is retryable per the taxonomy.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// TaskFailedError reports a terminal failure status from the vendor. Carries
// the job id and the vendor-provided detail; never retried automatically.
type TaskFailedError struct {
	JobID  string
	Phase  string
	Detail string
}

func (e *TaskFailedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("task %s terminated with phase %s", e.JobID, e.Phase)
	}
	return fmt.Sprintf("task %s terminated with phase %s: %s", e.JobID, e.Phase, e.Detail)
}

// TaskTimeoutError reports that polling exhausted its attempt budget without
// reaching a terminal state. Distinct from TaskFailedError because the job
// may still complete vendor-side; callers decide whether to resubmit.
type TaskTimeoutError struct {
	JobID    string
	Attempts int
	Elapsed  time.Duration
	LastErr  error
}

func (e *TaskTimeoutError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("task %s still not terminal after %d polls (%s); last poll error: %v",
			e.JobID, e.Attempts, e.Elapsed, e.LastErr)
	}
	return fmt.Sprintf("task %s still not terminal after %d polls (%s)", e.JobID, e.Attempts, e.Elapsed)
}

func (e *TaskTimeoutError) Unwrap() error {
	return e.LastErr
}

// gRPC error helpers

func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

// ToStatusError maps the error taxonomy onto gRPC status codes so transport
// layers surface failures uniformly.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return InvalidArgumentError(ve.Error())
	}
	var tt *TaskTimeoutError
	if errors.As(err, &tt) {
		return status.Error(codes.DeadlineExceeded, tt.Error())
	}
	var tf *TaskFailedError
	if errors.As(err, &tf) {
		return InternalError(tf.Error())
	}
	if errors.Is(err, ErrNotFound) {
		return NotFoundError(err.Error())
	}
	if IsTransient(err) {
		return status.Error(codes.Unavailable, err.Error())
	}
	return InternalError(err.Error())
}
