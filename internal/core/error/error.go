package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// DatabaseErrorMessage describes SQL store failures.
	DatabaseErrorMessage = "database operation failed"
	// UpstreamErrorMessage describes LLM / provider failures.
	UpstreamErrorMessage = "upstream provider failed"
)

// Workflow sentinel errors. Match with errors.Is; AppError unwraps to them.
var (
	ErrRunNotFound       = errors.New("run not found")
	ErrRunFinalized      = errors.New("run is in terminal state")
	ErrRunNotSuspended   = errors.New("run is not awaiting review")
	ErrStaleReview       = errors.New("review token does not match the pending review")
	ErrVersionConflict   = errors.New("run state was modified concurrently")
	ErrRevisionLimit     = errors.New("revision limit reached; reply done to finalise")
	ErrEmptyQuestion     = errors.New("question is empty")
	ErrSchemaViolation   = errors.New("llm output does not match schema")
	ErrProviderMisconfig = errors.New("provider is not configured")
	ErrNothingToRetry    = errors.New("run has no pending phase to retry")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// NotFound marks err as a client lookup failure.
func NotFound(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusNotFound, "not found")
}

// Conflict marks err as a state conflict the client caused (terminal run, stale token).
func Conflict(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusConflict, "conflict")
}

// BadRequest marks err as invalid client input.
func BadRequest(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadRequest, "bad request")
}

// Upstream marks err as a failure of an external provider (LLM, embedder, reranker).
func Upstream(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, UpstreamErrorMessage)
}

// WrapSQL maps database errors to the unified error type.
func WrapSQL(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, DatabaseErrorMessage)
}

// StatusOf returns the HTTP status carried by err, or 500 when err is not an AppError.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}
