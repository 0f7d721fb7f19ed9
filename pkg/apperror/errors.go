package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Problem is a machine-readable error payload. Type is a stable identifier
// per error kind; Extensions carry structured context such as retry_after.
type Problem struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail,omitempty"`
	Instance   string         `json:"instance,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (p *Problem) Error() string {
	if p.Detail != "" {
		return p.Title + ": " + p.Detail
	}
	return p.Title
}

// Is matches problems by Type so derived copies (WithDetail, WithExtension)
// still compare equal to their sentinel under errors.Is.
func (p *Problem) Is(target error) bool {
	t, ok := target.(*Problem)
	return ok && t.Type == p.Type
}

// WithDetail returns a copy of the problem with the given detail message.
func (p *Problem) WithDetail(format string, args ...any) *Problem {
	clone := *p
	clone.Detail = fmt.Sprintf(format, args...)
	return &clone
}

// WithExtension returns a copy of the problem with an extension field set.
func (p *Problem) WithExtension(key string, value any) *Problem {
	clone := *p
	clone.Extensions = make(map[string]any, len(p.Extensions)+1)
	for k, v := range p.Extensions {
		clone.Extensions[k] = v
	}
	clone.Extensions[key] = value
	return &clone
}

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error taxonomy. Client protocol misuse (idempotency errors, validation) is
// never retried automatically; store-unavailable and circuit-open are
// operational conditions the client should back off from.
var (
	ErrNotFound = &Problem{
		Type:   "not-found",
		Title:  "Resource not found",
		Status: http.StatusNotFound,
	}
	ErrBadRequest = &Problem{
		Type:   "bad-request",
		Title:  "Bad request",
		Status: http.StatusBadRequest,
	}
	ErrUnauthorized = &Problem{
		Type:   "unauthorized",
		Title:  "Unauthorized",
		Status: http.StatusUnauthorized,
	}
	ErrInternal = &Problem{
		Type:   "internal-error",
		Title:  "Internal server error",
		Status: http.StatusInternalServerError,
	}
	ErrIdempotencyKeyMissing = &Problem{
		Type:   "idempotency-key-missing",
		Title:  "Idempotency-Key header is required for this request",
		Status: http.StatusBadRequest,
	}
	ErrIdempotencyKeyInvalid = &Problem{
		Type:   "idempotency-key-invalid",
		Title:  "Idempotency-Key must be 16-128 characters of [a-zA-Z0-9_-]",
		Status: http.StatusBadRequest,
	}
	ErrIdempotencyConflict = &Problem{
		Type:   "idempotency-conflict",
		Title:  "A request with this idempotency key is still being processed",
		Status: http.StatusConflict,
	}
	ErrIdempotencyKeyReused = &Problem{
		Type:   "idempotency-key-reused",
		Title:  "Idempotency key was already used with a different payload",
		Status: http.StatusUnprocessableEntity,
	}
	ErrPlacementOverlap = &Problem{
		Type:   "placement-overlap",
		Title:  "An overlapping placement already exists for this product",
		Status: http.StatusConflict,
	}
	ErrRateLimited = &Problem{
		Type:   "rate-limited",
		Title:  "Rate limit exceeded",
		Status: http.StatusTooManyRequests,
	}
	ErrStoreUnavailable = &Problem{
		Type:   "store-unavailable",
		Title:  "Coordination store is unavailable",
		Status: http.StatusServiceUnavailable,
	}
	ErrDependencyUnavailable = &Problem{
		Type:   "dependency-unavailable",
		Title:  "A downstream dependency is unavailable",
		Status: http.StatusServiceUnavailable,
	}
)

// NewValidationError creates a 422 problem carrying per-field errors.
func NewValidationError(fieldErrors []FieldError) *Problem {
	return &Problem{
		Type:       "validation-failed",
		Title:      "Validation failed",
		Status:     http.StatusUnprocessableEntity,
		Extensions: map[string]any{"errors": fieldErrors},
	}
}

// NewNotFoundError creates a not found problem for the named resource.
func NewNotFoundError(resource string) *Problem {
	return ErrNotFound.WithDetail("%s not found", resource)
}

// NewRateLimitedError creates a rate-limited problem with the retry hint.
func NewRateLimitedError(retryAfter time.Duration) *Problem {
	secs := int(retryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	return ErrRateLimited.WithExtension("retry_after", secs)
}

// IsProblem checks if an error is a Problem
func IsProblem(err error) bool {
	var p *Problem
	return errors.As(err, &p)
}

// AsProblem converts an error to a Problem, mapping unknown errors to a
// generic internal problem so handler failures never leak raw messages.
func AsProblem(err error) *Problem {
	var p *Problem
	if errors.As(err, &p) {
		return p
	}
	return ErrInternal.WithDetail("%s", err.Error())
}

// IsClientError reports whether the error maps to a 4xx status. Client
// errors are permanent: batch consumers drop them instead of redelivering.
func IsClientError(err error) bool {
	var p *Problem
	if !errors.As(err, &p) {
		return false
	}
	return p.Status >= 400 && p.Status < 500
}
