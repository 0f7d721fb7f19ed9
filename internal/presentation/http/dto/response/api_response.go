package response

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nedlia/placement-api/pkg/apperror"
	"github.com/nedlia/placement-api/pkg/pagination"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    interface{}       `json:"data,omitempty"`
	Error   *apperror.Problem `json:"error,omitempty"`
	Meta    *Meta             `json:"meta,omitempty"`
}

// Meta contains metadata about the response
type Meta struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
}

// newMeta creates metadata for the response
func newMeta(c *gin.Context) *Meta {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return &Meta{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: requestID,
	}
}

// Success sends a success response
func Success(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    newMeta(c),
	})
}

// SuccessWithCursor sends a success response with cursor pagination
func SuccessWithCursor[T any](c *gin.Context, statusCode int, message string, result *pagination.CursorPaginatedResult[T]) {
	c.JSON(statusCode, APIResponse{
		Success: true,
		Message: message,
		Data:    result,
		Meta:    newMeta(c),
	})
}

// Error sends an error response carrying a problem document. Rate-limited
// problems also surface their retry hint as a Retry-After header.
func Error(c *gin.Context, err error) {
	p := apperror.AsProblem(err)
	if p.Instance == "" {
		clone := *p
		clone.Instance = c.Request.URL.Path
		p = &clone
	}
	if errors.Is(err, apperror.ErrRateLimited) {
		if secs, ok := p.Extensions["retry_after"].(int); ok {
			c.Header("Retry-After", strconv.Itoa(secs))
		}
	}
	c.JSON(p.Status, APIResponse{
		Success: false,
		Message: p.Title,
		Error:   p,
		Meta:    newMeta(c),
	})
}

// ValidationError sends a 422 with per-field errors
func ValidationError(c *gin.Context, fieldErrors []apperror.FieldError) {
	Error(c, apperror.NewValidationError(fieldErrors))
}

// Created sends a 201 Created response
func Created(c *gin.Context, message string, data interface{}) {
	Success(c, 201, message, data)
}

// OK sends a 200 OK response
func OK(c *gin.Context, message string, data interface{}) {
	Success(c, 200, message, data)
}

// Accepted sends a 202 Accepted response
func Accepted(c *gin.Context, message string, data interface{}) {
	Success(c, 202, message, data)
}

// NoContent sends a 204 No Content response
func NoContent(c *gin.Context) {
	c.Status(204)
}
