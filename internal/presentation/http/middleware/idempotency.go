package middleware

import (
	"bytes"
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/nedlia/placement-api/internal/coordination/idempotency"
	"github.com/nedlia/placement-api/internal/presentation/http/dto/response"
)

// IdempotencyKeyHeader is the HTTP header for idempotency keys
const IdempotencyKeyHeader = "Idempotency-Key"

// responseWriter wraps gin.ResponseWriter to capture the response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency runs unsafe requests through the idempotency coordinator. The
// Idempotency-Key header is mandatory on POST, PUT and PATCH: the downstream
// handler executes at most once per (principal, key) and finalized responses
// are replayed byte for byte with X-Idempotency-Replayed set.
func Idempotency(coord *idempotency.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != "POST" && c.Request.Method != "PUT" && c.Request.Method != "PATCH" {
			c.Next()
			return
		}

		key := c.GetHeader(IdempotencyKeyHeader)
		if err := idempotency.ValidateKey(key); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		body, err := c.GetRawData()
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		handlerRan := false
		result, err := coord.Execute(c.Request.Context(), PrincipalKey(c), key, body, func(ctx context.Context) (*idempotency.Response, error) {
			handlerRan = true
			blw := &responseWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
			c.Writer = blw
			c.Next()
			return &idempotency.Response{Status: c.Writer.Status(), Body: blw.body.String()}, nil
		})
		if err != nil {
			if !handlerRan {
				response.Error(c, err)
			}
			c.Abort()
			return
		}

		if result.Replayed {
			c.Header("X-Idempotency-Replayed", "true")
			c.Data(result.Status, "application/json", []byte(result.Body))
			c.Abort()
		}
	}
}
