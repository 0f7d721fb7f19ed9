package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestLoggerEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(LoggerMiddleware())
	router.GET("/placements", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/placements", nil)
	req.Header.Set("X-Request-ID", "req-12345678")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "req-12345678", w.Header().Get("X-Request-ID"))
}

func TestLoggerHandlesShortRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(LoggerMiddleware())
	router.GET("/placements", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	// A client-supplied ID shorter than the log tag width must not panic.
	req := httptest.NewRequest(http.MethodGet, "/placements", nil)
	req.Header.Set("X-Request-ID", "abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))
}
