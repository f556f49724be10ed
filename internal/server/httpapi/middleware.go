package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/filegilla/filegateway/internal/logging"
	"github.com/filegilla/filegateway/internal/server/metrics"
)

// FunctionKey gates the API behind a shared key presented in the
// X-Functions-Key header or the code query parameter, compared against a
// bcrypt hash. An empty hash disables the check for local development.
func FunctionKey(hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hash == "" {
			c.Next()
			return
		}
		key := c.GetHeader("X-Functions-Key")
		if key == "" {
			key = c.Query("code")
		}
		if key == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// Observe records per-request counters and latency, labelled by route
// template so path parameters do not explode the cardinality.
func Observe(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		operation := c.FullPath()
		if operation == "" {
			operation = "unmatched"
		}
		m.RequestsTotal.WithLabelValues(operation, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// RequestLogger emits one structured line per request.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"durationMs", time.Since(start).Milliseconds(),
		)
	}
}
