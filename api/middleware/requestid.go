package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the HTTP header used to propagate the request ID.
	RequestIDHeader = "X-Request-Id"
	// ContextKeyRequestID is the gin context key for the request ID.
	ContextKeyRequestID = "request_id"
)

// RequestID assigns a unique request ID to every request (reusing an incoming
// X-Request-Id, e.g. from a load balancer), stores it in the gin context and
// the response header, and logs the request with timing.
func RequestID() gin.HandlerFunc {
	assign := requestid.New(
		requestid.WithGenerator(uuid.NewString),
		requestid.WithCustomHeaderStrKey(requestid.HeaderStrKey(RequestIDHeader)),
		requestid.WithHandler(func(c *gin.Context, id string) {
			c.Set(ContextKeyRequestID, id)
		}),
	)

	return func(c *gin.Context) {
		start := time.Now()
		assign(c) // runs the rest of the chain
		latency := time.Since(start)

		slog.Info("request",
			"request_id", c.GetString(ContextKeyRequestID),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", latency.Milliseconds(),
			"ip", c.ClientIP(),
		)
	}
}
