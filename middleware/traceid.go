package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	TraceIDKey    = "trace_id"
	TraceIDHeader = "X-Trace-ID"
	maxTraceLen   = 64
)

type traceCtxKey struct{}

// TraceID tags every request with a trace ID, taken from the X-Trace-ID
// header when it is well formed and generated otherwise. The ID is echoed in
// the response and attached to the request context.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if !validTraceID(traceID) {
			traceID = uuid.New().String()
		}
		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), traceCtxKey{}, traceID))
		c.Next()
	}
}

func validTraceID(s string) bool {
	if s == "" || len(s) > maxTraceLen {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// GetTraceID retrieves the trace ID from the Gin context.
func GetTraceID(c *gin.Context) string {
	if v, exists := c.Get(TraceIDKey); exists {
		return v.(string)
	}
	return ""
}

// TraceIDFrom retrieves the trace ID from a request context.
func TraceIDFrom(ctx context.Context) string {
	s, _ := ctx.Value(traceCtxKey{}).(string)
	return s
}
