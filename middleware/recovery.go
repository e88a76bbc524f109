package middleware

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a logged 500 carrying the trace ID.
// gin's own recovery still detects broken client connections.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, r any) {
		id := GetTraceID(c)
		log.Error("panic recovered",
			zap.Any("error", r),
			zap.String("trace_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Stack("stack"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":    "internal server error",
			"trace_id": id,
		})
	})
}
