package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TraceparentHeader injects the W3C traceparent of the request's active
// trace context into the response headers, so browser code can correlate
// its own telemetry with the server-side trace. The request span itself is
// created and activated by the framework instrumentation; this middleware
// only reflects that context outward.
func TraceparentHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		carrier := propagation.MapCarrier{}
		otel.GetTextMapPropagator().Inject(c.Request.Context(), carrier)
		if traceparent, ok := carrier["traceparent"]; ok {
			c.Header("Traceparent", traceparent)
		}

		c.Next()
	}
}
