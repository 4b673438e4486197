package tracing

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
)

// HeaderTraceID carries the trace id on requests and responses
const HeaderTraceID = "X-Trace-ID"

// HTTPMiddleware opens a root span per request. A trace id supplied by the
// client is continued.
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if incoming := c.GetHeader(HeaderTraceID); incoming != "" {
			ctx = context.WithValue(ctx, traceIDKey, TraceID(incoming))
		}

		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+name)
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderTraceID, string(span.TraceID))

		c.Next()

		span.SetTag("http.status", strconv.Itoa(c.Writer.Status()))
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}
		span.Finish()
		tracer.Submit(span)
	}
}
