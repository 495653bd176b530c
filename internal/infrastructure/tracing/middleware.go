package tracing

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Trace propagation headers
const (
	HeaderTraceID = "X-Trace-ID"
	HeaderSpanID  = "X-Span-ID"
)

// HTTPMiddleware wraps each control API request in a span
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithTrace(c.Request.Context(),
			TraceID(c.GetHeader(HeaderTraceID)),
			SpanID(c.GetHeader(HeaderSpanID)))

		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+name)
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderTraceID, string(span.TraceID))
		c.Header(HeaderSpanID, string(span.SpanID))

		c.Next()

		span.Status = c.Writer.Status()
		span.SetTag("http.status", strconv.Itoa(span.Status))
		var err error
		if last := c.Errors.Last(); last != nil {
			err = last
		}
		span.Finish(err)
		tracer.Submit(span)
	}
}
