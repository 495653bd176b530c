package tracing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/logging"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/id"
	"go.uber.org/zap"
)

// TraceID groups the spans of one launch or request
type TraceID string

// SpanID identifies a single span
type SpanID string

const (
	traceBuffer = 256
	// recentSpans is how many finished spans Recent keeps
	recentSpans = 32
)

// Span is one timed operation
type Span struct {
	TraceID   TraceID           `json:"trace_id"`
	SpanID    SpanID            `json:"span_id"`
	ParentID  SpanID            `json:"parent_id,omitempty"`
	Name      string            `json:"name"`
	Service   string            `json:"service"`
	StartTime time.Time         `json:"start_time"`
	Duration  time.Duration     `json:"duration"`
	Tags      map[string]string `json:"tags,omitempty"`
	Error     string            `json:"error,omitempty"`
	Status    int               `json:"status,omitempty"`
}

// SetTag adds a tag to the span
func (s *Span) SetTag(key, value string) {
	s.Tags[key] = value
}

// Finish stops the clock and records err, if any
func (s *Span) Finish(err error) {
	s.Duration = time.Since(s.StartTime)
	if err != nil {
		s.Error = err.Error()
	}
}

// Tracer logs finished spans from a buffered collector and keeps the most
// recent ones for diagnostics
type Tracer struct {
	service string
	logger  *logging.Logger
	spans   chan *Span
	done    chan struct{}

	mu     sync.Mutex
	recent []Span
	closed bool
}

// New creates a tracer and starts its collector
func New(service string, logger *logging.Logger) *Tracer {
	if logger == nil {
		logger = logging.NewNop()
	}
	t := &Tracer{
		service: service,
		logger:  logger,
		spans:   make(chan *Span, traceBuffer),
		done:    make(chan struct{}),
	}
	go t.collect()
	return t
}

func newID() string {
	return id.Default().Generate().String()
}

// StartSpan opens a span, continuing the trace carried by ctx
func (t *Tracer) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		traceID = TraceID(newID())
	}
	span := &Span{
		TraceID:   traceID,
		SpanID:    SpanID(newID()),
		ParentID:  GetSpanID(ctx),
		Name:      name,
		Service:   t.service,
		StartTime: time.Now(),
		Tags:      make(map[string]string),
	}
	ctx = context.WithValue(ctx, traceIDKey, traceID)
	ctx = context.WithValue(ctx, spanIDKey, span.SpanID)
	return span, ctx
}

// Trace runs fn inside a span named name
func (t *Tracer) Trace(ctx context.Context, name string, fn func(context.Context) error) error {
	span, ctx := t.StartSpan(ctx, name)
	err := fn(ctx)
	span.Finish(err)
	t.Submit(span)
	return err
}

// Submit hands a finished span to the collector without blocking
func (t *Tracer) Submit(span *Span) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	select {
	case t.spans <- span:
	default:
		t.logger.Warn("Span buffer full, dropping span",
			zap.String("trace_id", string(span.TraceID)),
			zap.String("operation", span.Name))
	}
}

func (t *Tracer) collect() {
	defer close(t.done)
	for span := range t.spans {
		t.record(span)
	}
}

func (t *Tracer) record(span *Span) {
	fields := []zap.Field{
		zap.String("trace_id", string(span.TraceID)),
		zap.String("span_id", string(span.SpanID)),
		zap.String("operation", span.Name),
		zap.Duration("duration", span.Duration),
	}
	if span.ParentID != "" {
		fields = append(fields, zap.String("parent_id", string(span.ParentID)))
	}
	if span.Error != "" {
		t.logger.Warn("Span failed", append(fields, zap.String("error", span.Error))...)
	} else {
		t.logger.Debug("Span completed", fields...)
	}

	t.mu.Lock()
	t.recent = append(t.recent, *span)
	if len(t.recent) > recentSpans {
		t.recent = t.recent[len(t.recent)-recentSpans:]
	}
	t.mu.Unlock()
}

// Recent returns up to the last recentSpans finished spans, oldest first
func (t *Tracer) Recent() []Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Span(nil), t.recent...)
}

// Close drains pending spans and stops the collector
func (t *Tracer) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.spans)
	t.mu.Unlock()
	<-t.done
}

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// WithTrace continues an existing trace in ctx
func WithTrace(ctx context.Context, traceID TraceID, parent SpanID) context.Context {
	if traceID != "" {
		ctx = context.WithValue(ctx, traceIDKey, traceID)
	}
	if parent != "" {
		ctx = context.WithValue(ctx, spanIDKey, parent)
	}
	return ctx
}

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) TraceID {
	traceID, _ := ctx.Value(traceIDKey).(TraceID)
	return traceID
}

// GetSpanID retrieves the span ID from context
func GetSpanID(ctx context.Context) SpanID {
	spanID, _ := ctx.Value(spanIDKey).(SpanID)
	return spanID
}

// FormatTrace returns a compact trace reference for log lines
func FormatTrace(traceID TraceID, spanID SpanID) string {
	return fmt.Sprintf("[trace:%s span:%s]", traceID, spanID)
}
