package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/kiln/internal/core/ports"
)

// LogBufferSize is the capacity of the queue feeding task output to the renderer.
const LogBufferSize = 4096

var _ ports.Tracer = (*OTelTracer)(nil)

type logChunk struct {
	spanID string
	data   []byte
	// barrier, when set, is closed once every earlier chunk has been delivered.
	barrier chan struct{}
}

// OTelTracer implements ports.Tracer on top of OpenTelemetry.
// Task output is batched per span and delivered to the renderer from one goroutine.
type OTelTracer struct {
	tracer trace.Tracer

	mu       sync.RWMutex
	renderer ports.Renderer

	logChan   chan logChunk
	loopDone  chan struct{}
	closeOnce sync.Once
}

// NewOTelTracer creates a tracer from the global provider.
func NewOTelTracer(name string) *OTelTracer {
	return NewOTelTracerWithProvider(name, otel.GetTracerProvider())
}

// NewOTelTracerWithProvider creates a tracer from tp.
func NewOTelTracerWithProvider(name string, tp trace.TracerProvider) *OTelTracer {
	t := &OTelTracer{
		tracer:   tp.Tracer(name),
		logChan:  make(chan logChunk, LogBufferSize),
		loopDone: make(chan struct{}),
	}
	go t.runLoop()
	return t
}

func (t *OTelTracer) runLoop() {
	defer close(t.loopDone)
	for chunk := range t.logChan {
		if chunk.barrier != nil {
			close(chunk.barrier)
			continue
		}
		if r := t.currentRenderer(); r != nil {
			r.OnTaskLog(chunk.spanID, chunk.data)
		}
	}
}

// WithRenderer routes task output and plans to r.
func (t *OTelTracer) WithRenderer(r ports.Renderer) *OTelTracer {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.renderer = r
	return t
}

func (t *OTelTracer) currentRenderer() ports.Renderer {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.renderer
}

// Shutdown drains queued output and stops the delivery loop.
// Spans must not be written after Shutdown.
func (t *OTelTracer) Shutdown(ctx context.Context) error {
	t.closeOnce.Do(func() { close(t.logChan) })
	select {
	case <-t.loopDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start creates a new span.
func (t *OTelTracer) Start(ctx context.Context, name string, opts ...ports.SpanOption) (context.Context, ports.Span) {
	cfg := &ports.SpanConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, span := t.tracer.Start(ctx, name)
	s := &OTelSpan{span: span, tracer: t}
	for k, v := range cfg.Attributes {
		s.SetAttribute(k, v)
	}

	if t.currentRenderer() != nil {
		spanID := span.SpanContext().SpanID().String()
		s.batcher = NewLogBatcher(0, 0, func(data []byte) {
			select {
			case t.logChan <- logChunk{spanID: spanID, data: data}:
			default:
				// Dropped when the renderer falls behind so builds never block on output.
			}
		})
	}
	return ctx, s
}

// EmitPlan records the plan on the current span and hands it to the renderer.
func (t *OTelTracer) EmitPlan(ctx context.Context, taskNames []string, deps map[string][]string, targets []string) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("plan_emitted", trace.WithAttributes(
			attribute.StringSlice("tasks", taskNames),
			attribute.StringSlice("targets", targets),
		))
	}
	if r := t.currentRenderer(); r != nil {
		r.OnPlanEmit(taskNames, deps, targets)
	}
}

// OTelSpan implements ports.Span.
type OTelSpan struct {
	span    trace.Span
	tracer  *OTelTracer
	batcher *LogBatcher
}

// End flushes buffered output and completes the span. The renderer sees all
// of the span's output before it learns that the span ended.
func (s *OTelSpan) End() {
	if s.batcher != nil {
		_ = s.batcher.Close()
		barrier := make(chan struct{})
		s.tracer.logChan <- logChunk{barrier: barrier}
		<-barrier
	}
	s.span.End()
}

// RecordError records err and marks the span failed.
func (s *OTelSpan) RecordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// SetAttribute adds a key-value pair to the span.
func (s *OTelSpan) SetAttribute(key string, value any) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	case []string:
		s.span.SetAttributes(attribute.StringSlice(key, v))
	case fmt.Stringer:
		s.span.SetAttributes(attribute.String(key, v.String()))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

// Write sends task output to the renderer, or records it as a span event without one.
func (s *OTelSpan) Write(p []byte) (int, error) {
	if s.batcher != nil {
		return s.batcher.Write(p)
	}
	s.span.AddEvent("log", trace.WithAttributes(attribute.String("message", string(p))))
	return len(p), nil
}
