package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/kiln/internal/core/ports"
)

var _ sdktrace.SpanProcessor = (*Bridge)(nil)

// errTaskFailed stands in for spans that failed without a description.
var errTaskFailed = errors.New("task failed")

// Bridge turns task spans into renderer events: one OnTaskStart when the
// scheduler opens a span, one OnTaskComplete when it ends.
type Bridge struct {
	renderer ports.Renderer
}

// NewBridge reports to renderer. With a nil renderer spans are ignored.
func NewBridge(renderer ports.Renderer) *Bridge {
	return &Bridge{renderer: renderer}
}

// OnStart announces the task named by s.
func (b *Bridge) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	id, ok := b.spanID(s.SpanContext())
	if !ok {
		return
	}
	parentID, _ := b.spanID(trace.SpanFromContext(parent).SpanContext())
	b.renderer.OnTaskStart(id, parentID, s.Name(), s.StartTime())
}

// OnEnd reports the task outcome carried by the span status.
func (b *Bridge) OnEnd(s sdktrace.ReadOnlySpan) {
	id, ok := b.spanID(s.SpanContext())
	if !ok {
		return
	}
	b.renderer.OnTaskComplete(id, s.EndTime(), spanError(s.Status()))
}

// ForceFlush is a no-op; events are delivered synchronously.
func (b *Bridge) ForceFlush(_ context.Context) error { return nil }

// Shutdown is a no-op; the bridge holds no resources.
func (b *Bridge) Shutdown(_ context.Context) error { return nil }

func (b *Bridge) spanID(sc trace.SpanContext) (string, bool) {
	if b.renderer == nil || !sc.IsValid() {
		return "", false
	}
	return sc.SpanID().String(), true
}

func spanError(status sdktrace.Status) error {
	if status.Code != codes.Error {
		return nil
	}
	if status.Description == "" {
		return errTaskFailed
	}
	return errors.New(status.Description)
}
