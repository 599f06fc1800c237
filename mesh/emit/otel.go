package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by creating one OpenTelemetry span per
// event.
//
// Each span carries:
//   - Span name: event.Msg (e.g. "compute", "send", "recv")
//   - Attributes: site, seq, and all event.Meta fields
//   - Status: error if event.Meta["error"] holds a string
//
// Spans are ended immediately; events mark points in time, not
// durations.
//
// Integration:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
//	tracer := otel.Tracer("exprmesh-go")
//	emitter := emit.NewOTelEmitter(tracer)
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates a new OTelEmitter over the given tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit creates and ends a span for the event.
func (o *OTelEmitter) Emit(event Event) {
	o.emitSpan(context.Background(), event)
}

func (o *OTelEmitter) emitSpan(ctx context.Context, event Event) {
	_, span := o.tracer.Start(ctx, event.Msg)
	defer span.End()

	span.SetAttributes(
		attribute.String("mesh.site", event.Site),
		attribute.Int("mesh.seq", event.Seq),
	)
	for key, value := range event.Meta {
		span.SetAttributes(metaAttribute("mesh.meta."+key, value))
	}

	if errMsg, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(fmt.Errorf("%s", errMsg))
	}
}

// metaAttribute converts an arbitrary metadata value to a span
// attribute, falling back to its string form.
func metaAttribute(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}

// EmitBatch creates spans for all events, sharing one context so the
// batch span processor can export them together.
func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.emitSpan(ctx, event)
	}
	return nil
}

// Flush is a no-op: span export is owned by the tracer provider's span
// processor. Call TracerProvider.ForceFlush for hard delivery
// guarantees.
func (o *OTelEmitter) Flush(context.Context) error {
	return nil
}
