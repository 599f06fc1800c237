package emit

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracer(t *testing.T) (*OTelEmitter, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return NewOTelEmitter(provider.Tracer("exprmesh-test")), recorder
}

func TestOTelEmitter_Emit(t *testing.T) {
	emitter, recorder := newTestTracer(t)

	emitter.Emit(Event{Site: "Amy", Seq: 3, Msg: "compute",
		Meta: map[string]interface{}{"eid": "eid:07"}})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans; want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "compute" {
		t.Errorf("span name = %q; want compute", span.Name())
	}

	attrs := make(map[string]interface{})
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	if attrs["mesh.site"] != "Amy" {
		t.Errorf("mesh.site = %v; want Amy", attrs["mesh.site"])
	}
	if attrs["mesh.seq"] != int64(3) {
		t.Errorf("mesh.seq = %v; want 3", attrs["mesh.seq"])
	}
	if attrs["mesh.meta.eid"] != "eid:07" {
		t.Errorf("mesh.meta.eid = %v; want eid:07", attrs["mesh.meta.eid"])
	}
}

func TestOTelEmitter_ErrorStatus(t *testing.T) {
	emitter, recorder := newTestTracer(t)

	emitter.Emit(Event{Site: "Amy", Seq: 1, Msg: "compute_error",
		Meta: map[string]interface{}{"error": "transient failure"}})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans; want 1", len(spans))
	}
	if spans[0].Status().Description != "transient failure" {
		t.Errorf("status description = %q; want the error text", spans[0].Status().Description)
	}
	if len(spans[0].Events()) == 0 {
		t.Error("no error event recorded on the span")
	}
}

func TestOTelEmitter_EmitBatch(t *testing.T) {
	emitter, recorder := newTestTracer(t)

	events := []Event{
		{Site: "Amy", Seq: 1, Msg: "send"},
		{Site: "Amy", Seq: 2, Msg: "recv"},
	}
	if err := emitter.EmitBatch(context.Background(), events); err != nil {
		t.Fatalf("EmitBatch failed: %v", err)
	}
	if got := len(recorder.Ended()); got != 2 {
		t.Errorf("recorded %d spans; want 2", got)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := emitter.EmitBatch(cancelled, events); err == nil {
		t.Error("EmitBatch ignored a cancelled context")
	}
}
