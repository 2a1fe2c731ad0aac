package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestPublishJSONCarriesKeyAndTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	w := &fakeWriter{}
	p := NewProducerWithWriter(w)
	if err := p.PublishJSON(ctx, "42", map[string]int{"product_id": 42}); err != nil {
		t.Fatalf("PublishJSON: %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "42" {
		t.Errorf("key = %q", msg.Key)
	}
	var body map[string]int
	if err := json.Unmarshal(msg.Value, &body); err != nil || body["product_id"] != 42 {
		t.Errorf("body %s (%v)", msg.Value, err)
	}

	remote := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), msg.Headers))
	if remote.TraceID() != span.SpanContext().TraceID() {
		t.Errorf("trace id %s, want %s", remote.TraceID(), span.SpanContext().TraceID())
	}
}

func TestPublishJSONWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewProducerWithWriter(&fakeWriter{err: boom})
	if err := p.PublishJSON(context.Background(), "1", struct{}{}); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}
