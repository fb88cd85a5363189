package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func headerValue(msg kafka.Message, key string) string {
	return headerCarrier{headers: &msg.Headers}.Get(key)
}

func TestNewEvent_Fields(t *testing.T) {
	type reviewData struct {
		BookID string  `json:"bookId"`
		Rating float64 `json:"rating"`
	}

	event, err := NewEvent("review.created", "r1", "review", "review-service", reviewData{BookID: "b1", Rating: 4})
	require.NoError(t, err)

	assert.Len(t, event.EventID, 36)
	assert.Equal(t, "review.created", event.EventType)
	assert.Equal(t, "r1", event.AggregateID)
	assert.Equal(t, "review", event.AggregateType)
	assert.Equal(t, "review-service", event.Source)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)

	var got reviewData
	require.NoError(t, event.UnmarshalData(&got))
	assert.Equal(t, reviewData{BookID: "b1", Rating: 4}, got)
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent("review.created", "r1", "review", "svc", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "review.created")
}

func TestEvent_Chaining(t *testing.T) {
	event, err := NewEvent("review.created", "r1", "review", "svc", nil)
	require.NoError(t, err)

	assert.Same(t, event, event.WithCorrelationID("corr-1").WithMetadata("book_id", "b1"))
	assert.Equal(t, "corr-1", event.CorrelationID)
	assert.Equal(t, map[string]string{"book_id": "b1"}, event.Metadata)

	raw, err := event.Marshal()
	require.NoError(t, err)
	restored, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, restored.EventID)
	assert.Equal(t, "corr-1", restored.CorrelationID)
}

func TestProducer_PublishWritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, []string{"localhost:9092"}, discardLogger())

	event, err := NewEvent("review.created", "r1", "review", "review-service", map[string]string{"bookId": "b1"})
	require.NoError(t, err)
	event.WithCorrelationID("corr-9")

	require.NoError(t, p.Publish(context.Background(), "bookstore.review.created", event))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "bookstore.review.created", msg.Topic)
	assert.Equal(t, "r1", string(msg.Key))
	assert.Equal(t, "review.created", headerValue(msg, "event_type"))
	assert.Equal(t, "review-service", headerValue(msg, "source"))
	assert.Equal(t, "corr-9", headerValue(msg, "correlation_id"))

	decoded, err := UnmarshalEvent(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)

	assert.GreaterOrEqual(t, testutil.ToFloat64(producerMessagesPublished.WithLabelValues("bookstore.review.created", "review.created")), 1.0)
}

func TestProducer_PublishInjectsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	w := &fakeWriter{}
	p := newProducer(w, nil, discardLogger())
	event, err := NewEvent("review.created", "r1", "review", "svc", nil)
	require.NoError(t, err)

	require.NoError(t, p.Publish(ctx, "t", event))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", headerValue(w.msgs[0], "traceparent"))
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newProducer(w, nil, discardLogger())
	event, err := NewEvent("review.created", "r1", "review", "svc", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "topic-fail", event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	assert.Equal(t, 1.0, testutil.ToFloat64(producerMessagesFailed.WithLabelValues("topic-fail", "review.created")))
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newProducer(w, nil, discardLogger()).Close())
	assert.True(t, w.closed)
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	err := PingBrokers(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers")
}

func TestHeaderCarrier_SetOverwritesAndKeys(t *testing.T) {
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}}
	c := headerCarrier{headers: &headers}

	c.Set("a", "2")
	c.Set("b", "3")

	assert.Equal(t, "2", c.Get("a"))
	assert.Equal(t, "3", c.Get("b"))
	assert.Equal(t, "", c.Get("missing"))
	assert.Equal(t, []string{"a", "b"}, c.Keys())
}
