package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"

	"habittracker/pkg/circuitbreaker"
	"habittracker/pkg/trace"
)

type published struct {
	exchange string
	key      string
	msg      amqp091.Publishing
}

type fakeChannel struct {
	err   error
	calls []published
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	f.calls = append(f.calls, published{exchange: exchange, key: key, msg: msg})
	return f.err
}

func (f *fakeChannel) Close() error { return nil }

func newTestPublisher(ch *fakeChannel) *Publisher {
	return &Publisher{
		channel: ch,
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig()),
	}
}

func TestPublisher_PublishesJSONWithTraceID(t *testing.T) {
	ch := &fakeChannel{}
	p := newTestPublisher(ch)

	ctx := trace.WithContext(context.Background(), "trace-123")
	err := p.Publish(ctx, "habit.created", map[string]int{"habit_id": 7})
	require.NoError(t, err)

	require.Len(t, ch.calls, 1)
	call := ch.calls[0]
	assert.Equal(t, ExchangeName, call.exchange)
	assert.Equal(t, "habit.created", call.key)
	assert.Equal(t, "application/json", call.msg.ContentType)
	assert.Equal(t, amqp091.Persistent, call.msg.DeliveryMode)
	assert.Equal(t, "trace-123", call.msg.Headers[trace.HeaderName])

	var body map[string]int
	require.NoError(t, json.Unmarshal(call.msg.Body, &body))
	assert.Equal(t, 7, body["habit_id"])
}

func TestMessageHeaders_InjectsTraceparent(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	sc := oteltrace.NewSpanContext(oteltrace.SpanContextConfig{
		TraceID:    oteltrace.TraceID{0x01, 0x02, 0x03},
		SpanID:     oteltrace.SpanID{0x04, 0x05},
		TraceFlags: oteltrace.FlagsSampled,
	})
	ctx := oteltrace.ContextWithSpanContext(context.Background(), sc)

	headers := messageHeaders(ctx)
	assert.Equal(t, "00-01020300000000000000000000000000-0405000000000000-01", headers["traceparent"])
	_, hasTraceID := headers[trace.HeaderName]
	assert.False(t, hasTraceID, "no request trace id in context")
}

func TestPublisher_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := newTestPublisher(ch)
	threshold := circuitbreaker.DefaultConfig().FailureThreshold

	for i := 0; i < threshold; i++ {
		err := p.Publish(context.Background(), "habit.archived", struct{}{})
		require.EqualError(t, err, "channel closed")
	}

	err := p.Publish(context.Background(), "habit.archived", struct{}{})
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Len(t, ch.calls, threshold, "open breaker does not touch the channel")
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), "habit.created", nil))
}
