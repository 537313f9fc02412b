package mq

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/codes"

	"habittracker/pkg/circuitbreaker"
	"habittracker/pkg/otel"
	"habittracker/pkg/trace"
)

// EventPublisher 是 service 层依赖的发布接口
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// NopPublisher 在未配置 MQ 时使用，丢弃所有事件
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// channel 是 Publisher 用到的 *amqp091.Channel 子集
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type Publisher struct {
	conn    *amqp091.Connection
	channel channel
	breaker *circuitbreaker.CircuitBreaker

	mu sync.Mutex
}

func NewPublisher(url string) (*Publisher, error) {
	conn, ch, err := dial(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{
		conn:    conn,
		channel: ch,
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig()),
	}, nil
}

func (p *Publisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// IsConnected checks if the publisher connection is still alive
func (p *Publisher) IsConnected() bool {
	if p.conn == nil || p.channel == nil {
		return false
	}
	return !p.conn.IsClosed()
}

// Publish publishes an event to the exchange with the given routing key.
// 连续失败后熔断器打开，直接返回 circuitbreaker.ErrOpen
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ctx, span := otel.MQPublishSpan(ctx, routingKey, ExchangeName)
	defer span.End()

	headers := messageHeaders(ctx)

	err = p.breaker.Execute(func() error {
		p.mu.Lock()
		defer p.mu.Unlock()

		return p.channel.PublishWithContext(ctx,
			ExchangeName,
			routingKey,
			false,
			false,
			amqp091.Publishing{
				ContentType:  "application/json",
				Body:         body,
				DeliveryMode: amqp091.Persistent,
				Timestamp:    time.Now(),
				Headers:      headers,
			},
		)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// messageHeaders 携带 W3C trace context 和请求的 trace id
func messageHeaders(ctx context.Context) amqp091.Table {
	headers := otel.InjectMQHeaders(ctx, nil)
	if traceID := trace.FromContext(ctx); traceID != "" {
		headers[trace.HeaderName] = traceID
	}
	return amqp091.Table(headers)
}
