// Package broker moves outbox events between the API process and its consumers over
// redis pub/sub or kafka.
package broker

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Alturino/storefront/internal/config"
)

const (
	KindRedis = "redis"
	KindKafka = "kafka"

	HeaderEventID = "event_id"
)

type Message struct {
	Topic   string            `json:"topic"`
	Key     string            `json:"key"`
	Payload []byte            `json:"payload"`
	Headers map[string]string `json:"headers"`
}

func (m Message) EventID() string { return m.Headers[HeaderEventID] }

type Handler func(c context.Context, msg Message) error

type Publisher interface {
	Publish(c context.Context, msg Message) error
	Close() error
}

type Subscriber interface {
	// Subscribe blocks delivering messages to handler until c is cancelled.
	Subscribe(c context.Context, topics []string, handler Handler) error
	Close() error
}

// injectTraceContext carries the publishing span across the broker.
func injectTraceContext(c context.Context, msg *Message) {
	if msg.Headers == nil {
		msg.Headers = map[string]string{}
	}
	otel.GetTextMapPropagator().Inject(c, propagation.MapCarrier(msg.Headers))
}

func extractTraceContext(c context.Context, msg Message) context.Context {
	if msg.Headers == nil {
		return c
	}
	return otel.GetTextMapPropagator().Extract(c, propagation.MapCarrier(msg.Headers))
}

func NewPublisher(cfg config.Broker, cache *redis.Client) (Publisher, error) {
	switch cfg.Kind {
	case KindRedis:
		return NewRedisBroker(cache), nil
	case KindKafka:
		return NewKafkaPublisher(cfg.Brokers), nil
	default:
		return nil, fmt.Errorf("unknown broker kind=%s", cfg.Kind)
	}
}

func NewSubscriber(cfg config.Broker, cache *redis.Client) (Subscriber, error) {
	switch cfg.Kind {
	case KindRedis:
		return NewRedisBroker(cache), nil
	case KindKafka:
		return NewKafkaSubscriber(cfg.Brokers, cfg.GroupID), nil
	default:
		return nil, fmt.Errorf("unknown broker kind=%s", cfg.Kind)
	}
}
