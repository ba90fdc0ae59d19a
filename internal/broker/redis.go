package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

// RedisBroker publishes JSON envelopes on redis channels named after the topic. Pub/sub does not
// retain messages, so a subscriber that is offline misses them.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(c context.Context, msg Message) error {
	c, span := otel.Tracer.Start(c, "RedisBroker Publish")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "RedisBroker Publish").
		Str(log.KeyTopic, msg.Topic).
		Str(log.KeyEventID, msg.EventID()).
		Logger()

	injectTraceContext(c, &msg)
	envelope, err := json.Marshal(msg)
	if err != nil {
		err = fmt.Errorf("failed marshaling message with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger = logger.With().Str(log.KeyProcess, "publishing message").Logger()
	logger.Trace().Msg("publishing message")
	if err = b.client.Publish(c, msg.Topic, envelope).Err(); err != nil {
		err = fmt.Errorf("failed publishing message with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("published message")

	return nil
}

func (b *RedisBroker) Subscribe(c context.Context, topics []string, handler Handler) error {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "RedisBroker Subscribe").
		Strs(log.KeyTopic, topics).
		Logger()

	pubsub := b.client.Subscribe(c, topics...)
	defer pubsub.Close()

	logger = logger.With().Str(log.KeyProcess, "waiting subscription").Logger()
	if _, err := pubsub.Receive(c); err != nil {
		err = fmt.Errorf("failed subscribing topics with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("subscribed topics")

	channel := pubsub.Channel()
	for {
		select {
		case <-c.Done():
			logger.Info().Msg("stopped subscription")
			return nil
		case received, ok := <-channel:
			if !ok {
				return nil
			}
			msg := Message{}
			if err := json.Unmarshal([]byte(received.Payload), &msg); err != nil {
				err = fmt.Errorf("failed unmarshaling message with error=%w", err)
				logger.Error().Err(err).Msg(err.Error())
				continue
			}
			mc := extractTraceContext(c, msg)
			if err := handler(mc, msg); err != nil {
				logger.Error().
					Err(err).
					Str(log.KeyEventID, msg.EventID()).
					Msgf("failed handling message with error=%s", err.Error())
			}
		}
	}
}

// Close leaves the shared redis client open; its owner closes it.
func (b *RedisBroker) Close() error { return nil }
