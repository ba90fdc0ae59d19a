package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}}
}

func (p *KafkaPublisher) Publish(c context.Context, msg Message) error {
	c, span := otel.Tracer.Start(c, "KafkaPublisher Publish")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "KafkaPublisher Publish").
		Str(log.KeyTopic, msg.Topic).
		Str(log.KeyEventID, msg.EventID()).
		Logger()

	injectTraceContext(c, &msg)
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	logger = logger.With().Str(log.KeyProcess, "writing message").Logger()
	logger.Trace().Msg("writing message")
	err := p.writer.WriteMessages(c, kafka.Message{
		Topic:   msg.Topic,
		Key:     []byte(msg.Key),
		Value:   msg.Payload,
		Headers: headers,
		Time:    time.Now().UTC(),
	})
	if err != nil {
		err = fmt.Errorf("failed writing message with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("wrote message")

	return nil
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

const (
	defaultMaxAttempts  = 5
	defaultRetryBackoff = 500 * time.Millisecond
)

// messageReader is the part of *kafka.Reader the subscriber uses.
type messageReader interface {
	FetchMessage(c context.Context) (kafka.Message, error)
	CommitMessages(c context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSubscriber reads each topic with a consumer group. A message is committed only after the
// handler returned nil for it. A failing message is retried in place with exponential backoff;
// once the attempts are exhausted the subscriber stops without committing, so the group
// redelivers it to the next consumer.
type KafkaSubscriber struct {
	brokers      []string
	groupID      string
	maxAttempts  int
	retryBackoff time.Duration

	mu      sync.Mutex
	readers []messageReader
}

func NewKafkaSubscriber(brokers []string, groupID string) *KafkaSubscriber {
	return &KafkaSubscriber{
		brokers:      brokers,
		groupID:      groupID,
		maxAttempts:  defaultMaxAttempts,
		retryBackoff: defaultRetryBackoff,
	}
}

func (s *KafkaSubscriber) Subscribe(c context.Context, topics []string, handler Handler) error {
	readers := make(map[string]messageReader, len(topics))
	for _, topic := range topics {
		readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  s.brokers,
			Topic:    topic,
			GroupID:  s.groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		})
	}
	return s.subscribe(c, readers, handler)
}

// subscribe consumes every reader until c is cancelled or one of them stops with an error,
// which stops the others too.
func (s *KafkaSubscriber) subscribe(c context.Context, readers map[string]messageReader, handler Handler) error {
	c, cancel := context.WithCancel(c)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, len(readers))
	for topic, reader := range readers {
		s.mu.Lock()
		s.readers = append(s.readers, reader)
		s.mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.consume(c, topic, reader, handler); err != nil {
				errs <- err
				cancel()
			}
		}()
	}
	wg.Wait()
	close(errs)

	var joined error
	for err := range errs {
		joined = errors.Join(joined, err)
	}
	return joined
}

func (s *KafkaSubscriber) consume(c context.Context, topic string, reader messageReader, handler Handler) error {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "KafkaSubscriber consume").
		Str(log.KeyTopic, topic).
		Logger()

	for {
		m, err := reader.FetchMessage(c)
		if err != nil {
			if c.Err() != nil {
				return nil
			}
			err = fmt.Errorf("failed fetching message with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}

		msg := Message{Topic: m.Topic, Key: string(m.Key), Payload: m.Value, Headers: map[string]string{}}
		for _, h := range m.Headers {
			msg.Headers[h.Key] = string(h.Value)
		}
		if err := s.handle(c, logger, m, msg, handler); err != nil {
			if c.Err() != nil {
				return nil
			}
			logger.Error().Err(err).Msg(err.Error())
			return err
		}
		if err := reader.CommitMessages(c, m); err != nil {
			if c.Err() != nil {
				return nil
			}
			err = fmt.Errorf("failed committing message with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}
	}
}

func (s *KafkaSubscriber) handle(
	c context.Context,
	logger zerolog.Logger,
	m kafka.Message,
	msg Message,
	handler Handler,
) error {
	logger = logger.With().
		Str(log.KeyEventID, msg.EventID()).
		Int64("offset", m.Offset).
		Int("partition", m.Partition).
		Logger()

	backoff := s.retryBackoff
	for attempt := 1; ; attempt++ {
		err := handler(extractTraceContext(c, msg), msg)
		if err == nil {
			return nil
		}
		if attempt >= s.maxAttempts {
			return fmt.Errorf(
				"failed handling message at partition=%d offset=%d after attempts=%d with error=%w",
				m.Partition,
				m.Offset,
				attempt,
				err,
			)
		}
		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msgf("failed handling message with error=%s, retrying", err.Error())

		timer := time.NewTimer(backoff)
		select {
		case <-c.Done():
			timer.Stop()
			return c.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}

func (s *KafkaSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var joined error
	for _, reader := range s.readers {
		joined = errors.Join(joined, reader.Close())
	}
	s.readers = nil
	return joined
}
