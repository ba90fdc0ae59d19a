package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/broker"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/repository"
)

type TxRunner interface {
	ExecTx(c context.Context, fn func(*repository.Queries) error) error
}

// Relay polls unsent outbox rows and publishes them. Delivery is at least once: a row is marked
// sent only after the broker accepted it.
type Relay struct {
	store     TxRunner
	publisher broker.Publisher
	interval  time.Duration
	batchSize int32
}

func NewRelay(store TxRunner, publisher broker.Publisher, interval time.Duration, batchSize int32) *Relay {
	return &Relay{store: store, publisher: publisher, interval: interval, batchSize: batchSize}
}

func (r *Relay) Run(c context.Context) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Relay Run").
		Dur("interval", r.interval).
		Int32(log.KeyBatchSize, r.batchSize).
		Logger()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	logger.Info().Msg("started outbox relay")
	for {
		select {
		case <-c.Done():
			logger.Info().Msg("stopped outbox relay")
			return
		case <-ticker.C:
			if _, err := r.RelayOnce(c); err != nil {
				logger.Error().Err(err).Msg(err.Error())
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many rows were marked sent.
func (r *Relay) RelayOnce(c context.Context) (int, error) {
	c, span := otel.Tracer.Start(c, "Relay RelayOnce")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "Relay RelayOnce").Logger()

	sent := 0
	err := r.store.ExecTx(c, func(q *repository.Queries) error {
		events, err := q.ClaimOutboxEvents(c, r.batchSize)
		if err != nil {
			return fmt.Errorf("failed claiming outbox events with error=%w", err)
		}
		if len(events) == 0 {
			return nil
		}
		logger.Debug().Int("claimed", len(events)).Msg("claimed outbox events")

		for _, event := range events {
			eventLogger := logger.With().
				Str(log.KeyEventID, event.EventID.String()).
				Str(log.KeyTopic, event.Topic).
				Logger()

			err := r.publisher.Publish(c, broker.Message{
				Topic:   event.Topic,
				Key:     event.Key,
				Payload: event.Payload,
				Headers: map[string]string{broker.HeaderEventID: event.EventID.String()},
			})
			if err != nil {
				metrics.OutboxPublishedTotal.WithLabelValues(event.Topic, "failed").Inc()
				eventLogger.Error().Err(err).Msg("failed publishing outbox event")
				if err := q.IncrementOutboxAttempts(c, event.ID); err != nil {
					return fmt.Errorf("failed incrementing outbox attempts with error=%w", err)
				}
				continue
			}

			if err := q.MarkOutboxEventSent(c, event.ID); err != nil {
				return fmt.Errorf("failed marking outbox event sent with error=%w", err)
			}
			metrics.OutboxPublishedTotal.WithLabelValues(event.Topic, "sent").Inc()
			eventLogger.Info().Msg("published outbox event")
			sent++
		}
		return nil
	})
	if err != nil {
		otel.RecordError(err, span)
		return 0, err
	}
	return sent, nil
}
