package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/broker"
	"github.com/Alturino/storefront/internal/cache"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/notification/internal/email"
	"github.com/Alturino/storefront/notification/internal/mail"
	"github.com/Alturino/storefront/notification/internal/otel"
	"github.com/Alturino/storefront/order/pkg/event"
)

const (
	ResultSent        = "sent"
	ResultDuplicate   = "duplicate"
	ResultFailed      = "failed"
	ResultInvalid     = "invalid"
	ResultNoRecipient = "no_recipient"
	ResultIgnored     = "ignored"

	DedupeTTL = 24 * time.Hour
)

var Topics = []string{event.TopicOrderCreated, event.TopicOrderPaid}

type NotificationService struct {
	cache    *redis.Client
	mailer   mail.Mailer
	currency string
}

func NewNotificationService(cache *redis.Client, mailer mail.Mailer, currency string) *NotificationService {
	return &NotificationService{cache: cache, mailer: mailer, currency: currency}
}

// Run consumes order events until c is cancelled.
func (s *NotificationService) Run(c context.Context, subscriber broker.Subscriber) error {
	return subscriber.Subscribe(c, Topics, s.Handle)
}

// Handle sends the email for one event. Each event id is claimed in redis before sending so a
// redelivered event is skipped; the claim is released when sending fails and the error is
// returned so the broker redelivers. Undecodable payloads are dropped.
func (s *NotificationService) Handle(c context.Context, msg broker.Message) error {
	c, span := otel.Tracer.Start(c, "NotificationService Handle")
	defer span.End()

	eventID := msg.EventID()
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "NotificationService Handle").
		Str(log.KeyTopic, msg.Topic).
		Str(log.KeyEventID, eventID).
		Logger()

	result := ResultSent
	defer func() { metrics.NotificationsTotal.WithLabelValues(msg.Topic, result).Inc() }()

	logger = logger.With().Str(log.KeyProcess, "rendering email").Logger()
	logger.Debug().Msg("rendering email")
	to, rendered, err := s.render(msg)
	if err != nil {
		// a payload that cannot be decoded never succeeds on redelivery
		result = ResultInvalid
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil
	}
	if rendered == nil {
		result = ResultIgnored
		logger.Info().Msg("no email for topic")
		return nil
	}
	if to == "" {
		result = ResultNoRecipient
		logger.Warn().Msg("event carries no recipient")
		return nil
	}
	logger = logger.With().Str(log.KeyEmail, to).Logger()
	logger.Debug().Msg("rendered email")

	key := cache.EventSeenKey(eventID)
	if eventID != "" {
		logger = logger.With().Str(log.KeyProcess, "claiming event").Str(log.KeyCacheKey, key).Logger()
		logger.Debug().Msg("claiming event")
		claimed, err := s.cache.SetNX(c, key, msg.Topic, DedupeTTL).Result()
		if err != nil {
			err = fmt.Errorf("failed claiming event with error=%w", err)
			result = ResultFailed
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}
		if !claimed {
			result = ResultDuplicate
			logger.Info().Msg("event already handled")
			return nil
		}
		logger.Debug().Msg("claimed event")
	}

	logger = logger.With().Str(log.KeyProcess, "sending email").Logger()
	logger.Debug().Msg("sending email")
	_, err = s.mailer.Send(c, mail.Email{
		To:             to,
		Subject:        rendered.Subject,
		Html:           rendered.Html,
		Text:           rendered.Text,
		Topic:          msg.Topic,
		IdempotencyKey: eventID,
	})
	if err != nil {
		err = fmt.Errorf("failed sending email with error=%w", err)
		result = ResultFailed
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		if eventID != "" {
			if delErr := s.cache.Del(context.WithoutCancel(c), key).Err(); delErr != nil {
				logger.Error().Err(delErr).Msgf("failed releasing event claim with error=%s", delErr.Error())
			}
		}
		return err
	}
	logger.Info().Msg("sent email")

	return nil
}

// render returns a nil email for topics that do not notify anyone.
func (s *NotificationService) render(msg broker.Message) (string, *email.Rendered, error) {
	switch msg.Topic {
	case event.TopicOrderCreated:
		e := event.OrderCreated{}
		if err := json.Unmarshal(msg.Payload, &e); err != nil {
			return "", nil, fmt.Errorf("failed decoding %s with error=%w", msg.Topic, err)
		}
		rendered, err := email.OrderCreated(e, s.currency)
		if err != nil {
			return "", nil, err
		}
		return e.Email, &rendered, nil
	case event.TopicOrderPaid:
		e := event.OrderPaid{}
		if err := json.Unmarshal(msg.Payload, &e); err != nil {
			return "", nil, fmt.Errorf("failed decoding %s with error=%w", msg.Topic, err)
		}
		rendered, err := email.OrderPaid(e, s.currency)
		if err != nil {
			return "", nil, err
		}
		return e.Email, &rendered, nil
	default:
		return "", nil, nil
	}
}
