package mail

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/log"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/notification/internal/otel"
)

type Email struct {
	To      string
	Subject string
	Html    string
	Text    string
	Topic   string
	// IdempotencyKey makes a redelivered event produce at most one email at the provider.
	IdempotencyKey string
}

type Mailer interface {
	Send(c context.Context, email Email) (string, error)
}

type ResendMailer struct {
	client *resend.Client
	from   string
}

// NewResendMailer builds a mailer on the resend API. cfg.APIURL is optional and replaces the
// provider endpoint.
func NewResendMailer(cfg config.Mail) (*ResendMailer, error) {
	httpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   15 * time.Second,
	}
	client := resend.NewCustomClient(httpClient, cfg.APIKey)
	if cfg.APIURL != "" {
		u, err := url.Parse(cfg.APIURL)
		if err != nil {
			return nil, fmt.Errorf("failed parsing mail base url with error=%w", err)
		}
		client.BaseURL = u
	}
	return &ResendMailer{client: client, from: cfg.From}, nil
}

func (m *ResendMailer) Send(c context.Context, email Email) (string, error) {
	c, span := otel.Tracer.Start(c, "ResendMailer Send")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ResendMailer Send").
		Str(log.KeyEmail, email.To).
		Str(log.KeyTopic, email.Topic).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "sending email").Logger()
	logger.Debug().Msg("sending email")
	request := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.Html,
		Text:    email.Text,
	}
	if email.Topic != "" {
		request.Tags = []resend.Tag{{Name: "topic", Value: tagValue(email.Topic)}}
	}
	response, err := m.client.Emails.SendWithOptions(
		c,
		request,
		&resend.SendEmailOptions{IdempotencyKey: email.IdempotencyKey},
	)
	if err != nil {
		err = fmt.Errorf("failed sending email with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return "", err
	}
	logger.Info().Str("emailId", response.Id).Msg("sent email")

	return response.Id, nil
}

// tagValue keeps only the characters resend accepts in tag values.
func tagValue(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// LogMailer writes emails to the log instead of sending them. Used when no mail api key is set.
type LogMailer struct{}

func (LogMailer) Send(c context.Context, email Email) (string, error) {
	zerolog.Ctx(c).
		Info().
		Str(log.KeyTag, "LogMailer Send").
		Str(log.KeyEmail, email.To).
		Str(log.KeyTopic, email.Topic).
		Str("subject", email.Subject).
		Msg("mail delivery disabled, logged email")
	return "", nil
}
