package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/log"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/payment/internal/otel"
)

type StripeGateway struct {
	api           *client.API
	webhookSecret string
	currency      string
	successURL    string
	cancelURL     string
}

var _ Gateway = (*StripeGateway)(nil)

func NewStripeGateway(c context.Context, cfg config.Payment, baseURL string) *StripeGateway {
	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "StripeGateway").Logger()

	backendConfig := &stripe.BackendConfig{
		HTTPClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		},
		LeveledLogger: leveledLogger{logger: logger},
	}
	if cfg.APIURL != "" {
		backendConfig.URL = stripe.String(cfg.APIURL)
	}

	baseURL = strings.TrimRight(baseURL, "/")
	return &StripeGateway{
		api:           client.New(cfg.SecretKey, stripe.NewBackendsWithConfig(backendConfig)),
		webhookSecret: cfg.WebhookSecret,
		currency:      strings.ToLower(cfg.Currency),
		successURL:    baseURL + "/orders/success?session_id={CHECKOUT_SESSION_ID}",
		cancelURL:     baseURL + "/cart",
	}
}

func (g *StripeGateway) CreateCheckoutSession(c context.Context, req CheckoutRequest) (Session, error) {
	c, span := otel.Tracer.Start(c, "StripeGateway CreateCheckoutSession")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "StripeGateway CreateCheckoutSession").
		Int64(log.KeyOrderID, req.OrderID).
		Logger()

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(g.currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(item.Name)},
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(g.successURL),
		CancelURL:          stripe.String(g.cancelURL),
		Metadata:           map[string]string{MetadataOrderID: strconv.FormatInt(req.OrderID, 10)},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = c

	logger = logger.With().Str(log.KeyProcess, "creating checkout session").Logger()
	logger.Info().Msg("creating checkout session")
	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		err = fmt.Errorf("failed creating checkout session with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Session{}, err
	}
	logger.Info().Str(log.KeySessionID, session.ID).Msg("created checkout session")

	return fromStripeSession(session), nil
}

func (g *StripeGateway) RetrieveCheckoutSession(c context.Context, sessionID string) (Session, error) {
	c, span := otel.Tracer.Start(c, "StripeGateway RetrieveCheckoutSession")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "StripeGateway RetrieveCheckoutSession").
		Str(log.KeySessionID, sessionID).
		Str(log.KeyProcess, "retrieving checkout session").
		Logger()

	params := &stripe.CheckoutSessionParams{}
	params.Context = c

	logger.Info().Msg("retrieving checkout session")
	session, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		err = fmt.Errorf("failed retrieving checkout session with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Session{}, err
	}
	logger.Info().Msg("retrieved checkout session")

	return fromStripeSession(session), nil
}

func (g *StripeGateway) VerifyAndParseEvent(c context.Context, payload []byte, signature string) (Event, error) {
	c, span := otel.Tracer.Start(c, "StripeGateway VerifyAndParseEvent")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "StripeGateway VerifyAndParseEvent").
		Str(log.KeyProcess, "verifying webhook signature").
		Logger()

	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		err = fmt.Errorf("%w with error=%s", ErrSignatureVerification, err.Error())
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Event{}, err
	}
	logger.Info().
		Str(log.KeyEventID, event.ID).
		Str(log.KeyEventType, string(event.Type)).
		Msg("verified webhook signature")

	return parseEvent(event), nil
}

// parseEvent extracts the order and payment references from session events. Other event types
// carry only their id and type.
func parseEvent(event stripe.Event) Event {
	res := Event{ID: event.ID, Type: string(event.Type)}
	if !strings.HasPrefix(res.Type, "checkout.session.") || event.Data == nil {
		return res
	}
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return res
	}
	parsed := fromStripeSession(&session)
	res.OrderReference = parsed.OrderReference
	res.PaymentReference = parsed.PaymentReference
	return res
}

func fromStripeSession(session *stripe.CheckoutSession) Session {
	res := Session{
		ID:             session.ID,
		URL:            session.URL,
		OrderReference: session.Metadata[MetadataOrderID],
		Paid:           session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}
	res.PaymentReference = session.ID
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		res.PaymentReference = session.PaymentIntent.ID
	}
	return res
}
