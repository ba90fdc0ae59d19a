package controller

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/order/internal/otel"
	"github.com/Alturino/storefront/order/internal/service"
	"github.com/Alturino/storefront/payment"
)

// maxWebhookBodyBytes bounds the payload read before verification. Larger bodies get 413, not
// the 400 reserved for signature failures.
const maxWebhookBodyBytes = 1 << 20

type EventVerifier interface {
	VerifyAndParseEvent(c context.Context, payload []byte, signature string) (payment.Event, error)
}

type PaymentReconciler interface {
	ReconcilePayment(c context.Context, e payment.Event) service.ReconcileOutcome
}

type WebhookController struct {
	verifier   EventVerifier
	reconciler PaymentReconciler
}

func AttachWebhookController(router *mux.Router, verifier EventVerifier, reconciler PaymentReconciler) {
	controller := WebhookController{verifier: verifier, reconciler: reconciler}
	router.HandleFunc("/webhooks/stripe", controller.Stripe).Methods(http.MethodPost)
}

// Stripe answers 400 only when the signature cannot be verified. Every verified event is
// acknowledged, whatever the reconciliation outcome, so the provider stops retrying it.
func (ctrl WebhookController) Stripe(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "WebhookController Stripe")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "WebhookController Stripe").Logger()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		logger.Warn().Int64("limit", tooLarge.Limit).Msg("webhook body too large")
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusRequestEntityTooLarge,
			"message":    "webhook body too large",
		})
		return
	}
	if err != nil {
		err = inErrors.Wrap(inErrors.KindValidation, err, "failed reading webhook body")
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	c = logger.WithContext(c)
	e, err := ctrl.verifier.VerifyAndParseEvent(c, payload, r.Header.Get(inHttp.KeyHeaderStripeSignature))
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, payment.ErrSignatureVerification)
		return
	}

	outcome := ctrl.reconciler.ReconcilePayment(c, e)

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    string(outcome),
		"received":   true,
	})
}
