package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/rs/zerolog"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/repository"
	"github.com/Alturino/storefront/order/internal/otel"
	"github.com/Alturino/storefront/order/pkg/response"
	"github.com/Alturino/storefront/payment"
)

type ReconcileOutcome string

const (
	OutcomeIgnored          ReconcileOutcome = "ignored"
	OutcomeInvalidReference ReconcileOutcome = "invalid_reference"
	OutcomeOrderNotFound    ReconcileOutcome = "order_not_found"
	OutcomeApplied          ReconcileOutcome = "applied"
	OutcomeReplayed         ReconcileOutcome = "replayed"
	OutcomeFailed           ReconcileOutcome = "failed"
)

type OrderUpdater interface {
	UpdateOrder(c context.Context, id int64, patch OrderPatch) (response.Order, bool, error)
}

// Reconciler applies verified payment events to orders. It never fails the caller: the provider
// has already been told the event was received, and every outcome is logged and counted.
type Reconciler struct {
	orders OrderUpdater
}

func NewReconciler(orders OrderUpdater) *Reconciler {
	return &Reconciler{orders: orders}
}

func (r *Reconciler) ReconcilePayment(c context.Context, e payment.Event) (outcome ReconcileOutcome) {
	c, span := otel.Tracer.Start(c, "Reconciler ReconcilePayment")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Reconciler ReconcilePayment").
		Str(log.KeyEventID, e.ID).
		Str(log.KeyEventType, e.Type).
		Logger()
	defer func() {
		metrics.PaymentEventsTotal.WithLabelValues(e.Type, string(outcome)).Inc()
		logger.Info().Str(log.KeyOutcome, string(outcome)).Msg("reconciled payment event")
	}()

	if e.Type != payment.EventCheckoutSessionCompleted {
		return OutcomeIgnored
	}

	orderID, err := strconv.ParseInt(e.OrderReference, 10, 64)
	if err != nil || orderID <= 0 {
		logger.Warn().Str("orderReference", e.OrderReference).Msg("payment event has no valid order reference")
		return OutcomeInvalidReference
	}
	logger = logger.With().Int64(log.KeyOrderID, orderID).Logger()

	_, applied, err := r.orders.UpdateOrder(logger.WithContext(c), orderID, OrderPatch{
		Status:           repository.OrderStatusPaid,
		PaymentReference: e.PaymentReference,
	})
	switch {
	case errors.Is(err, inErrors.ErrNotFound):
		logger.Warn().Err(err).Msg("payment event references unknown order")
		return OutcomeOrderNotFound
	case err != nil:
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return OutcomeFailed
	case applied:
		return OutcomeApplied
	default:
		return OutcomeReplayed
	}
}
