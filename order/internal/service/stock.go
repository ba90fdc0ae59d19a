package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/repository"
	"github.com/Alturino/storefront/order/internal/otel"
)

type Demand struct {
	ProductID int64
	Quantity  int32
}

// MergeDemands sums demands for the same product and orders them by product id, which is the
// lock order every reservation follows.
func MergeDemands(demands []Demand) ([]Demand, error) {
	totals := make(map[int64]int64, len(demands))
	for _, d := range demands {
		if d.Quantity < 1 {
			return nil, inErrors.Validation("quantity for product id=%d must be a positive integer", d.ProductID)
		}
		totals[d.ProductID] += int64(d.Quantity)
	}

	merged := make([]Demand, 0, len(totals))
	for productID, quantity := range totals {
		if quantity > math.MaxInt32 {
			return nil, inErrors.Validation("quantity for product id=%d is too large", productID)
		}
		merged = append(merged, Demand{ProductID: productID, Quantity: int32(quantity)})
	}
	slices.SortFunc(merged, func(a, b Demand) int {
		switch {
		case a.ProductID < b.ProductID:
			return -1
		case a.ProductID > b.ProductID:
			return 1
		default:
			return 0
		}
	})
	return merged, nil
}

// ReserveStock decrements stock for every demand or for none. q must be bound to the caller's
// transaction; returning an error is what rolls the decrements back.
func ReserveStock(c context.Context, q *repository.Queries, demands []Demand) error {
	c, span := otel.Tracer.Start(c, "ReserveStock")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "ReserveStock").Logger()

	merged, err := MergeDemands(demands)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if len(merged) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(merged))
	for _, d := range merged {
		ids = append(ids, d.ProductID)
	}
	logger = logger.With().Ints64(log.KeyProductIDs, ids).Logger()

	logger = logger.With().Str(log.KeyProcess, "locking products").Logger()
	logger.Info().Msg("locking products")
	products, err := q.FindProductsByIdsForUpdate(c, ids)
	if err != nil {
		err = fmt.Errorf("failed locking products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	byID := make(map[int64]repository.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	logger.Info().Msg("locked products")

	logger = logger.With().Str(log.KeyProcess, "checking availability").Logger()
	for _, d := range merged {
		product, ok := byID[d.ProductID]
		if !ok {
			return stockFailure(logger, span, inErrors.InsufficientStock(d.ProductID, "unknown product", d.Quantity, 0))
		}
		if product.Quantity < d.Quantity {
			return stockFailure(
				logger,
				span,
				inErrors.InsufficientStock(product.ID, product.Name, d.Quantity, product.Quantity),
			)
		}
	}

	logger = logger.With().Str(log.KeyProcess, "decrementing stock").Logger()
	for _, d := range merged {
		remaining, err := q.DecrementProductQuantity(c, repository.DecrementProductQuantityParams{
			ID:       d.ProductID,
			Quantity: d.Quantity,
		})
		if errors.Is(err, pgx.ErrNoRows) {
			product := byID[d.ProductID]
			return stockFailure(logger, span, inErrors.InsufficientStock(product.ID, product.Name, d.Quantity, 0))
		}
		if err != nil {
			err = fmt.Errorf("failed decrementing stock of productId=%d with error=%w", d.ProductID, err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}
		logger.Debug().
			Int64(log.KeyProductID, d.ProductID).
			Int32("remaining", remaining).
			Msg("decremented stock")
	}
	logger.Info().Msg("reserved stock")

	return nil
}

func stockFailure(logger zerolog.Logger, span trace.Span, err error) error {
	metrics.StockReservationFailuresTotal.Inc()
	inOtel.RecordError(err, span)
	logger.Warn().Err(err).Msg(err.Error())
	return err
}
