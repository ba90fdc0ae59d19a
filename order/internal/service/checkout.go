package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/auth"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/outbox"
	"github.com/Alturino/storefront/internal/repository"
	"github.com/Alturino/storefront/order/internal/otel"
	"github.com/Alturino/storefront/order/pkg/event"
	"github.com/Alturino/storefront/order/pkg/response"
	"github.com/Alturino/storefront/payment"
)

type Customer struct {
	UserID int64
	Email  string
}

func CustomerFromIdentity(identity auth.Identity) Customer {
	return Customer{UserID: identity.UserID, Email: identity.Email}
}

// CreateOrderFromCart turns the customer's cart into a pending order in one transaction: stock is
// reserved, lines are frozen at the current price, the order.created event is enqueued and the
// cart is emptied. On any failure nothing is written.
func (s *OrderService) CreateOrderFromCart(c context.Context, customer Customer) (response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrderService CreateOrderFromCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderService CreateOrderFromCart").
		Int64(log.KeyUserID, customer.UserID).
		Logger()
	c = logger.WithContext(c)

	var order repository.Order
	var items []repository.OrderItem
	err := s.store.ExecTx(c, func(q *repository.Queries) error {
		logger := logger.With().Str(log.KeyProcess, "locking cart").Logger()
		logger.Info().Msg("locking cart")
		cart, err := q.FindCartByUserIdForUpdate(c, customer.UserID)
		if errors.Is(err, pgx.ErrNoRows) {
			return inErrors.EmptyCart()
		}
		if err != nil {
			return fmt.Errorf("failed locking cart with error=%w", err)
		}
		logger = logger.With().Int64(log.KeyCartID, cart.ID).Logger()
		logger.Info().Msg("locked cart")

		logger = logger.With().Str(log.KeyProcess, "finding cart lines").Logger()
		logger.Info().Msg("finding cart lines")
		lines, err := q.FindCartLines(c, cart.ID)
		if err != nil {
			return fmt.Errorf("failed finding cart lines with error=%w", err)
		}
		if len(lines) == 0 {
			return inErrors.EmptyCart()
		}
		logger.Info().Int(log.KeyCartItems, len(lines)).Msg("found cart lines")

		var total int64
		demands := make([]Demand, 0, len(lines))
		params := make([]repository.InsertOrderItemsParams, 0, len(lines))
		for _, line := range lines {
			total += line.UnitPrice * int64(line.Quantity)
			demands = append(demands, Demand{ProductID: line.ProductID, Quantity: line.Quantity})
			params = append(params, repository.InsertOrderItemsParams{
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
			})
		}

		if err := ReserveStock(c, q, demands); err != nil {
			return err
		}

		logger = logger.With().Int64(log.KeyTotal, total).Str(log.KeyProcess, "inserting order").Logger()
		logger.Info().Msg("inserting order")
		order, err = q.InsertOrder(c, repository.InsertOrderParams{
			UserID: customer.UserID,
			Status: repository.OrderStatusPending,
			Total:  total,
		})
		if err != nil {
			return fmt.Errorf("failed inserting order with error=%w", err)
		}
		logger = logger.With().Int64(log.KeyOrderID, order.ID).Logger()
		logger.Info().Msg("inserted order")

		items, err = insertOrderItems(c, q, order.ID, params)
		if err != nil {
			return err
		}

		if customer.Email == "" {
			user, err := q.FindUserById(c, customer.UserID)
			if err != nil {
				return fmt.Errorf("failed finding customer with error=%w", err)
			}
			customer.Email = user.Email
		}

		logger = logger.With().Str(log.KeyProcess, "enqueueing order created event").Logger()
		logger.Info().Msg("enqueueing order created event")
		if _, err := outbox.Enqueue(c, q, event.TopicOrderCreated, strconv.FormatInt(order.ID, 10), orderCreated(order, customer, items)); err != nil {
			return err
		}
		logger.Info().Msg("enqueued order created event")

		logger = logger.With().Str(log.KeyProcess, "clearing cart").Logger()
		logger.Info().Msg("clearing cart")
		if _, err := q.ClearCartItems(c, cart.ID); err != nil {
			return fmt.Errorf("failed clearing cart with error=%w", err)
		}
		logger.Info().Msg("cleared cart")
		return nil
	})
	metrics.CheckoutsTotal.WithLabelValues(checkoutResult(err)).Inc()
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	logger.Info().Int64(log.KeyOrderID, order.ID).Msg("created order from cart")

	productIDs := make([]int64, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
	}
	s.cache.Invalidate(c, productIDs...)

	return response.FromRepository(order, items), nil
}

// Checkout creates the order and opens a hosted payment session for it. A gateway failure leaves
// the committed order pending.
func (s *OrderService) Checkout(c context.Context, customer Customer) (response.Checkout, error) {
	c, span := otel.Tracer.Start(c, "OrderService Checkout")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderService Checkout").
		Int64(log.KeyUserID, customer.UserID).
		Logger()

	order, err := s.CreateOrderFromCart(c, customer)
	if err != nil {
		inOtel.RecordError(err, span)
		return response.Checkout{}, err
	}
	logger = logger.With().Int64(log.KeyOrderID, order.ID).Logger()

	lineItems := make([]payment.LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		lineItems = append(lineItems, payment.LineItem{
			Name:       item.ProductName,
			UnitAmount: item.UnitPrice,
			Quantity:   item.Quantity,
		})
	}

	logger = logger.With().Str(log.KeyProcess, "creating checkout session").Logger()
	logger.Info().Msg("creating checkout session")
	session, err := s.gateway.CreateCheckoutSession(logger.WithContext(c), payment.CheckoutRequest{
		OrderID:       order.ID,
		CustomerEmail: customer.Email,
		Items:         lineItems,
	})
	if err != nil {
		err = fmt.Errorf("failed creating checkout session for orderId=%d with error=%w", order.ID, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Checkout{}, err
	}
	logger.Info().Str(log.KeySessionID, session.ID).Msg("created checkout session")

	return response.Checkout{Order: order, SessionID: session.ID, RedirectURL: session.URL}, nil
}

// ConfirmCheckout resolves the order behind a completed payment session for the success page.
// It never changes the order; payment state is written only by reconciliation.
func (s *OrderService) ConfirmCheckout(
	c context.Context,
	identity auth.Identity,
	sessionID string,
) (response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrderService ConfirmCheckout")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderService ConfirmCheckout").
		Int64(log.KeyUserID, identity.UserID).
		Str(log.KeySessionID, sessionID).
		Logger()

	if sessionID == "" {
		err := inErrors.Validation("session_id is required")
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}

	session, err := s.gateway.RetrieveCheckoutSession(logger.WithContext(c), sessionID)
	if err != nil {
		err = fmt.Errorf("failed retrieving checkout session with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}

	orderID, err := strconv.ParseInt(session.OrderReference, 10, 64)
	if err != nil || orderID <= 0 {
		err = inErrors.NotFound("checkout session has no order reference")
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}

	return s.GetOrderForIdentity(logger.WithContext(c), identity, orderID)
}

func orderCreated(order repository.Order, customer Customer, items []repository.OrderItem) event.OrderCreated {
	res := event.OrderCreated{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Email:     customer.Email,
		Total:     order.Total,
		Items:     make([]event.OrderItem, 0, len(items)),
		CreatedAt: order.CreatedAt,
	}
	for _, item := range items {
		res.Items = append(res.Items, event.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return res
}

func checkoutResult(err error) string {
	if err == nil {
		return "ok"
	}
	return inErrors.KindOf(err).String()
}
