package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/auth"
	"github.com/Alturino/storefront/internal/cache"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/outbox"
	"github.com/Alturino/storefront/internal/repository"
	"github.com/Alturino/storefront/order/internal/otel"
	"github.com/Alturino/storefront/order/pkg/event"
	"github.com/Alturino/storefront/order/pkg/request"
	"github.com/Alturino/storefront/order/pkg/response"
	"github.com/Alturino/storefront/payment"
)

// OrderPatch is the only way an order's payment state changes.
type OrderPatch struct {
	Status           repository.OrderStatus
	PaymentReference string
}

type OrderService struct {
	store   *repository.Store
	cache   *cache.ProductCache
	gateway payment.Gateway
}

func NewOrderService(store *repository.Store, cache *cache.ProductCache, gateway payment.Gateway) *OrderService {
	return &OrderService{store: store, cache: cache, gateway: gateway}
}

func (s *OrderService) GetOrderById(c context.Context, id int64) (response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrderService GetOrderById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderService GetOrderById").
		Int64(log.KeyOrderID, id).
		Str(log.KeyProcess, "finding order by id").
		Logger()

	logger.Info().Msg("finding order by id")
	order, err := s.store.FindOrderById(c, id)
	if err != nil {
		err = orderLookupError(err, id)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	logger.Info().Msg("found order by id")

	return response.FromRepository(order, nil), nil
}

func (s *OrderService) GetOrderWithDetails(c context.Context, id int64) (response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrderService GetOrderWithDetails")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderService GetOrderWithDetails").
		Int64(log.KeyOrderID, id).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding order by id").Logger()
	logger.Info().Msg("finding order by id")
	order, err := s.store.FindOrderById(c, id)
	if err != nil {
		err = orderLookupError(err, id)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	logger.Info().Msg("found order by id")

	logger = logger.With().Str(log.KeyProcess, "finding order items").Logger()
	logger.Info().Msg("finding order items")
	items, err := s.store.FindOrderItemsByOrderId(c, id)
	if err != nil {
		err = fmt.Errorf("failed finding order items with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	logger.Info().Int(log.KeyOrderItems, len(items)).Msg("found order items")

	return response.FromRepository(order, items), nil
}

// GetOrderForIdentity returns the order with its lines when the caller owns it or is an admin.
func (s *OrderService) GetOrderForIdentity(c context.Context, identity auth.Identity, id int64) (response.Order, error) {
	order, err := s.GetOrderWithDetails(c, id)
	if err != nil {
		return response.Order{}, err
	}
	if order.UserID != identity.UserID && !identity.IsAdmin() {
		return response.Order{}, inErrors.Forbidden("order id=%d belongs to another user", id)
	}
	return order, nil
}

func (s *OrderService) GetOrdersByUser(c context.Context, userID int64) ([]response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrderService GetOrdersByUser")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderService GetOrdersByUser").
		Int64(log.KeyUserID, userID).
		Str(log.KeyProcess, "finding orders by user id").
		Logger()

	logger.Info().Msg("finding orders by user id")
	orders, err := s.store.FindOrdersByUserId(c, userID)
	if err != nil {
		err = fmt.Errorf("failed finding orders by user id with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Int(log.KeyOrders, len(orders)).Msg("found orders by user id")

	return response.FromRepositories(orders), nil
}

func (s *OrderService) GetAllOrders(c context.Context) ([]response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrderService GetAllOrders")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderService GetAllOrders").
		Str(log.KeyProcess, "finding orders").
		Logger()

	logger.Info().Msg("finding orders")
	orders, err := s.store.FindOrders(c)
	if err != nil {
		err = fmt.Errorf("failed finding orders with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Int(log.KeyOrders, len(orders)).Msg("found orders")

	return response.FromRepositories(orders), nil
}

// CreateOrder records an order directly from items without reserving stock. Unit prices and the
// total come from the catalog at the time of the call.
func (s *OrderService) CreateOrder(c context.Context, param request.CreateOrder) (response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrderService CreateOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderService CreateOrder").
		Int64(log.KeyUserID, param.UserID).
		Int(log.KeyOrderItems, len(param.Items)).
		Logger()

	if len(param.Items) == 0 {
		err := inErrors.Validation("order must contain at least one item")
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	demands := make([]Demand, 0, len(param.Items))
	for _, item := range param.Items {
		demands = append(demands, Demand{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	merged, err := MergeDemands(demands)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}

	c = logger.WithContext(c)
	var order repository.Order
	var items []repository.OrderItem
	err = s.store.ExecTx(c, func(q *repository.Queries) error {
		ids := make([]int64, 0, len(merged))
		for _, d := range merged {
			ids = append(ids, d.ProductID)
		}

		logger := logger.With().Str(log.KeyProcess, "finding products by ids").Logger()
		logger.Info().Msg("finding products by ids")
		products, err := q.FindProductsByIds(c, ids)
		if err != nil {
			return fmt.Errorf("failed finding products with error=%w", err)
		}
		byID := make(map[int64]repository.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}
		logger.Info().Msg("found products by ids")

		var total int64
		params := make([]repository.InsertOrderItemsParams, 0, len(merged))
		for _, d := range merged {
			product, ok := byID[d.ProductID]
			if !ok {
				return inErrors.NotFound("product id=%d not found", d.ProductID)
			}
			total += product.Price * int64(d.Quantity)
			params = append(params, repository.InsertOrderItemsParams{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    d.Quantity,
				UnitPrice:   product.Price,
			})
		}

		logger = logger.With().Str(log.KeyProcess, "inserting order").Logger()
		logger.Info().Msg("inserting order")
		order, err = q.InsertOrder(c, repository.InsertOrderParams{
			UserID: param.UserID,
			Status: repository.OrderStatusPending,
			Total:  total,
		})
		if err != nil {
			return fmt.Errorf("failed inserting order with error=%w", err)
		}
		items, err = insertOrderItems(c, q, order.ID, params)
		if err != nil {
			return err
		}
		logger.Info().Int64(log.KeyOrderID, order.ID).Msg("inserted order")
		return nil
	})
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}

	return response.FromRepository(order, items), nil
}

// UpdateOrder applies a payment patch. The only transition is pending to paid with a payment
// reference; re-applying the patch already recorded is a no-op. The returned bool reports whether
// the order changed.
func (s *OrderService) UpdateOrder(c context.Context, id int64, patch OrderPatch) (response.Order, bool, error) {
	c, span := otel.Tracer.Start(c, "OrderService UpdateOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderService UpdateOrder").
		Int64(log.KeyOrderID, id).
		Str("status", string(patch.Status)).
		Str(log.KeyPaymentReference, patch.PaymentReference).
		Logger()

	if !patch.Status.Valid() {
		err := inErrors.Validation("unknown order status=%s", patch.Status)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, false, err
	}

	c = logger.WithContext(c)
	var order repository.Order
	var applied bool
	err := s.store.ExecTx(c, func(q *repository.Queries) error {
		logger := logger.With().Str(log.KeyProcess, "locking order").Logger()
		logger.Info().Msg("locking order")
		current, err := q.FindOrderByIdForUpdate(c, id)
		if err != nil {
			return orderLookupError(err, id)
		}
		logger.Info().Str("currentStatus", string(current.Status)).Msg("locked order")

		if isReplay(current, patch) {
			order = current
			return nil
		}
		if err := validateTransition(current, patch); err != nil {
			return err
		}

		logger = logger.With().Str(log.KeyProcess, "updating order payment").Logger()
		logger.Info().Msg("updating order payment")
		reference := patch.PaymentReference
		order, err = q.UpdateOrderPayment(c, repository.UpdateOrderPaymentParams{
			ID:               id,
			Status:           patch.Status,
			PaymentReference: &reference,
		})
		if err != nil {
			return fmt.Errorf("failed updating order payment with error=%w", err)
		}
		applied = true
		logger.Info().Msg("updated order payment")

		user, err := q.FindUserById(c, order.UserID)
		if err != nil {
			return fmt.Errorf("failed finding order owner with error=%w", err)
		}

		logger = logger.With().Str(log.KeyProcess, "enqueueing order paid event").Logger()
		logger.Info().Msg("enqueueing order paid event")
		_, err = outbox.Enqueue(c, q, event.TopicOrderPaid, strconv.FormatInt(order.ID, 10), event.OrderPaid{
			OrderID:          order.ID,
			UserID:           order.UserID,
			Email:            user.Email,
			Total:            order.Total,
			PaymentReference: reference,
			PaidAt:           order.UpdatedAt,
		})
		if err != nil {
			return err
		}
		logger.Info().Msg("enqueued order paid event")
		return nil
	})
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, false, err
	}
	logger.Info().Bool("applied", applied).Msg("updated order")

	return response.FromRepository(order, nil), applied, nil
}

func isReplay(current repository.Order, patch OrderPatch) bool {
	if current.Status != patch.Status {
		return false
	}
	if current.PaymentReference == nil {
		return patch.PaymentReference == ""
	}
	return *current.PaymentReference == patch.PaymentReference
}

func validateTransition(current repository.Order, patch OrderPatch) error {
	if current.Status == repository.OrderStatusPaid {
		return inErrors.Validation(
			"order id=%d is already paid and cannot move to status=%s with a different payment reference",
			current.ID,
			patch.Status,
		)
	}
	if patch.Status != repository.OrderStatusPaid {
		return inErrors.Validation("order id=%d cannot move from %s to %s", current.ID, current.Status, patch.Status)
	}
	if patch.PaymentReference == "" {
		return inErrors.Validation("payment reference is required to mark order id=%d paid", current.ID)
	}
	return nil
}

func (s *OrderService) DeleteOrder(c context.Context, id int64) error {
	c, span := otel.Tracer.Start(c, "OrderService DeleteOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderService DeleteOrder").
		Int64(log.KeyOrderID, id).
		Str(log.KeyProcess, "deleting order").
		Logger()

	logger.Info().Msg("deleting order")
	deleted, err := s.store.DeleteOrder(c, id)
	if err != nil {
		err = fmt.Errorf("failed deleting order with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if deleted == 0 {
		err = inErrors.NotFound("order id=%d not found", id)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("deleted order")

	return nil
}

func insertOrderItems(
	c context.Context,
	q *repository.Queries,
	orderID int64,
	params []repository.InsertOrderItemsParams,
) ([]repository.OrderItem, error) {
	logger := zerolog.Ctx(c).With().Str(log.KeyProcess, "inserting order items").Logger()
	logger.Info().Msg("inserting order items")

	items := make([]repository.OrderItem, 0, len(params))
	for i := range params {
		params[i].OrderID = orderID
		items = append(items, repository.OrderItem{
			OrderID:     orderID,
			ProductID:   params[i].ProductID,
			ProductName: params[i].ProductName,
			Quantity:    params[i].Quantity,
			UnitPrice:   params[i].UnitPrice,
		})
	}
	copied, err := q.InsertOrderItems(c, params)
	if err != nil {
		return nil, fmt.Errorf("failed inserting order items with error=%w", err)
	}
	if copied != int64(len(params)) {
		return nil, fmt.Errorf("inserted %d of %d order items", copied, len(params))
	}
	logger.Info().Int64("copied", copied).Msg("inserted order items")

	return items, nil
}

func orderLookupError(err error, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return inErrors.NotFound("order id=%d not found", id)
	}
	return fmt.Errorf("failed finding order id=%d with error=%w", id, err)
}
