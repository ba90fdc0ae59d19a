package service

import (
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal/auth"
	"github.com/Alturino/storefront/internal/cache"
	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/repository"
	"github.com/Alturino/storefront/internal/testutil"
	"github.com/Alturino/storefront/order/pkg/event"
	"github.com/Alturino/storefront/order/pkg/request"
	"github.com/Alturino/storefront/payment"
)

var ana = Customer{UserID: testutil.UserAna, Email: "ana@example.com"}

func outboxEvents(t *testing.T, f orderFixture, topic string, orderID int64) []repository.OutboxEvent {
	t.Helper()
	events, err := f.store.FindOutboxEventsByKey(f.c, repository.FindOutboxEventsByKeyParams{
		Topic: topic,
		Key:   strconv.FormatInt(orderID, 10),
	})
	require.NoError(t, err)
	return events
}

func outboxCount(t *testing.T, f orderFixture) int {
	t.Helper()
	var count int
	require.NoError(t, f.store.Pool().QueryRow(f.c, "SELECT COUNT(*) FROM outbox").Scan(&count))
	return count
}

func TestCheckout(t *testing.T) {
	f := setupOrderService(t)
	f.addToCart(t, testutil.UserAna, testutil.Mug, 2)
	f.addToCart(t, testutil.UserAna, testutil.Teapot, 1)
	require.NoError(t, f.redis.Set(cache.ProductKey(testutil.Mug), `{"id":1}`))

	checkout, err := f.svc.Checkout(f.c, ana)
	require.NoError(t, err)

	order := checkout.Order
	assert.Equal(t, repository.OrderStatusPending, order.Status)
	assert.Equal(t, int64(2000), order.Total)
	require.Len(t, order.Items, 2)
	var sum int64
	for _, item := range order.Items {
		sum += item.UnitPrice * int64(item.Quantity)
	}
	assert.Equal(t, order.Total, sum)

	assert.Equal(t, int32(8), f.stock(t, testutil.Mug))
	assert.Equal(t, int32(0), f.stock(t, testutil.Teapot))
	assert.Empty(t, f.cartLines(t, testutil.UserAna))
	assert.False(t, f.redis.Exists(cache.ProductKey(testutil.Mug)))

	require.Len(t, f.gateway.requests, 1)
	assert.Equal(t, order.ID, f.gateway.requests[0].OrderID)
	assert.Equal(t, ana.Email, f.gateway.requests[0].CustomerEmail)
	assert.Equal(t, "https://checkout.test/"+checkout.SessionID, checkout.RedirectURL)

	events := outboxEvents(t, f, event.TopicOrderCreated, order.ID)
	require.Len(t, events, 1)
	created := event.OrderCreated{}
	require.NoError(t, json.Unmarshal(events[0].Payload, &created))
	assert.Equal(t, ana.Email, created.Email)
	assert.Equal(t, int64(2000), created.Total)
	assert.Len(t, created.Items, 2)

	stored, err := f.svc.GetOrderWithDetails(f.c, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Items, stored.Items)

	t.Run("given later price change should keep frozen line prices", func(t *testing.T) {
		_, err := f.store.Pool().Exec(f.c, "UPDATE products SET price = 9999 WHERE id = $1", testutil.Mug)
		require.NoError(t, err)

		stored, err := f.svc.GetOrderWithDetails(f.c, order.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2000), stored.Total)
		assert.Equal(t, testutil.MugPrice, stored.Items[0].UnitPrice)
	})

	t.Run("given emptied cart should reject second checkout", func(t *testing.T) {
		_, err := f.svc.Checkout(f.c, ana)
		assert.ErrorIs(t, err, inErrors.ErrEmptyCart)
	})
}

func TestCheckoutInsufficientStock(t *testing.T) {
	f := setupOrderService(t)
	f.addToCart(t, testutil.UserBo, testutil.Mug, 1)
	f.addToCart(t, testutil.UserBo, testutil.Spoon, 1)

	_, err := f.svc.CreateOrderFromCart(f.c, Customer{UserID: testutil.UserBo})
	require.ErrorIs(t, err, inErrors.ErrInsufficientStock)

	var stockErr *inErrors.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, testutil.Spoon, stockErr.ProductID)
	assert.Equal(t, "Spoon", stockErr.ProductName)
	assert.Equal(t, int32(1), stockErr.Requested)
	assert.Equal(t, int32(0), stockErr.Available)

	assert.Equal(t, int32(10), f.stock(t, testutil.Mug))
	assert.Len(t, f.cartLines(t, testutil.UserBo), 2)
	orders, err := f.svc.GetOrdersByUser(f.c, testutil.UserBo)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCheckoutFailingSecondProductLeavesNoOutbox(t *testing.T) {
	f := setupOrderService(t)
	f.addToCart(t, testutil.UserAna, testutil.Mug, 2)
	f.addToCart(t, testutil.UserAna, testutil.Teapot, 2)

	_, err := f.svc.CreateOrderFromCart(f.c, ana)
	require.ErrorIs(t, err, inErrors.ErrInsufficientStock)

	var stockErr *inErrors.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, testutil.Teapot, stockErr.ProductID)

	assert.Equal(t, int32(10), f.stock(t, testutil.Mug))
	assert.Equal(t, int32(1), f.stock(t, testutil.Teapot))
	assert.Len(t, f.cartLines(t, testutil.UserAna), 2)
	assert.Zero(t, outboxCount(t, f))
	orders, err := f.svc.GetAllOrders(f.c)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := setupOrderService(t)

	_, err := f.svc.CreateOrderFromCart(f.c, Customer{UserID: testutil.UserCy})
	assert.ErrorIs(t, err, inErrors.ErrEmptyCart)

	_, err = f.store.UpsertCart(f.c, testutil.UserCy)
	require.NoError(t, err)
	_, err = f.svc.CreateOrderFromCart(f.c, Customer{UserID: testutil.UserCy})
	assert.ErrorIs(t, err, inErrors.ErrEmptyCart)

	orders, err := f.svc.GetAllOrders(f.c)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCheckoutConcurrentLastUnit(t *testing.T) {
	f := setupOrderService(t)
	f.addToCart(t, testutil.UserAna, testutil.Teapot, 1)
	f.addToCart(t, testutil.UserBo, testutil.Teapot, 1)

	customers := []Customer{ana, {UserID: testutil.UserBo, Email: "bo@example.com"}}
	errs := make([]error, len(customers))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, customer := range customers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.CreateOrderFromCart(f.c, customer)
		}()
	}
	close(start)
	wg.Wait()

	var succeeded, outOfStock int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, inErrors.ErrInsufficientStock):
			outOfStock++
		default:
			t.Fatalf("unexpected error: %s", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, outOfStock)
	assert.Equal(t, int32(0), f.stock(t, testutil.Teapot))

	orders, err := f.svc.GetAllOrders(f.c)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestCheckoutGatewayFailureKeepsPendingOrder(t *testing.T) {
	f := setupOrderService(t)
	f.addToCart(t, testutil.UserAna, testutil.Mug, 1)
	f.gateway.err = errors.New("gateway unavailable")

	_, err := f.svc.Checkout(f.c, ana)
	require.Error(t, err)

	orders, err := f.svc.GetOrdersByUser(f.c, testutil.UserAna)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, repository.OrderStatusPending, orders[0].Status)
}

func TestUpdateOrder(t *testing.T) {
	f := setupOrderService(t)
	f.addToCart(t, testutil.UserAna, testutil.Mug, 1)
	order, err := f.svc.CreateOrderFromCart(f.c, ana)
	require.NoError(t, err)

	paid := OrderPatch{Status: repository.OrderStatusPaid, PaymentReference: "pi_1"}

	updated, applied, err := f.svc.UpdateOrder(f.c, order.ID, paid)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, repository.OrderStatusPaid, updated.Status)
	require.NotNil(t, updated.PaymentReference)
	assert.Equal(t, "pi_1", *updated.PaymentReference)
	assert.Len(t, outboxEvents(t, f, event.TopicOrderPaid, order.ID), 1)

	_, applied, err = f.svc.UpdateOrder(f.c, order.ID, paid)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Len(t, outboxEvents(t, f, event.TopicOrderPaid, order.ID), 1)

	tests := []struct {
		name        string
		id          int64
		patch       OrderPatch
		expectedErr error
	}{
		{
			name:        "given different payment reference should return validation error",
			id:          order.ID,
			patch:       OrderPatch{Status: repository.OrderStatusPaid, PaymentReference: "pi_2"},
			expectedErr: inErrors.ErrValidation,
		},
		{
			name:        "given reverse transition should return validation error",
			id:          order.ID,
			patch:       OrderPatch{Status: repository.OrderStatusPending},
			expectedErr: inErrors.ErrValidation,
		},
		{
			name:        "given unknown status should return validation error",
			id:          order.ID,
			patch:       OrderPatch{Status: "shipped", PaymentReference: "pi_1"},
			expectedErr: inErrors.ErrValidation,
		},
		{
			name:        "given unknown order should return not found",
			id:          9999,
			patch:       paid,
			expectedErr: inErrors.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.UpdateOrder(f.c, tt.id, tt.patch)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}

	stored, err := f.svc.GetOrderById(f.c, order.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.OrderStatusPaid, stored.Status)
	assert.Equal(t, "pi_1", *stored.PaymentReference)
}

func TestReconcilePaymentWithStore(t *testing.T) {
	f := setupOrderService(t)
	f.addToCart(t, testutil.UserAna, testutil.Mug, 1)
	order, err := f.svc.CreateOrderFromCart(f.c, ana)
	require.NoError(t, err)

	reconciler := NewReconciler(f.svc)
	completed := payment.Event{
		ID:               "evt_1",
		Type:             payment.EventCheckoutSessionCompleted,
		OrderReference:   strconv.FormatInt(order.ID, 10),
		PaymentReference: "pi_1",
	}

	assert.Equal(t, OutcomeApplied, reconciler.ReconcilePayment(f.c, completed))
	assert.Equal(t, OutcomeReplayed, reconciler.ReconcilePayment(f.c, completed))
	assert.Len(t, outboxEvents(t, f, event.TopicOrderPaid, order.ID), 1)

	missing := completed
	missing.OrderReference = "9999"
	assert.Equal(t, OutcomeOrderNotFound, reconciler.ReconcilePayment(f.c, missing))
}

func TestConfirmCheckout(t *testing.T) {
	f := setupOrderService(t)
	f.addToCart(t, testutil.UserAna, testutil.Mug, 1)
	checkout, err := f.svc.Checkout(f.c, ana)
	require.NoError(t, err)

	owner := auth.Identity{UserID: testutil.UserAna, Role: constants.RoleUser}
	other := auth.Identity{UserID: testutil.UserBo, Role: constants.RoleUser}
	admin := auth.Identity{UserID: testutil.UserCy, Role: constants.RoleAdmin}

	order, err := f.svc.ConfirmCheckout(f.c, owner, checkout.SessionID)
	require.NoError(t, err)
	assert.Equal(t, checkout.Order.ID, order.ID)
	assert.Len(t, order.Items, 1)

	_, err = f.svc.ConfirmCheckout(f.c, other, checkout.SessionID)
	assert.ErrorIs(t, err, inErrors.ErrForbidden)

	_, err = f.svc.ConfirmCheckout(f.c, admin, checkout.SessionID)
	assert.NoError(t, err)

	_, err = f.svc.ConfirmCheckout(f.c, owner, "")
	assert.ErrorIs(t, err, inErrors.ErrValidation)
}

func TestCreateOrder(t *testing.T) {
	f := setupOrderService(t)

	order, err := f.svc.CreateOrder(f.c, request.CreateOrder{
		UserID: testutil.UserBo,
		Items: []request.OrderItem{
			{ProductID: testutil.Mug, Quantity: 2},
			{ProductID: testutil.Spoon, Quantity: 3},
			{ProductID: testutil.Mug, Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3*500+3*150), order.Total)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, int32(10), f.stock(t, testutil.Mug))
	assert.Equal(t, int32(0), f.stock(t, testutil.Spoon))

	t.Run("given reloaded order should total its persisted lines", func(t *testing.T) {
		stored, err := f.svc.GetOrderWithDetails(f.c, order.ID)
		require.NoError(t, err)
		require.Len(t, stored.Items, 2)
		quantities := map[int64]int32{}
		var sum int64
		for _, item := range stored.Items {
			quantities[item.ProductID] += item.Quantity
			sum += item.UnitPrice * int64(item.Quantity)
		}
		assert.Equal(t, stored.Total, sum)
		assert.Equal(t, order.Total, stored.Total)
		assert.Equal(t, map[int64]int32{testutil.Mug: 3, testutil.Spoon: 3}, quantities)
	})

	tests := []struct {
		name        string
		param       request.CreateOrder
		expectedErr error
	}{
		{
			name:        "given no items should return validation error",
			param:       request.CreateOrder{UserID: testutil.UserBo},
			expectedErr: inErrors.ErrValidation,
		},
		{
			name: "given unknown product should return not found",
			param: request.CreateOrder{
				UserID: testutil.UserBo,
				Items:  []request.OrderItem{{ProductID: 9999, Quantity: 1}},
			},
			expectedErr: inErrors.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateOrder(f.c, tt.param)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}

	t.Run("given existing order should delete once", func(t *testing.T) {
		require.NoError(t, f.svc.DeleteOrder(f.c, order.ID))
		assert.ErrorIs(t, f.svc.DeleteOrder(f.c, order.ID), inErrors.ErrNotFound)
		_, err := f.svc.GetOrderById(f.c, order.ID)
		assert.ErrorIs(t, err, inErrors.ErrNotFound)
	})
}
