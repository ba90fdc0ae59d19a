package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Alturino/storefront/internal/cache"
	"github.com/Alturino/storefront/internal/repository"
	"github.com/Alturino/storefront/internal/testutil"
	"github.com/Alturino/storefront/payment"
)

type fakeGateway struct {
	mu       sync.Mutex
	requests []payment.CheckoutRequest
	sessions map[string]payment.Session
	err      error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]payment.Session{}}
}

func (f *fakeGateway) CreateCheckoutSession(c context.Context, req payment.CheckoutRequest) (payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return payment.Session{}, f.err
	}
	f.requests = append(f.requests, req)
	session := payment.Session{
		ID:             fmt.Sprintf("cs_test_%d", req.OrderID),
		URL:            fmt.Sprintf("https://checkout.test/cs_test_%d", req.OrderID),
		OrderReference: fmt.Sprintf("%d", req.OrderID),
	}
	f.sessions[session.ID] = session
	return session, nil
}

func (f *fakeGateway) RetrieveCheckoutSession(c context.Context, sessionID string) (payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return payment.Session{}, fmt.Errorf("no such checkout session: %s", sessionID)
	}
	return session, nil
}

func (f *fakeGateway) VerifyAndParseEvent(c context.Context, payload []byte, signature string) (payment.Event, error) {
	return payment.Event{}, payment.ErrSignatureVerification
}

type orderFixture struct {
	c       context.Context
	store   *repository.Store
	svc     *OrderService
	gateway *fakeGateway
	redis   *miniredis.Miniredis
}

func setupOrderService(t *testing.T) orderFixture {
	t.Helper()
	c := testutil.Context()
	pool := testutil.StartPostgres(t, c, testutil.StorefrontSeed(t))
	store := repository.NewStore(pool)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	gateway := newFakeGateway()
	return orderFixture{
		c:       c,
		store:   store,
		svc:     NewOrderService(store, cache.NewProductCache(client, time.Minute), gateway),
		gateway: gateway,
		redis:   mr,
	}
}

func (f orderFixture) addToCart(t *testing.T, userID, productID int64, quantity int32) {
	t.Helper()
	cart, err := f.store.UpsertCart(f.c, userID)
	if err != nil {
		t.Fatalf("failed upserting cart with error: %s", err)
	}
	_, err = f.store.UpsertCartItem(f.c, repository.UpsertCartItemParams{
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  quantity,
	})
	if err != nil {
		t.Fatalf("failed upserting cart item with error: %s", err)
	}
}

func (f orderFixture) cartLines(t *testing.T, userID int64) []repository.CartLine {
	t.Helper()
	cart, err := f.store.UpsertCart(f.c, userID)
	if err != nil {
		t.Fatalf("failed upserting cart with error: %s", err)
	}
	lines, err := f.store.FindCartLines(f.c, cart.ID)
	if err != nil {
		t.Fatalf("failed finding cart lines with error: %s", err)
	}
	return lines
}

func (f orderFixture) stock(t *testing.T, productID int64) int32 {
	t.Helper()
	product, err := f.store.FindProductById(f.c, productID)
	if err != nil {
		t.Fatalf("failed finding product with error: %s", err)
	}
	return product.Quantity
}
