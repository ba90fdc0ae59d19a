package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedKind   Kind
		expectedStatus int
		expectedIs     error
	}{
		{
			name:           "given wrapped not found should return not found",
			err:            fmt.Errorf("failed finding order with error=%w", NotFound("order id=%d not found", 7)),
			expectedKind:   KindNotFound,
			expectedStatus: http.StatusNotFound,
			expectedIs:     ErrNotFound,
		},
		{
			name:           "given validation should return bad request",
			err:            Validation("quantity must be positive"),
			expectedKind:   KindValidation,
			expectedStatus: http.StatusBadRequest,
			expectedIs:     ErrValidation,
		},
		{
			name:           "given empty cart should return bad request",
			err:            fmt.Errorf("failed checkout with error=%w", EmptyCart()),
			expectedKind:   KindEmptyCart,
			expectedStatus: http.StatusBadRequest,
			expectedIs:     ErrEmptyCart,
		},
		{
			name:           "given stock error should return conflict",
			err:            fmt.Errorf("failed reserving stock with error=%w", InsufficientStock(1, "Mug", 3, 1)),
			expectedKind:   KindInsufficientStock,
			expectedStatus: http.StatusConflict,
			expectedIs:     ErrInsufficientStock,
		},
		{
			name:           "given forbidden should return forbidden",
			err:            Forbidden("order belongs to another user"),
			expectedKind:   KindForbidden,
			expectedStatus: http.StatusForbidden,
			expectedIs:     ErrForbidden,
		},
		{
			name:           "given plain error should return internal",
			err:            errors.New("connection reset"),
			expectedKind:   KindInternal,
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind := KindOf(tt.err)
			assert.Equal(t, tt.expectedKind, kind)
			assert.Equal(t, tt.expectedStatus, kind.HTTPStatus())
			if tt.expectedIs != nil {
				assert.ErrorIs(t, tt.err, tt.expectedIs)
			}
		})
	}
}

func TestSentinelsDoNotCrossMatch(t *testing.T) {
	err := NotFound("product id=%d not found", 3)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrInsufficientStock)
	assert.NotErrorIs(t, ErrTokenInvalid, ErrEmptyAuth)
	assert.ErrorIs(t, ErrTokenInvalid, ErrUnauthenticated)
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "Internal Server Error", PublicMessage(errors.New("pq: password authentication failed")))
	assert.Equal(
		t,
		"Internal Server Error",
		PublicMessage(Wrap(KindInternal, errors.New("boom"), "failed inserting order")),
	)
	assert.Equal(t, "order id=2 not found", PublicMessage(fmt.Errorf("wrap: %w", NotFound("order id=%d not found", 2))))

	msg := PublicMessage(InsufficientStock(4, "Lamp", 2, 0))
	assert.Contains(t, msg, "Lamp")
	assert.Contains(t, msg, "requested 2")
}

func TestStockErrorFields(t *testing.T) {
	err := fmt.Errorf("outer: %w", InsufficientStock(9, "Chair", 5, 2))

	var stockErr *StockError
	assert.True(t, errors.As(err, &stockErr))
	assert.EqualValues(t, 9, stockErr.ProductID)
	assert.Equal(t, "Chair", stockErr.ProductName)
	assert.EqualValues(t, 5, stockErr.Requested)
	assert.EqualValues(t, 2, stockErr.Available)
}
