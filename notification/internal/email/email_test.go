package email

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/order/pkg/event"
)

func TestOrderCreated(t *testing.T) {
	rendered, err := OrderCreated(event.OrderCreated{
		OrderID: 42,
		Email:   "ana@example.com",
		Total:   2000,
		Items: []event.OrderItem{
			{ProductID: 1, ProductName: "Mug <large>", Quantity: 2, UnitPrice: 500},
			{ProductID: 2, ProductName: "Teapot", Quantity: 1, UnitPrice: 1000},
		},
		CreatedAt: time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC),
	}, "eur")
	require.NoError(t, err)

	assert.Equal(t, "Order Confirmation #42", rendered.Subject)
	assert.Contains(t, rendered.Html, "#42")
	assert.Contains(t, rendered.Html, "€20.00")
	assert.Contains(t, rendered.Html, "€10.00")
	assert.Contains(t, rendered.Html, "5 March 2024")
	assert.Contains(t, rendered.Html, "Mug &lt;large&gt;")
	assert.NotContains(t, rendered.Html, "Mug <large>")
	assert.Contains(t, rendered.Text, "€20.00")
}

func TestOrderPaid(t *testing.T) {
	rendered, err := OrderPaid(event.OrderPaid{
		OrderID:          7,
		Total:            1950,
		PaymentReference: "pi_123",
		PaidAt:           time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC),
	}, "eur")
	require.NoError(t, err)

	assert.Equal(t, "Payment received for order #7", rendered.Subject)
	assert.Contains(t, rendered.Html, "€19.50")
	assert.Contains(t, rendered.Html, "pi_123")
}
