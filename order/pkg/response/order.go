package response

import (
	"time"

	"github.com/Alturino/storefront/internal/money"
	"github.com/Alturino/storefront/internal/repository"
)

type OrderItem struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
	Subtotal    int64  `json:"subtotal"`
}

type Order struct {
	ID               int64                  `json:"id"`
	UserID           int64                  `json:"userId"`
	Status           repository.OrderStatus `json:"status"`
	Total            int64                  `json:"total"`
	TotalLabel       string                 `json:"totalLabel"`
	PaymentReference *string                `json:"paymentReference,omitempty"`
	Items            []OrderItem            `json:"items,omitempty"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

type Checkout struct {
	Order       Order  `json:"order"`
	SessionID   string `json:"sessionId"`
	RedirectURL string `json:"redirectUrl"`
}

func FromRepository(order repository.Order, items []repository.OrderItem) Order {
	res := Order{
		ID:               order.ID,
		UserID:           order.UserID,
		Status:           order.Status,
		Total:            order.Total,
		TotalLabel:       money.Format(order.Total),
		PaymentReference: order.PaymentReference,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
	if items == nil {
		return res
	}
	res.Items = make([]OrderItem, 0, len(items))
	for _, item := range items {
		res.Items = append(res.Items, OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.UnitPrice * int64(item.Quantity),
		})
	}
	return res
}

func FromRepositories(orders []repository.Order) []Order {
	res := make([]Order, 0, len(orders))
	for _, order := range orders {
		res = append(res, FromRepository(order, nil))
	}
	return res
}
