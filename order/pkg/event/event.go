// Package event defines the messages the order service publishes through the outbox.
package event

import "time"

const (
	TopicOrderCreated = "order.created"
	TopicOrderPaid    = "order.paid"
)

type OrderItem struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
}

type OrderCreated struct {
	OrderID   int64       `json:"orderId"`
	UserID    int64       `json:"userId"`
	Email     string      `json:"email"`
	Total     int64       `json:"total"`
	Items     []OrderItem `json:"items"`
	CreatedAt time.Time   `json:"createdAt"`
}

type OrderPaid struct {
	OrderID          int64     `json:"orderId"`
	UserID           int64     `json:"userId"`
	Email            string    `json:"email"`
	Total            int64     `json:"total"`
	PaymentReference string    `json:"paymentReference"`
	PaidAt           time.Time `json:"paidAt"`
}
