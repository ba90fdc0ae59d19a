package repository

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
)

func (s OrderStatus) Valid() bool {
	return s == OrderStatusPending || s == OrderStatusPaid
}

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type ProductCategory struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	Quantity    int32     `json:"quantity"`
	CategoryID  *int64    `json:"categoryId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Cart struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CartItem struct {
	ID        int64     `json:"id"`
	CartID    int64     `json:"cartId"`
	ProductID int64     `json:"productId"`
	Quantity  int32     `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CartLine is a cart item joined with the live product name and price.
type CartLine struct {
	ItemID      int64  `json:"itemId"`
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	UnitPrice   int64  `json:"unitPrice"`
	Quantity    int32  `json:"quantity"`
}

type Order struct {
	ID               int64       `json:"id"`
	UserID           int64       `json:"userId"`
	Status           OrderStatus `json:"status"`
	Total            int64       `json:"total"`
	PaymentReference *string     `json:"paymentReference"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

type OrderItem struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"orderId"`
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
}

type OutboxEvent struct {
	ID        int64      `json:"id"`
	EventID   uuid.UUID  `json:"eventId"`
	Topic     string     `json:"topic"`
	Key       string     `json:"key"`
	Payload   []byte     `json:"payload"`
	Attempts  int32      `json:"attempts"`
	CreatedAt time.Time  `json:"createdAt"`
	SentAt    *time.Time `json:"sentAt"`
}
