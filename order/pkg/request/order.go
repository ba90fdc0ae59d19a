package request

type OrderItem struct {
	ProductID int64 `validate:"required,gt=0"  json:"productId"`
	Quantity  int32 `validate:"required,gte=1" json:"quantity"`
}

// CreateOrder carries no prices or total; both are resolved from the catalog.
type CreateOrder struct {
	UserID int64       `validate:"required,gt=0"       json:"userId"`
	Items  []OrderItem `validate:"required,min=1,dive" json:"items"`
}
