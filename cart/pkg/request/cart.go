package request

type AddItem struct {
	ProductID int64 `validate:"required,gt=0" json:"productId"`
	Quantity  int32 `validate:"required,gte=1" json:"quantity"`
}

type UpdateItemQuantity struct {
	Quantity int32 `validate:"required,gte=1" json:"quantity"`
}
