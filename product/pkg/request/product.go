package request

type InsertProduct struct {
	Name        string `validate:"required,max=255"  json:"name"`
	Description string `validate:"max=2000"          json:"description"`
	Price       string `validate:"required,price"    json:"price"`
	Quantity    int32  `validate:"gte=0"             json:"quantity"`
	CategoryID  *int64 `validate:"omitempty,gt=0"    json:"categoryId"`
}

type Restock struct {
	Quantity int32 `validate:"required,gte=1" json:"quantity"`
}

type InsertCategory struct {
	Name        string `validate:"required,max=255" json:"name"`
	Description string `validate:"max=2000"         json:"description"`
}
