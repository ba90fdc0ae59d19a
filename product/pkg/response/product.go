package response

import (
	"github.com/Alturino/storefront/internal/money"
	"github.com/Alturino/storefront/internal/repository"
)

type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	PriceLabel  string `json:"priceLabel"`
	Quantity    int32  `json:"quantity"`
	CategoryID  *int64 `json:"categoryId"`
}

func FromRepository(p repository.Product) Product {
	return Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		PriceLabel:  money.Format(p.Price),
		Quantity:    p.Quantity,
		CategoryID:  p.CategoryID,
	}
}

func FromRepositories(products []repository.Product) []Product {
	res := make([]Product, 0, len(products))
	for _, p := range products {
		res = append(res, FromRepository(p))
	}
	return res
}
