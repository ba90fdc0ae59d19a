package response

import (
	"github.com/Alturino/storefront/internal/money"
	"github.com/Alturino/storefront/internal/repository"
)

type CartLine struct {
	ItemID      int64  `json:"itemId"`
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	UnitPrice   int64  `json:"unitPrice"`
	Quantity    int32  `json:"quantity"`
	Subtotal    int64  `json:"subtotal"`
}

type Cart struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"userId"`
	Items      []CartLine `json:"items"`
	Total      int64      `json:"total"`
	TotalLabel string     `json:"totalLabel"`
}

// NewCart prices each line with the live product price.
func NewCart(cart repository.Cart, lines []repository.CartLine) Cart {
	res := Cart{ID: cart.ID, UserID: cart.UserID, Items: make([]CartLine, 0, len(lines))}
	for _, line := range lines {
		subtotal := line.UnitPrice * int64(line.Quantity)
		res.Items = append(res.Items, CartLine{
			ItemID:      line.ItemID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			Subtotal:    subtotal,
		})
		res.Total += subtotal
	}
	res.TotalLabel = money.Format(res.Total)
	return res
}
