package repository

import (
	"context"
)

// The no-op update makes RETURNING yield the existing row on conflict, so concurrent first
// requests for the same user converge on one cart.
const upsertCart = `-- name: UpsertCart :one
INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING id, user_id, created_at, updated_at
`

func (q *Queries) UpsertCart(c context.Context, userID int64) (Cart, error) {
	row := q.db.QueryRow(c, upsertCart, userID)
	var i Cart
	err := row.Scan(&i.ID, &i.UserID, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const findCartByUserIdForUpdate = `-- name: FindCartByUserIdForUpdate :one
SELECT id, user_id, created_at, updated_at
FROM carts
WHERE user_id = $1
FOR UPDATE
`

func (q *Queries) FindCartByUserIdForUpdate(c context.Context, userID int64) (Cart, error) {
	row := q.db.QueryRow(c, findCartByUserIdForUpdate, userID)
	var i Cart
	err := row.Scan(&i.ID, &i.UserID, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const findCartLines = `-- name: FindCartLines :many
SELECT ci.id, ci.product_id, p.name, p.price, ci.quantity
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1
ORDER BY ci.id
`

func (q *Queries) FindCartLines(c context.Context, cartID int64) ([]CartLine, error) {
	rows, err := q.db.Query(c, findCartLines, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CartLine{}
	for rows.Next() {
		var i CartLine
		if err := rows.Scan(
			&i.ItemID,
			&i.ProductID,
			&i.ProductName,
			&i.UnitPrice,
			&i.Quantity,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertCartItem = `-- name: UpsertCartItem :one
INSERT INTO cart_items (cart_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (cart_id, product_id)
DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
RETURNING id, cart_id, product_id, quantity, created_at, updated_at
`

type UpsertCartItemParams struct {
	CartID    int64
	ProductID int64
	Quantity  int32
}

func (q *Queries) UpsertCartItem(c context.Context, arg UpsertCartItemParams) (CartItem, error) {
	row := q.db.QueryRow(c, upsertCartItem, arg.CartID, arg.ProductID, arg.Quantity)
	var i CartItem
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.ProductID,
		&i.Quantity,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateCartItemQuantity = `-- name: UpdateCartItemQuantity :one
UPDATE cart_items
SET quantity = $3, updated_at = NOW()
WHERE id = $1 AND cart_id = $2
RETURNING id, cart_id, product_id, quantity, created_at, updated_at
`

type UpdateCartItemQuantityParams struct {
	ID       int64
	CartID   int64
	Quantity int32
}

func (q *Queries) UpdateCartItemQuantity(
	c context.Context,
	arg UpdateCartItemQuantityParams,
) (CartItem, error) {
	row := q.db.QueryRow(c, updateCartItemQuantity, arg.ID, arg.CartID, arg.Quantity)
	var i CartItem
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.ProductID,
		&i.Quantity,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const deleteCartItem = `-- name: DeleteCartItem :execrows
DELETE FROM cart_items
WHERE id = $1 AND cart_id = $2
`

type DeleteCartItemParams struct {
	ID     int64
	CartID int64
}

func (q *Queries) DeleteCartItem(c context.Context, arg DeleteCartItemParams) (int64, error) {
	result, err := q.db.Exec(c, deleteCartItem, arg.ID, arg.CartID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const clearCartItems = `-- name: ClearCartItems :execrows
DELETE FROM cart_items
WHERE cart_id = $1
`

func (q *Queries) ClearCartItems(c context.Context, cartID int64) (int64, error) {
	result, err := q.db.Exec(c, clearCartItems, cartID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
