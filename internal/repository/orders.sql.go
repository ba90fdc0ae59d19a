package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const orderColumns = `id, user_id, status, total, payment_reference, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Status,
		&i.Total,
		&i.PaymentReference,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectOrders(rows pgx.Rows, err error) ([]Order, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const insertOrder = `-- name: InsertOrder :one
INSERT INTO orders (user_id, status, total)
VALUES ($1, $2, $3)
RETURNING ` + orderColumns

type InsertOrderParams struct {
	UserID int64
	Status OrderStatus
	Total  int64
}

func (q *Queries) InsertOrder(c context.Context, arg InsertOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(c, insertOrder, arg.UserID, arg.Status, arg.Total))
}

type InsertOrderItemsParams struct {
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int32
	UnitPrice   int64
}

type iteratorForInsertOrderItems struct {
	rows                 []InsertOrderItemsParams
	skippedFirstNextCall bool
}

func (r *iteratorForInsertOrderItems) Next() bool {
	if len(r.rows) == 0 {
		return false
	}
	if !r.skippedFirstNextCall {
		r.skippedFirstNextCall = true
		return true
	}
	r.rows = r.rows[1:]
	return len(r.rows) > 0
}

func (r iteratorForInsertOrderItems) Values() ([]interface{}, error) {
	return []interface{}{
		r.rows[0].OrderID,
		r.rows[0].ProductID,
		r.rows[0].ProductName,
		r.rows[0].Quantity,
		r.rows[0].UnitPrice,
	}, nil
}

func (r iteratorForInsertOrderItems) Err() error {
	return nil
}

func (q *Queries) InsertOrderItems(c context.Context, arg []InsertOrderItemsParams) (int64, error) {
	return q.db.CopyFrom(
		c,
		pgx.Identifier{"order_items"},
		[]string{"order_id", "product_id", "product_name", "quantity", "unit_price"},
		&iteratorForInsertOrderItems{rows: arg},
	)
}

const findOrderById = `-- name: FindOrderById :one
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) FindOrderById(c context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(c, findOrderById, id))
}

const findOrderByIdForUpdate = `-- name: FindOrderByIdForUpdate :one
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
FOR UPDATE
`

func (q *Queries) FindOrderByIdForUpdate(c context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(c, findOrderByIdForUpdate, id))
}

const findOrdersByUserId = `-- name: FindOrdersByUserId :many
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
`

func (q *Queries) FindOrdersByUserId(c context.Context, userID int64) ([]Order, error) {
	rows, err := q.db.Query(c, findOrdersByUserId, userID)
	return collectOrders(rows, err)
}

const findOrders = `-- name: FindOrders :many
SELECT ` + orderColumns + `
FROM orders
ORDER BY created_at DESC, id DESC
`

func (q *Queries) FindOrders(c context.Context) ([]Order, error) {
	rows, err := q.db.Query(c, findOrders)
	return collectOrders(rows, err)
}

const findOrderItemsByOrderId = `-- name: FindOrderItemsByOrderId :many
SELECT id, order_id, product_id, product_name, quantity, unit_price
FROM order_items
WHERE order_id = $1
ORDER BY id
`

func (q *Queries) FindOrderItemsByOrderId(c context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := q.db.Query(c, findOrderItemsByOrderId, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.ProductID,
			&i.ProductName,
			&i.Quantity,
			&i.UnitPrice,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateOrderPayment = `-- name: UpdateOrderPayment :one
UPDATE orders
SET status = $2, payment_reference = $3, updated_at = NOW()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderPaymentParams struct {
	ID               int64
	Status           OrderStatus
	PaymentReference *string
}

func (q *Queries) UpdateOrderPayment(c context.Context, arg UpdateOrderPaymentParams) (Order, error) {
	return scanOrder(q.db.QueryRow(c, updateOrderPayment, arg.ID, arg.Status, arg.PaymentReference))
}

const deleteOrder = `-- name: DeleteOrder :execrows
DELETE FROM orders
WHERE id = $1
`

func (q *Queries) DeleteOrder(c context.Context, id int64) (int64, error) {
	result, err := q.db.Exec(c, deleteOrder, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
