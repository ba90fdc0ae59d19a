package repository

import (
	"context"
)

const productColumns = `id, name, description, price, quantity, category_id, created_at, updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (Product, error) {
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.Quantity,
		&i.CategoryID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertProduct = `-- name: InsertProduct :one
INSERT INTO products (name, description, price, quantity, category_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + productColumns

type InsertProductParams struct {
	Name        string
	Description string
	Price       int64
	Quantity    int32
	CategoryID  *int64
}

func (q *Queries) InsertProduct(c context.Context, arg InsertProductParams) (Product, error) {
	row := q.db.QueryRow(
		c,
		insertProduct,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.Quantity,
		arg.CategoryID,
	)
	return scanProduct(row)
}

const findProductById = `-- name: FindProductById :one
SELECT ` + productColumns + `
FROM products
WHERE id = $1
`

func (q *Queries) FindProductById(c context.Context, id int64) (Product, error) {
	return scanProduct(q.db.QueryRow(c, findProductById, id))
}

const findProducts = `-- name: FindProducts :many
SELECT ` + productColumns + `
FROM products
WHERE ($1::BIGINT IS NULL OR category_id = $1)
ORDER BY id
`

func (q *Queries) FindProducts(c context.Context, categoryID *int64) ([]Product, error) {
	rows, err := q.db.Query(c, findProducts, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Product{}
	for rows.Next() {
		i, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const findProductsByIds = `-- name: FindProductsByIds :many
SELECT ` + productColumns + `
FROM products
WHERE id = ANY($1::BIGINT[])
ORDER BY id
`

func (q *Queries) FindProductsByIds(c context.Context, ids []int64) ([]Product, error) {
	rows, err := q.db.Query(c, findProductsByIds, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Product{}
	for rows.Next() {
		i, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// Rows are locked in id order so concurrent reservations over overlapping products
// acquire locks in the same sequence.
const findProductsByIdsForUpdate = `-- name: FindProductsByIdsForUpdate :many
SELECT ` + productColumns + `
FROM products
WHERE id = ANY($1::BIGINT[])
ORDER BY id
FOR UPDATE
`

func (q *Queries) FindProductsByIdsForUpdate(c context.Context, ids []int64) ([]Product, error) {
	rows, err := q.db.Query(c, findProductsByIdsForUpdate, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Product{}
	for rows.Next() {
		i, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const decrementProductQuantity = `-- name: DecrementProductQuantity :one
UPDATE products
SET quantity = quantity - $2, updated_at = NOW()
WHERE id = $1 AND quantity >= $2
RETURNING quantity
`

type DecrementProductQuantityParams struct {
	ID       int64
	Quantity int32
}

// DecrementProductQuantity returns pgx.ErrNoRows when the product cannot cover the quantity.
func (q *Queries) DecrementProductQuantity(
	c context.Context,
	arg DecrementProductQuantityParams,
) (int32, error) {
	row := q.db.QueryRow(c, decrementProductQuantity, arg.ID, arg.Quantity)
	var quantity int32
	err := row.Scan(&quantity)
	return quantity, err
}

const restockProduct = `-- name: RestockProduct :one
UPDATE products
SET quantity = quantity + $2, updated_at = NOW()
WHERE id = $1
RETURNING ` + productColumns

type RestockProductParams struct {
	ID       int64
	Quantity int32
}

func (q *Queries) RestockProduct(c context.Context, arg RestockProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(c, restockProduct, arg.ID, arg.Quantity))
}

const insertCategory = `-- name: InsertCategory :one
INSERT INTO product_categories (name, description)
VALUES ($1, $2)
RETURNING id, name, description, created_at
`

type InsertCategoryParams struct {
	Name        string
	Description string
}

func (q *Queries) InsertCategory(c context.Context, arg InsertCategoryParams) (ProductCategory, error) {
	row := q.db.QueryRow(c, insertCategory, arg.Name, arg.Description)
	var i ProductCategory
	err := row.Scan(&i.ID, &i.Name, &i.Description, &i.CreatedAt)
	return i, err
}

const findCategories = `-- name: FindCategories :many
SELECT id, name, description, created_at
FROM product_categories
ORDER BY name
`

func (q *Queries) FindCategories(c context.Context) ([]ProductCategory, error) {
	rows, err := q.db.Query(c, findCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ProductCategory{}
	for rows.Next() {
		var i ProductCategory
		if err := rows.Scan(&i.ID, &i.Name, &i.Description, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
