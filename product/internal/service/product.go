package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/cache"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/money"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/repository"
	"github.com/Alturino/storefront/product/internal/otel"
	"github.com/Alturino/storefront/product/pkg/request"
	"github.com/Alturino/storefront/product/pkg/response"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type ProductService struct {
	queries *repository.Queries
	cache   *cache.ProductCache
}

func NewProductService(queries *repository.Queries, cache *cache.ProductCache) *ProductService {
	return &ProductService{queries: queries, cache: cache}
}

func (s *ProductService) FindProducts(c context.Context, categoryID *int64) ([]response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService FindProducts")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "ProductService FindProducts").Logger()

	if categoryID == nil {
		if products, ok := s.cache.GetList(c); ok {
			logger.Debug().Msg("found products in cache")
			return response.FromRepositories(products), nil
		}
	}

	logger = logger.With().Str(log.KeyProcess, "finding products").Logger()
	logger.Info().Msg("finding products")
	products, err := s.queries.FindProducts(c, categoryID)
	if err != nil {
		err = fmt.Errorf("failed finding products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Int("count", len(products)).Msg("found products")

	if categoryID == nil {
		s.cache.SetList(c, products)
	}
	return response.FromRepositories(products), nil
}

func (s *ProductService) FindProductById(c context.Context, id int64) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService FindProductById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService FindProductById").
		Int64(log.KeyProductID, id).
		Logger()

	if product, ok := s.cache.Get(c, id); ok {
		logger.Debug().Msg("found product in cache")
		return response.FromRepository(product), nil
	}

	logger = logger.With().Str(log.KeyProcess, "finding product by id").Logger()
	logger.Info().Msg("finding product by id")
	product, err := s.queries.FindProductById(c, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = inErrors.NotFound("product id=%d not found", id)
		} else {
			err = fmt.Errorf("failed finding product by id with error=%w", err)
		}
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Info().Msg("found product by id")

	s.cache.Set(c, product)
	return response.FromRepository(product), nil
}

func (s *ProductService) InsertProduct(c context.Context, param request.InsertProduct) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService InsertProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService InsertProduct").
		Str("name", param.Name).
		Logger()

	price, ok := money.ParseMajor(param.Price)
	if !ok || price <= 0 {
		err := inErrors.Validation("price=%s must be a positive amount with at most two decimals", param.Price)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "inserting product").Logger()
	logger.Info().Msg("inserting product")
	product, err := s.queries.InsertProduct(c, repository.InsertProductParams{
		Name:        param.Name,
		Description: param.Description,
		Price:       price,
		Quantity:    param.Quantity,
		CategoryID:  param.CategoryID,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			err = inErrors.NotFound("category id=%d not found", *param.CategoryID)
		} else {
			err = fmt.Errorf("failed inserting product with error=%w", err)
		}
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Info().Int64(log.KeyProductID, product.ID).Msg("inserted product")

	s.cache.Invalidate(c)
	return response.FromRepository(product), nil
}

// Restock adds quantity to a product. It is the only path that increases stock.
func (s *ProductService) Restock(c context.Context, id int64, param request.Restock) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService Restock")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService Restock").
		Int64(log.KeyProductID, id).
		Int32(log.KeyQuantity, param.Quantity).
		Logger()

	if param.Quantity < 1 {
		err := inErrors.Validation("quantity must be a positive integer")
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "restocking product").Logger()
	logger.Info().Msg("restocking product")
	product, err := s.queries.RestockProduct(c, repository.RestockProductParams{ID: id, Quantity: param.Quantity})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = inErrors.NotFound("product id=%d not found", id)
		} else {
			err = fmt.Errorf("failed restocking product with error=%w", err)
		}
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Info().Int32("available", product.Quantity).Msg("restocked product")

	s.cache.Invalidate(c, id)
	return response.FromRepository(product), nil
}

func (s *ProductService) FindCategories(c context.Context) ([]repository.ProductCategory, error) {
	c, span := otel.Tracer.Start(c, "ProductService FindCategories")
	defer span.End()

	categories, err := s.queries.FindCategories(c)
	if err != nil {
		err = fmt.Errorf("failed finding categories with error=%w", err)
		inOtel.RecordError(err, span)
		zerolog.Ctx(c).Error().Err(err).Str(log.KeyTag, "ProductService FindCategories").Msg(err.Error())
		return nil, err
	}
	return categories, nil
}

func (s *ProductService) InsertCategory(
	c context.Context,
	param request.InsertCategory,
) (repository.ProductCategory, error) {
	c, span := otel.Tracer.Start(c, "ProductService InsertCategory")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService InsertCategory").
		Str("name", param.Name).
		Str(log.KeyProcess, "inserting category").
		Logger()

	logger.Info().Msg("inserting category")
	category, err := s.queries.InsertCategory(c, repository.InsertCategoryParams{
		Name:        param.Name,
		Description: param.Description,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			err = inErrors.Conflict("category name=%s already exists", param.Name)
		} else {
			err = fmt.Errorf("failed inserting category with error=%w", err)
		}
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.ProductCategory{}, err
	}
	logger.Info().Int64(log.KeyCategoryID, category.ID).Msg("inserted category")

	return category, nil
}
