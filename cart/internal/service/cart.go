package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/pkg/response"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/repository"
)

const (
	foreignKeyViolation    = "23503"
	numericValueOutOfRange = "22003"
)

// CartService owns the single mutable cart of each user. Stock is never checked here; it is
// enforced at checkout.
type CartService struct {
	queries *repository.Queries
}

func NewCartService(queries *repository.Queries) *CartService {
	return &CartService{queries: queries}
}

func (svc *CartService) GetOrCreateCart(c context.Context, userID int64) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService GetOrCreateCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService GetOrCreateCart").
		Int64(log.KeyUserID, userID).
		Logger()

	cart, err := svc.cart(logger.WithContext(c), userID)
	if err != nil {
		inOtel.RecordError(err, span)
		return response.Cart{}, err
	}

	logger = logger.With().
		Int64(log.KeyCartID, cart.ID).
		Str(log.KeyProcess, "finding cart lines").
		Logger()
	logger.Info().Msg("finding cart lines")
	lines, err := svc.queries.FindCartLines(c, cart.ID)
	if err != nil {
		err = fmt.Errorf("failed finding cart lines with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Int(log.KeyCartItems, len(lines)).Msg("found cart lines")

	return response.NewCart(cart, lines), nil
}

// AddItem merges the quantity into an existing line for the same product.
func (svc *CartService) AddItem(
	c context.Context,
	userID int64,
	productID int64,
	quantity int32,
) (repository.CartItem, error) {
	c, span := otel.Tracer.Start(c, "CartService AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService AddItem").
		Int64(log.KeyUserID, userID).
		Int64(log.KeyProductID, productID).
		Int32(log.KeyQuantity, quantity).
		Logger()

	if quantity < 1 {
		err := inErrors.Validation("quantity must be a positive integer")
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.CartItem{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "finding product by id").Logger()
	logger.Info().Msg("finding product by id")
	if _, err := svc.queries.FindProductById(c, productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = inErrors.NotFound("product id=%d not found", productID)
		} else {
			err = fmt.Errorf("failed finding product with error=%w", err)
		}
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.CartItem{}, err
	}
	logger.Info().Msg("found product by id")

	cart, err := svc.cart(logger.WithContext(c), userID)
	if err != nil {
		inOtel.RecordError(err, span)
		return repository.CartItem{}, err
	}

	logger = logger.With().
		Int64(log.KeyCartID, cart.ID).
		Str(log.KeyProcess, "upserting cart item").
		Logger()
	logger.Info().Msg("upserting cart item")
	item, err := svc.queries.UpsertCartItem(c, repository.UpsertCartItemParams{
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  quantity,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation:
			err = inErrors.NotFound("product id=%d not found", productID)
		case errors.As(err, &pgErr) && pgErr.Code == numericValueOutOfRange:
			err = inErrors.Validation("quantity of product id=%d in cart is too large", productID)
		default:
			err = fmt.Errorf("failed upserting cart item with error=%w", err)
		}
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.CartItem{}, err
	}
	logger.Info().
		Int64(log.KeyCartItemID, item.ID).
		Int32(log.KeyQuantity, item.Quantity).
		Msg("upserted cart item")

	return item, nil
}

func (svc *CartService) UpdateItemQuantity(
	c context.Context,
	userID int64,
	itemID int64,
	quantity int32,
) (repository.CartItem, error) {
	c, span := otel.Tracer.Start(c, "CartService UpdateItemQuantity")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService UpdateItemQuantity").
		Int64(log.KeyUserID, userID).
		Int64(log.KeyCartItemID, itemID).
		Int32(log.KeyQuantity, quantity).
		Logger()

	if quantity < 1 {
		err := inErrors.Validation("quantity must be a positive integer")
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.CartItem{}, err
	}

	cart, err := svc.cart(logger.WithContext(c), userID)
	if err != nil {
		inOtel.RecordError(err, span)
		return repository.CartItem{}, err
	}

	logger = logger.With().
		Int64(log.KeyCartID, cart.ID).
		Str(log.KeyProcess, "updating cart item quantity").
		Logger()
	logger.Info().Msg("updating cart item quantity")
	item, err := svc.queries.UpdateCartItemQuantity(c, repository.UpdateCartItemQuantityParams{
		ID:       itemID,
		CartID:   cart.ID,
		Quantity: quantity,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = inErrors.NotFound("cart item id=%d not found", itemID)
		} else {
			err = fmt.Errorf("failed updating cart item quantity with error=%w", err)
		}
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.CartItem{}, err
	}
	logger.Info().Msg("updated cart item quantity")

	return item, nil
}

// RemoveItem succeeds when the line is already gone.
func (svc *CartService) RemoveItem(c context.Context, userID int64, itemID int64) error {
	c, span := otel.Tracer.Start(c, "CartService RemoveItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService RemoveItem").
		Int64(log.KeyUserID, userID).
		Int64(log.KeyCartItemID, itemID).
		Logger()

	cart, err := svc.cart(logger.WithContext(c), userID)
	if err != nil {
		inOtel.RecordError(err, span)
		return err
	}

	logger = logger.With().
		Int64(log.KeyCartID, cart.ID).
		Str(log.KeyProcess, "deleting cart item").
		Logger()
	logger.Info().Msg("deleting cart item")
	deleted, err := svc.queries.DeleteCartItem(c, repository.DeleteCartItemParams{ID: itemID, CartID: cart.ID})
	if err != nil {
		err = fmt.Errorf("failed deleting cart item with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Int64("deleted", deleted).Msg("deleted cart item")

	return nil
}

func (svc *CartService) ClearCart(c context.Context, userID int64) error {
	c, span := otel.Tracer.Start(c, "CartService ClearCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService ClearCart").
		Int64(log.KeyUserID, userID).
		Logger()

	cart, err := svc.cart(logger.WithContext(c), userID)
	if err != nil {
		inOtel.RecordError(err, span)
		return err
	}

	logger = logger.With().
		Int64(log.KeyCartID, cart.ID).
		Str(log.KeyProcess, "clearing cart items").
		Logger()
	logger.Info().Msg("clearing cart items")
	deleted, err := svc.queries.ClearCartItems(c, cart.ID)
	if err != nil {
		err = fmt.Errorf("failed clearing cart items with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Int64("deleted", deleted).Msg("cleared cart items")

	return nil
}

func (svc *CartService) cart(c context.Context, userID int64) (repository.Cart, error) {
	logger := zerolog.Ctx(c).With().Str(log.KeyProcess, "upserting cart").Logger()
	logger.Debug().Msg("upserting cart")
	cart, err := svc.queries.UpsertCart(c, userID)
	if err != nil {
		err = fmt.Errorf("failed upserting cart for userId=%d with error=%w", userID, err)
		logger.Error().Err(err).Msg(err.Error())
		return repository.Cart{}, err
	}
	logger.Debug().Int64(log.KeyCartID, cart.ID).Msg("upserted cart")
	return cart, nil
}
