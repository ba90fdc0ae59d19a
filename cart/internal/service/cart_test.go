package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/repository"
	"github.com/Alturino/storefront/internal/testutil"
)

func TestCartService(t *testing.T) {
	c := testutil.Context()
	pool := testutil.StartPostgres(t, c, testutil.StorefrontSeed(t))
	svc := NewCartService(repository.New(pool))

	t.Run("given new user should create empty cart once", func(t *testing.T) {
		first, err := svc.GetOrCreateCart(c, testutil.UserAna)
		require.NoError(t, err)
		assert.Empty(t, first.Items)

		second, err := svc.GetOrCreateCart(c, testutil.UserAna)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("given same product twice should merge into one line", func(t *testing.T) {
		first, err := svc.AddItem(c, testutil.UserAna, testutil.Mug, 1)
		require.NoError(t, err)
		second, err := svc.AddItem(c, testutil.UserAna, testutil.Mug, 1)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, int32(2), second.Quantity)

		cart, err := svc.GetOrCreateCart(c, testutil.UserAna)
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, 2*testutil.MugPrice, cart.Total)
	})

	t.Run("given out of stock product should still add to cart", func(t *testing.T) {
		_, err := svc.AddItem(c, testutil.UserBo, testutil.Spoon, 5)
		require.NoError(t, err)
	})

	t.Run("given other user's item should return not found", func(t *testing.T) {
		item, err := svc.AddItem(c, testutil.UserAna, testutil.Teapot, 1)
		require.NoError(t, err)

		_, err = svc.UpdateItemQuantity(c, testutil.UserBo, item.ID, 3)
		assert.ErrorIs(t, err, inErrors.ErrNotFound)

		updated, err := svc.UpdateItemQuantity(c, testutil.UserAna, item.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, int32(3), updated.Quantity)
	})

	t.Run("given removed item should remove idempotently", func(t *testing.T) {
		item, err := svc.AddItem(c, testutil.UserBo, testutil.Mug, 1)
		require.NoError(t, err)

		require.NoError(t, svc.RemoveItem(c, testutil.UserBo, item.ID))
		require.NoError(t, svc.RemoveItem(c, testutil.UserBo, item.ID))
	})

	t.Run("given clear should empty cart idempotently", func(t *testing.T) {
		require.NoError(t, svc.ClearCart(c, testutil.UserBo))
		require.NoError(t, svc.ClearCart(c, testutil.UserBo))

		cart, err := svc.GetOrCreateCart(c, testutil.UserBo)
		require.NoError(t, err)
		assert.Empty(t, cart.Items)
		assert.Zero(t, cart.Total)
	})

	t.Run("given merged quantity beyond integer range should return validation error", func(t *testing.T) {
		item, err := svc.AddItem(c, testutil.UserCy, testutil.Mug, math.MaxInt32)
		require.NoError(t, err)

		_, err = svc.AddItem(c, testutil.UserCy, testutil.Mug, 1)
		assert.ErrorIs(t, err, inErrors.ErrValidation)

		cart, err := svc.GetOrCreateCart(c, testutil.UserCy)
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, item.Quantity, cart.Items[0].Quantity)
	})

	tests := []struct {
		name        string
		run         func() error
		expectedErr error
	}{
		{
			name: "given zero quantity should return validation error",
			run: func() error {
				_, err := svc.AddItem(c, testutil.UserAna, testutil.Mug, 0)
				return err
			},
			expectedErr: inErrors.ErrValidation,
		},
		{
			name: "given unknown product should return not found",
			run: func() error {
				_, err := svc.AddItem(c, testutil.UserAna, 9999, 1)
				return err
			},
			expectedErr: inErrors.ErrNotFound,
		},
		{
			name: "given zero update quantity should return validation error",
			run: func() error {
				_, err := svc.UpdateItemQuantity(c, testutil.UserAna, 1, 0)
				return err
			},
			expectedErr: inErrors.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.expectedErr)
		})
	}
}
