package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal/auth"
	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/repository"
	"github.com/Alturino/storefront/internal/testutil"
	"github.com/Alturino/storefront/user/pkg/request"
)

func TestUserService(t *testing.T) {
	c := testutil.Context()
	pool := testutil.StartPostgres(t, c)
	issuer := auth.NewTokenIssuer("secret", time.Hour)
	svc := NewUserService(repository.New(pool), issuer)

	registered, err := svc.Register(c, request.Register{Name: "Dee", Email: " Dee@Example.com ", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "dee@example.com", registered.Email)
	assert.Equal(t, constants.RoleUser, registered.Role)

	tests := []struct {
		name        string
		run         func() error
		expectedErr error
	}{
		{
			name: "given duplicate email should return conflict",
			run: func() error {
				_, err := svc.Register(c, request.Register{Name: "Dee", Email: "dee@example.com", Password: "another-pass"})
				return err
			},
			expectedErr: inErrors.ErrConflict,
		},
		{
			name: "given wrong password should return unauthenticated",
			run: func() error {
				_, err := svc.Login(c, request.Login{Email: "dee@example.com", Password: "wrong-pass"})
				return err
			},
			expectedErr: inErrors.ErrUnauthenticated,
		},
		{
			name: "given unknown email should return unauthenticated",
			run: func() error {
				_, err := svc.Login(c, request.Login{Email: "nobody@example.com", Password: "correct-horse"})
				return err
			},
			expectedErr: inErrors.ErrUnauthenticated,
		},
		{
			name: "given unknown id should return not found",
			run: func() error {
				_, err := svc.FindUserById(c, 9999)
				return err
			},
			expectedErr: inErrors.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.expectedErr)
		})
	}

	t.Run("given valid credentials should issue verifiable token", func(t *testing.T) {
		login, err := svc.Login(c, request.Login{Email: "dee@example.com", Password: "correct-horse"})
		require.NoError(t, err)

		identity, err := issuer.Verify(c, login.Token)
		require.NoError(t, err)
		assert.Equal(t, registered.ID, identity.UserID)
		assert.Equal(t, constants.RoleUser, identity.Role)
	})
}
