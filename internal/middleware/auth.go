package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/auth"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
)

type TokenVerifier interface {
	Verify(c context.Context, token string) (auth.Identity, error)
}

// Auth rejects requests without a valid bearer token and attaches the caller identity.
func Auth(verifier TokenVerifier) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := zerolog.Ctx(r.Context()).With().Str(log.KeyTag, "middleware Auth").Logger()
			c := logger.WithContext(r.Context())

			authorization := r.Header.Get(inHttp.KeyHeaderAuthorization)
			scheme, token, found := strings.Cut(authorization, " ")
			if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
				logger.Error().Err(inErrors.ErrEmptyAuth).Msg(inErrors.ErrEmptyAuth.Error())
				inHttp.WriteErrorResponse(c, w, inErrors.ErrEmptyAuth)
				return
			}

			identity, err := verifier.Verify(c, token)
			if err != nil {
				logger.Error().Err(err).Msg(err.Error())
				inHttp.WriteErrorResponse(c, w, inErrors.ErrTokenInvalid)
				return
			}

			logger = logger.With().
				Int64(log.KeyUserID, identity.UserID).
				Str(log.KeyRole, identity.Role).
				Logger()
			c = auth.AttachIdentity(logger.WithContext(c), identity)
			next.ServeHTTP(w, r.WithContext(c))
		})
	}
}

// RequireAdmin must run after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := r.Context()
		identity, ok := auth.IdentityFromContext(c)
		if !ok {
			inHttp.WriteErrorResponse(c, w, inErrors.ErrUnauthenticated)
			return
		}
		if !identity.IsAdmin() {
			err := inErrors.Forbidden("admin role required")
			zerolog.Ctx(c).Error().Str(log.KeyTag, "middleware RequireAdmin").Err(err).Msg(err.Error())
			inHttp.WriteErrorResponse(c, w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
