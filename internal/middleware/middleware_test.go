package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal/auth"
	"github.com/Alturino/storefront/internal/constants"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
)

func newRouter(issuer *auth.TokenIssuer) *mux.Router {
	router := mux.NewRouter()
	router.Use(Logging, RecoverPanic)

	protected := router.PathPrefix("/me").Subrouter()
	protected.Use(Auth(issuer))
	protected.HandleFunc("", func(w http.ResponseWriter, r *http.Request) {
		identity, err := auth.MustIdentity(r.Context())
		if err != nil {
			inHttp.WriteErrorResponse(r.Context(), w, err)
			return
		}
		inHttp.WriteJsonResponse(r.Context(), w, map[string]string{}, map[string]interface{}{
			"statusCode": http.StatusOK,
			"userId":     identity.UserID,
			"requestId":  log.RequestIDFromContext(r.Context()),
		})
	})

	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(Auth(issuer), RequireAdmin)
	admin.HandleFunc("", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.HandleFunc("/panic", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	return router
}

func TestAuthAndAdmin(t *testing.T) {
	issuer := auth.NewTokenIssuer("secret", time.Hour)
	userToken, err := issuer.Issue(context.Background(), auth.Identity{UserID: 1, Role: constants.RoleUser})
	require.NoError(t, err)
	adminToken, err := issuer.Issue(context.Background(), auth.Identity{UserID: 2, Role: constants.RoleAdmin})
	require.NoError(t, err)

	tests := []struct {
		name           string
		path           string
		authorization  string
		expectedStatus int
	}{
		{name: "given no token should return unauthorized", path: "/me", expectedStatus: http.StatusUnauthorized},
		{name: "given invalid token should return unauthorized", path: "/me", authorization: "Bearer nope", expectedStatus: http.StatusUnauthorized},
		{name: "given user token should pass", path: "/me", authorization: "Bearer " + userToken, expectedStatus: http.StatusOK},
		{name: "given user token on admin route should return forbidden", path: "/admin", authorization: "Bearer " + userToken, expectedStatus: http.StatusForbidden},
		{name: "given admin token on admin route should pass", path: "/admin", authorization: "bearer " + adminToken, expectedStatus: http.StatusNoContent},
		{name: "given panicking handler should return internal server error", path: "/panic", expectedStatus: http.StatusInternalServerError},
	}

	router := newRouter(issuer)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.authorization != "" {
				req.Header.Set(inHttp.KeyHeaderAuthorization, tt.authorization)
			}
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)
			assert.Equal(t, tt.expectedStatus, recorder.Code)
			assert.NotEmpty(t, recorder.Header().Get(inHttp.KeyHeaderRequestID))
		})
	}
}

func TestLoggingKeepsRequestID(t *testing.T) {
	router := newRouter(auth.NewTokenIssuer("secret", time.Hour))
	token, err := auth.NewTokenIssuer("secret", time.Hour).
		Issue(context.Background(), auth.Identity{UserID: 9, Role: constants.RoleUser})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(inHttp.KeyHeaderAuthorization, "Bearer "+token)
	req.Header.Set(inHttp.KeyHeaderRequestID, "req-123")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, "req-123", recorder.Header().Get(inHttp.KeyHeaderRequestID))
	assert.Contains(t, recorder.Body.String(), `"requestId":"req-123"`)
}
