package cmd

import (
	"github.com/gorilla/mux"

	"github.com/Alturino/storefront/internal/auth"
	"github.com/Alturino/storefront/internal/repository"
	"github.com/Alturino/storefront/user/internal/controller"
	"github.com/Alturino/storefront/user/internal/service"
)

func AttachUser(router *mux.Router, authenticated mux.MiddlewareFunc, store *repository.Store, issuer *auth.TokenIssuer) {
	controller.AttachUserController(router, authenticated, service.NewUserService(store.Queries, issuer))
}
