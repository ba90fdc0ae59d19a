package cmd

import (
	"github.com/gorilla/mux"

	"github.com/Alturino/storefront/cart/internal/controller"
	"github.com/Alturino/storefront/cart/internal/service"
	"github.com/Alturino/storefront/internal/repository"
)

func AttachCart(router *mux.Router, authenticated mux.MiddlewareFunc, store *repository.Store) {
	controller.AttachCartController(router, authenticated, service.NewCartService(store.Queries))
}
