package cmd

import (
	"github.com/gorilla/mux"

	"github.com/Alturino/storefront/internal/cache"
	"github.com/Alturino/storefront/internal/repository"
	"github.com/Alturino/storefront/product/internal/controller"
	"github.com/Alturino/storefront/product/internal/service"
)

func AttachProduct(router *mux.Router, authenticated mux.MiddlewareFunc, store *repository.Store, cache *cache.ProductCache) {
	controller.AttachProductController(router, authenticated, service.NewProductService(store.Queries, cache))
}
