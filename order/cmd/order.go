package cmd

import (
	"github.com/gorilla/mux"

	"github.com/Alturino/storefront/internal/cache"
	"github.com/Alturino/storefront/internal/repository"
	"github.com/Alturino/storefront/order/internal/controller"
	"github.com/Alturino/storefront/order/internal/service"
	"github.com/Alturino/storefront/payment"
)

func AttachOrder(
	router *mux.Router,
	authenticated mux.MiddlewareFunc,
	store *repository.Store,
	cache *cache.ProductCache,
	gateway payment.Gateway,
) {
	orderService := service.NewOrderService(store, cache, gateway)
	controller.AttachOrderController(router, authenticated, orderService)
	controller.AttachWebhookController(router, gateway, service.NewReconciler(orderService))
}
