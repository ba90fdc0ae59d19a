package controller

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/auth"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/middleware"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/validate"
	"github.com/Alturino/storefront/order/internal/otel"
	"github.com/Alturino/storefront/order/internal/service"
	"github.com/Alturino/storefront/order/pkg/request"
)

type OrderController struct {
	service *service.OrderService
}

func AttachOrderController(router *mux.Router, authenticated mux.MiddlewareFunc, service *service.OrderService) {
	controller := OrderController{service: service}

	orders := router.PathPrefix("/orders").Subrouter()
	orders.Use(authenticated)
	orders.HandleFunc("", controller.GetOrders).Methods(http.MethodGet)
	orders.HandleFunc("/checkout", controller.Checkout).Methods(http.MethodPost)
	orders.HandleFunc("/success", controller.CheckoutSuccess).Methods(http.MethodGet)
	orders.HandleFunc("/{orderId:[0-9]+}", controller.GetOrderById).Methods(http.MethodGet)

	admin := router.PathPrefix("/admin/orders").Subrouter()
	admin.Use(authenticated, middleware.RequireAdmin)
	admin.HandleFunc("", controller.GetAllOrders).Methods(http.MethodGet)
	admin.HandleFunc("", controller.CreateOrder).Methods(http.MethodPost)
	admin.HandleFunc("/{orderId:[0-9]+}", controller.DeleteOrder).Methods(http.MethodDelete)
}

func (ctrl OrderController) Checkout(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController Checkout")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "OrderController Checkout").Logger()

	identity, err := auth.MustIdentity(c)
	if err != nil {
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	c = logger.WithContext(c)
	checkout, err := ctrl.service.Checkout(c, service.CustomerFromIdentity(identity))
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusCreated,
		"message":    "created order",
		"data":       map[string]interface{}{"checkout": checkout},
	})
}

func (ctrl OrderController) CheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController CheckoutSuccess")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "OrderController CheckoutSuccess").Logger()

	identity, err := auth.MustIdentity(c)
	if err != nil {
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	c = logger.WithContext(c)
	order, err := ctrl.service.ConfirmCheckout(c, identity, r.URL.Query().Get("session_id"))
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found order",
		"data":       map[string]interface{}{"order": order},
	})
}

func (ctrl OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController GetOrders")
	defer span.End()

	identity, err := auth.MustIdentity(c)
	if err != nil {
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	orders, err := ctrl.service.GetOrdersByUser(c, identity.UserID)
	if err != nil {
		inOtel.RecordError(err, span)
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found orders",
		"data":       map[string]interface{}{"orders": orders},
	})
}

func (ctrl OrderController) GetOrderById(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController GetOrderById")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "OrderController GetOrderById").Logger()

	identity, err := auth.MustIdentity(c)
	if err != nil {
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	id, err := inHttp.PathInt64(r, "orderId")
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	c = logger.WithContext(c)
	order, err := ctrl.service.GetOrderForIdentity(c, identity, id)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found order",
		"data":       map[string]interface{}{"order": order},
	})
}

func (ctrl OrderController) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController GetAllOrders")
	defer span.End()

	orders, err := ctrl.service.GetAllOrders(c)
	if err != nil {
		inOtel.RecordError(err, span)
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found orders",
		"data":       map[string]interface{}{"orders": orders},
	})
}

func (ctrl OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController CreateOrder")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "OrderController CreateOrder").Logger()

	param := request.CreateOrder{}
	if err := inHttp.DecodeJson(r, &param); err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	if err := validate.Struct(c, param); err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	c = logger.WithContext(c)
	order, err := ctrl.service.CreateOrder(c, param)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusCreated,
		"message":    "created order",
		"data":       map[string]interface{}{"order": order},
	})
}

func (ctrl OrderController) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController DeleteOrder")
	defer span.End()

	id, err := inHttp.PathInt64(r, "orderId")
	if err != nil {
		inOtel.RecordError(err, span)
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	if err := ctrl.service.DeleteOrder(c, id); err != nil {
		inOtel.RecordError(err, span)
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "deleted order",
	})
}
