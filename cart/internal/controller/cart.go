package controller

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/internal/service"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/internal/auth"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/validate"
)

type CartController struct {
	service *service.CartService
}

func AttachCartController(router *mux.Router, authenticated mux.MiddlewareFunc, service *service.CartService) {
	controller := CartController{service: service}

	carts := router.PathPrefix("/carts").Subrouter()
	carts.Use(authenticated)
	carts.HandleFunc("", controller.GetCart).Methods(http.MethodGet)
	carts.HandleFunc("", controller.ClearCart).Methods(http.MethodDelete)
	carts.HandleFunc("/items", controller.AddItem).Methods(http.MethodPost)
	carts.HandleFunc("/items/{itemId}", controller.UpdateItemQuantity).Methods(http.MethodPatch)
	carts.HandleFunc("/items/{itemId}", controller.RemoveItem).Methods(http.MethodDelete)
}

func (ctrl CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController GetCart")
	defer span.End()

	identity, err := auth.MustIdentity(c)
	if err != nil {
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	cart, err := ctrl.service.GetOrCreateCart(c, identity.UserID)
	if err != nil {
		inOtel.RecordError(err, span)
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found cart",
		"data":       map[string]interface{}{"cart": cart},
	})
}

func (ctrl CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController AddItem").Logger()

	identity, err := auth.MustIdentity(c)
	if err != nil {
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	param := request.AddItem{}
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
	item, err := ctrl.service.AddItem(c, identity.UserID, param.ProductID, param.Quantity)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusCreated,
		"message":    "added cart item",
		"data":       map[string]interface{}{"item": item},
	})
}

func (ctrl CartController) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController UpdateItemQuantity")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController UpdateItemQuantity").Logger()

	identity, err := auth.MustIdentity(c)
	if err != nil {
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	itemID, err := inHttp.PathInt64(r, "itemId")
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	param := request.UpdateItemQuantity{}
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
	item, err := ctrl.service.UpdateItemQuantity(c, identity.UserID, itemID, param.Quantity)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "updated cart item",
		"data":       map[string]interface{}{"item": item},
	})
}

func (ctrl CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController RemoveItem")
	defer span.End()

	identity, err := auth.MustIdentity(c)
	if err != nil {
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	itemID, err := inHttp.PathInt64(r, "itemId")
	if err != nil {
		inOtel.RecordError(err, span)
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	if err := ctrl.service.RemoveItem(c, identity.UserID, itemID); err != nil {
		inOtel.RecordError(err, span)
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "removed cart item",
	})
}

func (ctrl CartController) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController ClearCart")
	defer span.End()

	identity, err := auth.MustIdentity(c)
	if err != nil {
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	if err := ctrl.service.ClearCart(c, identity.UserID); err != nil {
		inOtel.RecordError(err, span)
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "cleared cart",
	})
}
