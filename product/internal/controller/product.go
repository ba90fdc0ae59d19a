package controller

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/middleware"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/validate"
	"github.com/Alturino/storefront/product/internal/otel"
	"github.com/Alturino/storefront/product/internal/service"
	"github.com/Alturino/storefront/product/pkg/request"
)

type ProductController struct {
	service *service.ProductService
}

func AttachProductController(router *mux.Router, authenticated mux.MiddlewareFunc, service *service.ProductService) {
	controller := ProductController{service: service}

	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(authenticated, middleware.RequireAdmin)
	admin.HandleFunc("/products", controller.InsertProduct).Methods(http.MethodPost)
	admin.HandleFunc("/products/{productId}/restock", controller.Restock).Methods(http.MethodPatch)
	admin.HandleFunc("/categories", controller.InsertCategory).Methods(http.MethodPost)

	router.HandleFunc("/products", controller.FindProducts).Methods(http.MethodGet)
	router.HandleFunc("/products/{productId}", controller.FindProductById).Methods(http.MethodGet)
	router.HandleFunc("/categories", controller.FindCategories).Methods(http.MethodGet)
}

func (ctrl ProductController) FindProducts(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController FindProducts")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "ProductController FindProducts").Logger()

	categoryID, err := inHttp.QueryInt64(r, "categoryId")
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	c = logger.WithContext(c)
	products, err := ctrl.service.FindProducts(c, categoryID)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found products",
		"data":       map[string]interface{}{"products": products},
	})
}

func (ctrl ProductController) FindProductById(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController FindProductById")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "ProductController FindProductById").Logger()

	id, err := inHttp.PathInt64(r, "productId")
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	c = logger.WithContext(c)
	product, err := ctrl.service.FindProductById(c, id)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found product",
		"data":       map[string]interface{}{"product": product},
	})
}

func (ctrl ProductController) InsertProduct(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController InsertProduct")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "ProductController InsertProduct").Logger()

	param := request.InsertProduct{}
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
	product, err := ctrl.service.InsertProduct(c, param)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusCreated,
		"message":    "inserted product",
		"data":       map[string]interface{}{"product": product},
	})
}

func (ctrl ProductController) Restock(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController Restock")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "ProductController Restock").Logger()

	id, err := inHttp.PathInt64(r, "productId")
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}
	param := request.Restock{}
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
	product, err := ctrl.service.Restock(c, id, param)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "restocked product",
		"data":       map[string]interface{}{"product": product},
	})
}

func (ctrl ProductController) FindCategories(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController FindCategories")
	defer span.End()

	categories, err := ctrl.service.FindCategories(c)
	if err != nil {
		inOtel.RecordError(err, span)
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found categories",
		"data":       map[string]interface{}{"categories": categories},
	})
}

func (ctrl ProductController) InsertCategory(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController InsertCategory")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "ProductController InsertCategory").Logger()

	param := request.InsertCategory{}
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
	category, err := ctrl.service.InsertCategory(c, param)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusCreated,
		"message":    "inserted category",
		"data":       map[string]interface{}{"category": category},
	})
}
