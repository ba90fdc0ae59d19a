package controller

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/auth"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/validate"
	"github.com/Alturino/storefront/user/internal/otel"
	"github.com/Alturino/storefront/user/internal/service"
	"github.com/Alturino/storefront/user/pkg/request"
)

type UserController struct {
	service *service.UserService
}

func AttachUserController(router *mux.Router, authenticated mux.MiddlewareFunc, service *service.UserService) {
	controller := UserController{service: service}

	me := router.PathPrefix("/users/me").Subrouter()
	me.Use(authenticated)
	me.HandleFunc("", controller.Me).Methods(http.MethodGet)

	users := router.PathPrefix("/users").Subrouter()
	users.HandleFunc("/register", controller.Register).Methods(http.MethodPost)
	users.HandleFunc("/login", controller.Login).Methods(http.MethodPost)
}

func (ctrl UserController) Register(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController Register")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "UserController Register").Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	param := request.Register{}
	if err := json.NewDecoder(r.Body).Decode(&param); err != nil {
		err = inErrors.Wrap(inErrors.KindValidation, err, "invalid request body")
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
	logger = logger.With().Object(log.KeyRequestBody, param).Logger()

	c = logger.WithContext(c)
	user, err := ctrl.service.Register(c, param)
	if err != nil {
		err = fmt.Errorf("failed registering user with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusCreated,
		"message":    "registered user",
		"data":       map[string]interface{}{"user": user},
	})
}

func (ctrl UserController) Login(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController Login")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "UserController Login").Logger()

	param := request.Login{}
	if err := json.NewDecoder(r.Body).Decode(&param); err != nil {
		err = inErrors.Wrap(inErrors.KindValidation, err, "invalid request body")
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
	logger = logger.With().Object(log.KeyRequestBody, param).Logger()

	c = logger.WithContext(c)
	login, err := ctrl.service.Login(c, param)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "logged in",
		"data":       login,
	})
}

func (ctrl UserController) Me(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController Me")
	defer span.End()

	identity, err := auth.MustIdentity(c)
	if err != nil {
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	user, err := ctrl.service.FindUserById(c, identity.UserID)
	if err != nil {
		inOtel.RecordError(err, span)
		inHttp.WriteErrorResponse(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found user",
		"data":       map[string]interface{}{"user": user},
	})
}
