package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

func WriteJsonResponse(
	c context.Context,
	w http.ResponseWriter,
	header map[string]string,
	body map[string]interface{},
) {
	c, span := otel.Tracer.Start(c, "WriteJsonResponse")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "WriteJsonResponse").Logger()

	w.Header().Set(KeyHeaderContentType, ValueHeaderApplicationJson)
	for k, v := range header {
		w.Header().Add(k, v)
	}

	if v, ok := body["statusCode"].(int); ok {
		w.WriteHeader(v)
	}

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
}

// WriteErrorResponse maps the error kind onto a status code. Internal failures are reported with
// an opaque message.
func WriteErrorResponse(c context.Context, w http.ResponseWriter, err error) {
	statusCode := inErrors.KindOf(err).HTTPStatus()
	WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "failed",
		"statusCode": statusCode,
		"message":    inErrors.PublicMessage(err),
	})
}
