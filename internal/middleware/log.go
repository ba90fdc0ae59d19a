package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

var maskedFields = []string{"password", "passwordHash"}

func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(inHttp.KeyHeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c, span := otel.Tracer.Start(
			r.Context(),
			"middleware Logging",
			trace.WithAttributes(
				attribute.String(log.KeyRequestID, requestID),
				attribute.String(log.KeyRequestHost, r.Host),
				attribute.String(log.KeyRequestIp, r.RemoteAddr),
				attribute.String(log.KeyRequestMethod, r.Method),
				attribute.String(log.KeyRequestURI, r.RequestURI),
			),
		)
		defer span.End()

		requestBody := map[string]interface{}{}
		if r.Body != nil && r.Header.Get(inHttp.KeyHeaderContentType) == inHttp.ValueHeaderApplicationJson {
			var buffer bytes.Buffer
			tee := io.TeeReader(r.Body, &buffer)
			_ = json.NewDecoder(tee).Decode(&requestBody)
			_, _ = io.Copy(io.Discard, tee)
			for _, field := range maskedFields {
				if requestBody[field] != nil {
					requestBody[field] = "****"
				}
			}
			r.Body = io.NopCloser(&buffer)
		}

		logger := zerolog.Ctx(c).
			With().
			Str(log.KeyRequestID, requestID).
			Dict(log.KeyRequest, zerolog.Dict().
				Str(log.KeyRequestHost, r.Host).
				Str(log.KeyRequestIp, r.RemoteAddr).
				Str(log.KeyRequestMethod, r.Method).
				Str(log.KeyRequestURI, r.RequestURI).
				Any(log.KeyRequestBody, requestBody)).
			Str(log.KeyTag, "middleware Logging").
			Logger()

		logger.Trace().Msg("attaching request value to context")
		c = log.AttachRequestIDToContext(c, requestID)
		c = logger.WithContext(c)
		r = r.WithContext(c)
		w.Header().Set(inHttp.KeyHeaderRequestID, requestID)
		logger.Trace().Msg("attached request value to context")

		next.ServeHTTP(w, r)
	})
}
