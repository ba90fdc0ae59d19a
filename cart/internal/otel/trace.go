package otel

import (
	"go.opentelemetry.io/otel"

	"github.com/Alturino/storefront/internal/constants"
)

var Tracer = otel.Tracer(constants.AppCartService)
