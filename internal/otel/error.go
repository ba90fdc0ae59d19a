package otel

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

const attributeErrorKind = "storefront.error.kind"

// RecordError attaches err to the span. Only internal failures mark the span as errored;
// client errors such as validation or insufficient stock are recorded with their kind.
func RecordError(err error, span trace.Span) {
	if err == nil {
		return
	}
	kind := inErrors.KindOf(err)
	span.SetAttributes(attribute.String(attributeErrorKind, kind.String()))
	span.RecordError(err)
	if kind == inErrors.KindInternal {
		span.SetStatus(codes.Error, err.Error())
	}
}
