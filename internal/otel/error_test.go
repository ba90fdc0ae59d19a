package otel

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

func TestRecordError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   string
		wantStatus codes.Code
	}{
		{
			name:       "internal error marks span as errored",
			err:        errors.New("connection reset"),
			wantKind:   "internal",
			wantStatus: codes.Error,
		},
		{
			name:       "wrapped stock error keeps span status unset",
			err:        fmt.Errorf("failed reserving stock with error=%w", inErrors.InsufficientStock(1, "Mug", 3, 1)),
			wantKind:   "insufficient_stock",
			wantStatus: codes.Unset,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := tracetest.NewSpanRecorder()
			provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
			_, span := provider.Tracer("test").Start(context.Background(), "op")

			RecordError(tt.err, span)
			span.End()

			ended := recorder.Ended()
			require.Len(t, ended, 1)
			assert.Equal(t, tt.wantStatus, ended[0].Status().Code)
			assert.Len(t, ended[0].Events(), 1)
			found := false
			for _, attr := range ended[0].Attributes() {
				if string(attr.Key) == attributeErrorKind {
					found = true
					assert.Equal(t, tt.wantKind, attr.Value.AsString())
				}
			}
			assert.True(t, found)
		})
	}
}
