package otel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/propagation"
)

func TestShutdownOtel(t *testing.T) {
	errTrace := errors.New("trace exporter unavailable")
	errMetric := errors.New("metric exporter unavailable")

	t.Run("given all shutdown succeed should return nil", func(t *testing.T) {
		err := ShutdownOtel(context.Background(), []ShutdownFunc{
			func(context.Context) error { return nil },
			func(context.Context) error { return nil },
		})
		assert.NoError(t, err)
	})

	t.Run("given failing shutdowns should join every error", func(t *testing.T) {
		err := ShutdownOtel(context.Background(), []ShutdownFunc{
			func(context.Context) error { return errTrace },
			func(context.Context) error { return nil },
			func(context.Context) error { return errMetric },
		})
		assert.ErrorIs(t, err, errTrace)
		assert.ErrorIs(t, err, errMetric)
	})
}

func TestNewPropagatorFields(t *testing.T) {
	fields := NewPropagator().Fields()
	assert.Contains(t, fields, "traceparent")
	assert.Contains(t, fields, "uber-trace-id")
	assert.Contains(t, fields, "ot-tracer-traceid")

	carrier := propagation.MapCarrier{}
	NewPropagator().Inject(context.Background(), carrier)
	assert.Empty(t, carrier.Get("traceparent"))
}
