package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNewWithMeter(t *testing.T) {
	m, err := NewWithMeter(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.Cycle(ctx)
		m.CycleError(ctx, "inference")
		m.Inference(ctx, 12*time.Millisecond)
		m.Click(ctx, true)
		m.Click(ctx, false)
		m.DispatchFailure(ctx)
	})
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.Cycle(ctx)
		m.CycleError(ctx, "camera")
		m.Inference(ctx, time.Millisecond)
		m.Click(ctx, true)
		m.DispatchFailure(ctx)
	})
}

func TestNop(t *testing.T) {
	assert.NotNil(t, Nop())
}
