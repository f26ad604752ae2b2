// Package telemetry holds the pipeline's OpenTelemetry instruments. No
// exporter is installed here; without a configured MeterProvider the
// global no-op meter is used.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/ayusman/nritya/internal/telemetry"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics records pipeline activity.
type Metrics struct {
	cycles           metric.Int64Counter
	cycleErrors      metric.Int64Counter
	inference        metric.Float64Histogram
	clicksEmitted    metric.Int64Counter
	clicksSuppressed metric.Int64Counter
	dispatchFailures metric.Int64Counter
}

// New creates the instruments from the global meter provider.
func New() (*Metrics, error) {
	return NewWithMeter(meter())
}

// NewWithMeter creates the instruments from m.
func NewWithMeter(m metric.Meter) (*Metrics, error) {
	var (
		mt  Metrics
		err error
	)

	mt.cycles, err = m.Int64Counter(
		"nritya.cycles",
		metric.WithDescription("Pipeline cycles completed"),
	)
	if err != nil {
		return nil, err
	}

	mt.cycleErrors, err = m.Int64Counter(
		"nritya.cycle.errors",
		metric.WithDescription("Pipeline cycles that failed and backed off"),
	)
	if err != nil {
		return nil, err
	}

	mt.inference, err = m.Float64Histogram(
		"nritya.inference.duration",
		metric.WithDescription("Pose inference latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	mt.clicksEmitted, err = m.Int64Counter(
		"nritya.clicks.emitted",
		metric.WithDescription("Click intents emitted"),
	)
	if err != nil {
		return nil, err
	}

	mt.clicksSuppressed, err = m.Int64Counter(
		"nritya.clicks.suppressed",
		metric.WithDescription("Click gestures held back by the cooldown"),
	)
	if err != nil {
		return nil, err
	}

	mt.dispatchFailures, err = m.Int64Counter(
		"nritya.dispatch.failures",
		metric.WithDescription("Click dispatches with at least one failed strategy"),
	)
	if err != nil {
		return nil, err
	}

	return &mt, nil
}

// Nop returns Metrics backed by the global meter, ignoring errors. The
// zero-configured global meter never fails.
func Nop() *Metrics {
	m, err := New()
	if err != nil {
		return &Metrics{}
	}
	return m
}

// Cycle records a completed cycle.
func (m *Metrics) Cycle(ctx context.Context) {
	if m == nil || m.cycles == nil {
		return
	}
	m.cycles.Add(ctx, 1)
}

// CycleError records a failed cycle at the given stage.
func (m *Metrics) CycleError(ctx context.Context, stage string) {
	if m == nil || m.cycleErrors == nil {
		return
	}
	m.cycleErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// Inference records one inference duration.
func (m *Metrics) Inference(ctx context.Context, d time.Duration) {
	if m == nil || m.inference == nil {
		return
	}
	m.inference.Record(ctx, float64(d.Microseconds())/1000)
}

// Click records a click gesture outcome.
func (m *Metrics) Click(ctx context.Context, emitted bool) {
	if m == nil {
		return
	}
	if emitted {
		if m.clicksEmitted != nil {
			m.clicksEmitted.Add(ctx, 1)
		}
		return
	}
	if m.clicksSuppressed != nil {
		m.clicksSuppressed.Add(ctx, 1)
	}
}

// DispatchFailure records a click dispatch that returned an error.
func (m *Metrics) DispatchFailure(ctx context.Context) {
	if m == nil || m.dispatchFailures == nil {
		return
	}
	m.dispatchFailures.Add(ctx, 1)
}
