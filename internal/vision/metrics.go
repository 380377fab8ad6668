package vision

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/Garsondee/tactical-vision/internal/vision"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// instruments are the engine's OTel metrics. The global meter is a no-op
// until the host installs a provider.
type instruments struct {
	passes   metric.Int64Counter
	duration metric.Float64Histogram
	sources  metric.Int64Histogram
	decays   metric.Int64Counter
}

func newInstruments(m metric.Meter) (*instruments, error) {
	inst := &instruments{}
	var err error

	inst.passes, err = m.Int64Counter(
		"vision.passes",
		metric.WithDescription("Total fog recomputations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating passes counter: %w", err)
	}

	inst.duration, err = m.Float64Histogram(
		"vision.pass.duration",
		metric.WithDescription("Wall time of one fog recomputation"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	inst.sources, err = m.Int64Histogram(
		"vision.pass.sources",
		metric.WithDescription("Light sources raycast per recomputation"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sources histogram: %w", err)
	}

	inst.decays, err = m.Int64Counter(
		"vision.decay.transitions",
		metric.WithDescription("Long-range sensors that reached their reduced range"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating decay counter: %w", err)
	}

	return inst, nil
}

func (i *instruments) recordPass(ctx context.Context, view ViewMode, ready bool, sources int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("view", view.String()),
		attribute.Bool("ready", ready),
	)
	i.passes.Add(ctx, 1, attrs)
	i.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	i.sources.Record(ctx, int64(sources), attrs)
}
