package application

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/anyaat/Atlas/internal/domain/lifecycle"
)

const meterName = "github.com/anyaat/Atlas/internal/application"

type metrics struct {
	transitions metric.Int64Counter
	evaluations metric.Int64Counter
}

// newMetrics registers on the global meter provider, which is a no-op until
// an exporter is installed.
func newMetrics() *metrics {
	meter := otel.Meter(meterName)
	m := &metrics{}
	var err error
	if m.transitions, err = meter.Int64Counter("atlas.lifecycle.transitions",
		metric.WithDescription("Lifecycle states entered by listings.")); err != nil {
		m.transitions = noop.Int64Counter{}
	}
	if m.evaluations, err = meter.Int64Counter("atlas.sweep.evaluations",
		metric.WithDescription("Listings handled by sweeps, by result.")); err != nil {
		m.evaluations = noop.Int64Counter{}
	}
	return m
}

func (m *metrics) transitioned(ctx context.Context, out lifecycle.Outcome) {
	for _, s := range out.Steps {
		m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("to", string(s))))
	}
}

func (m *metrics) evaluated(ctx context.Context, result string) {
	m.evaluations.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
