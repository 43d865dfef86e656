package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CollectionMetrics records per-unit collection outcomes.
type CollectionMetrics struct {
	resourcesTotal metric.Int64Counter
	unitFailures   metric.Int64Counter
	unitDuration   metric.Float64Histogram
}

// NewCollectionMetrics creates collection metrics on the global meter.
func NewCollectionMetrics() (*CollectionMetrics, error) {
	meter := otel.Meter("cloudtally")

	resourcesTotal, err := meter.Int64Counter(
		"cloudtally_resources_collected_total",
		metric.WithDescription("Total resources collected per service"),
	)
	if err != nil {
		return nil, fmt.Errorf("create resources counter: %w", err)
	}

	unitFailures, err := meter.Int64Counter(
		"cloudtally_unit_failures_total",
		metric.WithDescription("Collection units that failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("create failures counter: %w", err)
	}

	unitDuration, err := meter.Float64Histogram(
		"cloudtally_unit_duration_seconds",
		metric.WithDescription("Time taken to collect one unit"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return &CollectionMetrics{
		resourcesTotal: resourcesTotal,
		unitFailures:   unitFailures,
		unitDuration:   unitDuration,
	}, nil
}

// RecordUnit records the outcome of one collection unit. Safe on a nil
// receiver so metrics stay optional for callers.
func (m *CollectionMetrics) RecordUnit(ctx context.Context, service, accountID, region string, count int, duration time.Duration, err error) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("account_id", accountID),
		attribute.String("region", region),
	)

	m.unitDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.unitFailures.Add(ctx, 1, attrs)
		return
	}
	m.resourcesTotal.Add(ctx, int64(count), attrs)
}
