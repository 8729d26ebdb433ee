package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics records operation-level metrics across the application's
// domains ("vault", "connection", "storage").
type BusinessMetrics interface {
	// RecordOperation records one operation with its status ("success" or
	// "error"). Operation examples: "encrypt", "key_rotate",
	// "connection_create", "query_execute".
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration records an operation's duration in seconds as a
	// histogram for percentile calculations.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)

	// RecordConnectionDelta moves the live connection gauge up or down.
	RecordConnectionDelta(ctx context.Context, connType string, delta int64)
}

// businessMetrics implements BusinessMetrics using OpenTelemetry.
type businessMetrics struct {
	operationCounter metric.Int64Counter
	durationHisto    metric.Float64Histogram
	liveConnections  metric.Int64UpDownCounter
}

// NewBusinessMetrics creates the operation instruments under the namespace
// prefix. Returns error if any instrument cannot be initialized.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of business operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of business operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	liveConnections, err := meter.Int64UpDownCounter(
		fmt.Sprintf("%s_live_connections", namespace),
		metric.WithDescription("Number of currently registered data-source connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create live connections counter: %w", err)
	}

	return &businessMetrics{
		operationCounter: operationCounter,
		durationHisto:    durationHisto,
		liveConnections:  liveConnections,
	}, nil
}

// RecordOperation increments the operation counter with domain, operation, and status labels.
func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// RecordDuration records the operation duration in seconds with domain, operation, and status labels.
func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// RecordConnectionDelta adjusts the live connection gauge with a type label.
func (b *businessMetrics) RecordConnectionDelta(ctx context.Context, connType string, delta int64) {
	b.liveConnections.Add(ctx, delta,
		metric.WithAttributes(
			attribute.String("type", connType),
		),
	)
}
