package service

import (
	"context"
	"time"

	connDomain "github.com/vaultcore/vaultcore/internal/connection/domain"
	"github.com/vaultcore/vaultcore/internal/connection/driver"
	"github.com/vaultcore/vaultcore/internal/metrics"
)

// managerWithMetrics decorates Manager with metrics instrumentation,
// including the live connection gauge.
type managerWithMetrics struct {
	next    Manager
	metrics metrics.BusinessMetrics
}

// NewManagerWithMetrics wraps a Manager with metrics recording.
func NewManagerWithMetrics(manager Manager, m metrics.BusinessMetrics) Manager {
	return &managerWithMetrics{
		next:    manager,
		metrics: m,
	}
}

// CreateConnection records metrics for connection creation and moves the
// live connection gauge up on success.
func (d *managerWithMetrics) CreateConnection(
	ctx context.Context,
	cfg connDomain.ConnectionConfig,
) (connDomain.ConnectionMetadata, error) {
	start := time.Now()
	metadata, err := d.next.CreateConnection(ctx, cfg)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "connection", "connection_create", status)
	d.metrics.RecordDuration(ctx, "connection", "connection_create", time.Since(start), status)
	if err == nil {
		d.metrics.RecordConnectionDelta(ctx, string(cfg.Type), 1)
	}

	return metadata, err
}

// GetConnection passes through without instrumentation.
func (d *managerWithMetrics) GetConnection(connectionID string) (driver.Connector, error) {
	return d.next.GetConnection(connectionID)
}

// GetMetadata passes through without instrumentation.
func (d *managerWithMetrics) GetMetadata(connectionID string) (connDomain.ConnectionMetadata, error) {
	return d.next.GetMetadata(connectionID)
}

// ListConnections passes through without instrumentation.
func (d *managerWithMetrics) ListConnections() []connDomain.ConnectionMetadata {
	return d.next.ListConnections()
}

// ExecuteQuery records metrics for query execution.
func (d *managerWithMetrics) ExecuteQuery(
	ctx context.Context,
	connectionID string,
	query string,
	args ...any,
) (*driver.Result, error) {
	start := time.Now()
	result, err := d.next.ExecuteQuery(ctx, connectionID, query, args...)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "connection", "query_execute", status)
	d.metrics.RecordDuration(ctx, "connection", "query_execute", time.Since(start), status)

	return result, err
}

// HealthCheck records metrics for health probes.
func (d *managerWithMetrics) HealthCheck(ctx context.Context, connectionID string) bool {
	start := time.Now()
	healthy := d.next.HealthCheck(ctx, connectionID)

	status := "success"
	if !healthy {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "connection", "health_check", status)
	d.metrics.RecordDuration(ctx, "connection", "health_check", time.Since(start), status)

	return healthy
}

// TestConnection records metrics for connection tests.
func (d *managerWithMetrics) TestConnection(ctx context.Context, cfg connDomain.ConnectionConfig) error {
	start := time.Now()
	err := d.next.TestConnection(ctx, cfg)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "connection", "connection_test", status)
	d.metrics.RecordDuration(ctx, "connection", "connection_test", time.Since(start), status)

	return err
}

// Pool passes through without instrumentation.
func (d *managerWithMetrics) Pool(connectionID string) (*ConnectionPool, error) {
	return d.next.Pool(connectionID)
}

// CloseConnection records metrics and moves the live connection gauge down
// when a registered connection was actually removed.
func (d *managerWithMetrics) CloseConnection(ctx context.Context, connectionID string) error {
	metadata, metaErr := d.next.GetMetadata(connectionID)

	start := time.Now()
	err := d.next.CloseConnection(ctx, connectionID)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "connection", "connection_close", status)
	d.metrics.RecordDuration(ctx, "connection", "connection_close", time.Since(start), status)
	if metaErr == nil {
		d.metrics.RecordConnectionDelta(ctx, string(metadata.Type), -1)
	}

	return err
}

// Shutdown zeroes the live connection gauge and passes through.
func (d *managerWithMetrics) Shutdown(ctx context.Context) error {
	for _, metadata := range d.next.ListConnections() {
		d.metrics.RecordConnectionDelta(ctx, string(metadata.Type), -1)
	}
	return d.next.Shutdown(ctx)
}
