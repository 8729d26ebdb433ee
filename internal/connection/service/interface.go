// Package service implements the connection manager: the process-wide
// registry of live data-source connections, with retrying creation, bounded
// pooling, and supervised per-connection health monitoring.
package service

import (
	"context"
	"time"

	connDomain "github.com/vaultcore/vaultcore/internal/connection/domain"
	"github.com/vaultcore/vaultcore/internal/connection/driver"
)

// Options are the manager-wide defaults. Per-connection config overrides
// take precedence where a config sets the matching field.
type Options struct {
	MaxConnections      int
	RetryAttempts       int
	RetryBaseDelay      time.Duration
	PoolMinSize         int
	PoolMaxSize         int
	HealthCheckInterval time.Duration
	HealthRetryDelay    time.Duration
}

// CredentialStore persists encrypted credential mappings per connection id.
type CredentialStore interface {
	StoreConnectionCredentials(ctx context.Context, connectionID string, credentials map[string]any) error
	RetrieveConnectionCredentials(ctx context.Context, connectionID string) (map[string]any, error)
	DeleteConnectionCredentials(ctx context.Context, connectionID string) error
}

// ConnectorFactory builds connectors from configs and credentials.
type ConnectorFactory interface {
	Create(cfg connDomain.ConnectionConfig, credentials map[string]any) (driver.Connector, error)
	TestConnection(ctx context.Context, cfg connDomain.ConnectionConfig, credentials map[string]any) error
}

// Manager is the authority over the set of live connections.
type Manager interface {
	// CreateConnection validates the config, stores its credentials, connects
	// with retry, registers the connection, and starts its health monitor.
	// On failure nothing is registered.
	CreateConnection(ctx context.Context, cfg connDomain.ConnectionConfig) (connDomain.ConnectionMetadata, error)

	// GetConnection returns the registered connector for an id.
	GetConnection(connectionID string) (driver.Connector, error)

	// GetMetadata returns a copy of the connection's runtime metadata.
	GetMetadata(connectionID string) (connDomain.ConnectionMetadata, error)

	// ListConnections returns metadata for all connections in creation order.
	ListConnections() []connDomain.ConnectionMetadata

	// ExecuteQuery runs a query on the registered connection and updates its
	// activity counters.
	ExecuteQuery(ctx context.Context, connectionID string, query string, args ...any) (*driver.Result, error)

	// HealthCheck probes the connection and updates its metadata. A failing
	// probe yields false, never an error.
	HealthCheck(ctx context.Context, connectionID string) bool

	// TestConnection establishes a throwaway connection for the config and
	// reports whether it works. Nothing is registered.
	TestConnection(ctx context.Context, cfg connDomain.ConnectionConfig) error

	// Pool returns the bounded connector pool for a registered connection,
	// creating it on first use.
	Pool(connectionID string) (*ConnectionPool, error)

	// CloseConnection cancels the health monitor, disconnects, and removes
	// the connection and its pool. Unknown ids are a no-op.
	CloseConnection(ctx context.Context, connectionID string) error

	// Shutdown drains everything: cancels all monitors, closes all
	// connections in creation order, and waits for the monitors to exit.
	// Idempotent.
	Shutdown(ctx context.Context) error
}
