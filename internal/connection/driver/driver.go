// Package driver implements the per-backend connectors the connection
// manager builds on: PostgreSQL and MySQL over database/sql, MongoDB over
// the official driver, and plain HTTP endpoints. Every connector reports
// failures as structured ConnectionErrors.
package driver

import (
	"context"
	"fmt"
	"time"

	connDomain "github.com/vaultcore/vaultcore/internal/connection/domain"
)

// Result is the normalized outcome of an ExecuteQuery call.
type Result struct {
	Rows         []map[string]any `json:"rows,omitempty"`
	RowsAffected int64            `json:"rows_affected"`
}

// Connector is a live connection to one backend. Implementations are safe
// for concurrent use once Connect has returned.
type Connector interface {
	// Connect establishes the underlying connection and verifies it.
	Connect(ctx context.Context) error

	// Disconnect tears the connection down. It is idempotent.
	Disconnect(ctx context.Context) error

	// HealthCheck verifies the connection is alive (ping or probe).
	HealthCheck(ctx context.Context) error

	// ExecuteQuery runs a backend-specific query and returns normalized rows.
	ExecuteQuery(ctx context.Context, query string, args ...any) (*Result, error)

	// Type returns the backend type tag.
	Type() connDomain.ConnectionType
}

// Factory builds connectors from validated configs.
type Factory struct {
	connectTimeout time.Duration
	queryTimeout   time.Duration
}

// NewFactory creates a connector factory with the given per-operation
// timeouts.
func NewFactory(connectTimeout, queryTimeout time.Duration) *Factory {
	return &Factory{connectTimeout: connectTimeout, queryTimeout: queryTimeout}
}

// Create builds the connector for the config's type. Credentials come from
// secure storage, not from the config itself. Per-config timeout overrides
// take precedence over the factory defaults.
func (f *Factory) Create(cfg connDomain.ConnectionConfig, credentials map[string]any) (Connector, error) {
	username, password := credentialPair(credentials)

	connectTimeout := f.connectTimeout
	if cfg.ConnectTimeout > 0 {
		connectTimeout = cfg.ConnectTimeout
	}
	queryTimeout := f.queryTimeout
	if cfg.QueryTimeout > 0 {
		queryTimeout = cfg.QueryTimeout
	}

	switch cfg.Type {
	case connDomain.TypePostgres, connDomain.TypeMySQL:
		return newSQLConnector(cfg, username, password, connectTimeout, queryTimeout)
	case connDomain.TypeMongoDB:
		return newMongoConnector(cfg, username, password, connectTimeout, queryTimeout)
	case connDomain.TypeHTTP:
		return newHTTPConnector(cfg, connectTimeout, queryTimeout)
	}
	return nil, connDomain.NewConnectionError(
		connDomain.KindInvalidConfig,
		cfg.ID,
		fmt.Sprintf("unsupported connection type %q", cfg.Type),
		nil,
		nil,
	)
}

// TestConnection establishes a short-lived connection, health checks it, and
// tears it down again without registering anything.
func (f *Factory) TestConnection(
	ctx context.Context,
	cfg connDomain.ConnectionConfig,
	credentials map[string]any,
) error {
	connector, err := f.Create(cfg, credentials)
	if err != nil {
		return err
	}

	if err := connector.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = connector.Disconnect(context.WithoutCancel(ctx)) }()

	return connector.HealthCheck(ctx)
}

// credentialPair extracts username and password from a credential mapping.
func credentialPair(credentials map[string]any) (string, string) {
	username, _ := credentials["username"].(string)
	password, _ := credentials["password"].(string)
	return username, password
}
