package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	connDomain "github.com/vaultcore/vaultcore/internal/connection/domain"
	"github.com/vaultcore/vaultcore/internal/connection/driver"
	apperrors "github.com/vaultcore/vaultcore/internal/errors"
)

// managedConnection is one registry entry: the live connector, its runtime
// metadata, its optional pool, and the cancel handle for its monitor.
type managedConnection struct {
	config        connDomain.ConnectionConfig
	connector     driver.Connector
	metadata      connDomain.ConnectionMetadata
	pool          *ConnectionPool
	cancelMonitor context.CancelFunc
}

// ManagerService implements Manager. Structural changes to the registry
// (create, close, shutdown) serialize on the mutex; metadata reads hand out
// copies so callers never hold references into the registry.
type ManagerService struct {
	opts    Options
	factory ConnectorFactory
	store   CredentialStore
	logger  *slog.Logger

	mu          sync.Mutex
	connections map[string]*managedConnection
	order       []string
	closed      bool

	monitorWG sync.WaitGroup
}

// NewManager creates a ManagerService with the given defaults.
func NewManager(opts Options, factory ConnectorFactory, store CredentialStore, logger *slog.Logger) *ManagerService {
	return &ManagerService{
		opts:        opts,
		factory:     factory,
		store:       store,
		logger:      logger,
		connections: make(map[string]*managedConnection),
	}
}

// CreateConnection implements Manager.
func (m *ManagerService) CreateConnection(
	ctx context.Context,
	cfg connDomain.ConnectionConfig,
) (connDomain.ConnectionMetadata, error) {
	var zero connDomain.ConnectionMetadata

	if err := cfg.Validate(); err != nil {
		return zero, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return zero, apperrors.Wrap(apperrors.ErrUnavailable, "manager is shut down")
	}
	if _, exists := m.connections[cfg.ID]; exists {
		m.mu.Unlock()
		return zero, apperrors.Wrap(apperrors.ErrConflict, fmt.Sprintf("connection %q already exists", cfg.ID))
	}
	if len(m.connections) >= m.opts.MaxConnections {
		m.mu.Unlock()
		return zero, connDomain.NewConnectionError(
			connDomain.KindPoolExhausted,
			cfg.ID,
			"connection limit reached",
			nil,
			map[string]any{"max_connections": m.opts.MaxConnections},
		)
	}
	// Reserve the id so concurrent creates for the same id conflict instead
	// of racing. The placeholder has no connector and is invisible to reads.
	m.connections[cfg.ID] = nil
	m.mu.Unlock()

	metadata, err := m.establish(ctx, cfg)
	if err != nil {
		m.mu.Lock()
		delete(m.connections, cfg.ID)
		m.mu.Unlock()
		return zero, err
	}
	return metadata, nil
}

// establish stores credentials, connects with retry, and registers the
// connection. The caller has already reserved the id.
func (m *ManagerService) establish(
	ctx context.Context,
	cfg connDomain.ConnectionConfig,
) (connDomain.ConnectionMetadata, error) {
	var zero connDomain.ConnectionMetadata

	credentials := cfg.Credentials()
	if err := m.store.StoreConnectionCredentials(ctx, cfg.ID, credentials); err != nil {
		return zero, err
	}

	connector, err := m.factory.Create(cfg, credentials)
	if err != nil {
		m.discardCredentials(ctx, cfg.ID)
		return zero, err
	}

	attempts, baseDelay := m.retryPolicy(cfg)
	if err := connectWithRetry(ctx, m.logger, cfg.ID, attempts, baseDelay, connector.Connect); err != nil {
		m.discardCredentials(ctx, cfg.ID)
		return zero, err
	}

	monitorCtx, cancel := context.WithCancel(context.Background())
	entry := &managedConnection{
		config:        cfg.Redacted(),
		connector:     connector,
		metadata:      connDomain.NewConnectionMetadata(cfg.ID, cfg.Type),
		cancelMonitor: cancel,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		_ = connector.Disconnect(context.WithoutCancel(ctx))
		m.discardCredentials(ctx, cfg.ID)
		return zero, apperrors.Wrap(apperrors.ErrUnavailable, "manager is shut down")
	}
	m.connections[cfg.ID] = entry
	m.order = append(m.order, cfg.ID)
	m.mu.Unlock()

	m.monitorWG.Add(1)
	go m.monitor(monitorCtx, cfg.ID)

	m.logger.Info("connection created",
		slog.String("connection_id", cfg.ID),
		slog.String("type", string(cfg.Type)),
	)
	return entry.metadata, nil
}

// GetConnection implements Manager.
func (m *ManagerService) GetConnection(connectionID string) (driver.Connector, error) {
	entry, err := m.entry(connectionID)
	if err != nil {
		return nil, err
	}
	return entry.connector, nil
}

// GetMetadata implements Manager.
func (m *ManagerService) GetMetadata(connectionID string) (connDomain.ConnectionMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.connections[connectionID]
	if !ok || entry == nil {
		return connDomain.ConnectionMetadata{}, apperrors.Wrap(
			apperrors.ErrNotFound, fmt.Sprintf("connection %q", connectionID),
		)
	}
	return entry.metadata, nil
}

// ListConnections implements Manager.
func (m *ManagerService) ListConnections() []connDomain.ConnectionMetadata {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]connDomain.ConnectionMetadata, 0, len(m.order))
	for _, id := range m.order {
		if entry := m.connections[id]; entry != nil {
			out = append(out, entry.metadata)
		}
	}
	return out
}

// ExecuteQuery implements Manager.
func (m *ManagerService) ExecuteQuery(
	ctx context.Context,
	connectionID string,
	query string,
	args ...any,
) (*driver.Result, error) {
	entry, err := m.entry(connectionID)
	if err != nil {
		return nil, err
	}

	result, queryErr := entry.connector.ExecuteQuery(ctx, query, args...)

	m.mu.Lock()
	if current, ok := m.connections[connectionID]; ok && current != nil {
		current.metadata.RecordQuery(queryErr != nil)
	}
	m.mu.Unlock()

	return result, queryErr
}

// HealthCheck implements Manager.
func (m *ManagerService) HealthCheck(ctx context.Context, connectionID string) bool {
	entry, err := m.entry(connectionID)
	if err != nil {
		return false
	}

	probeErr := entry.connector.HealthCheck(ctx)

	m.mu.Lock()
	if current, ok := m.connections[connectionID]; ok && current != nil {
		if probeErr != nil {
			current.metadata.MarkUnhealthy(probeErr)
		} else {
			current.metadata.MarkHealthy()
		}
	}
	m.mu.Unlock()

	if probeErr != nil {
		m.logger.Warn("health check failed",
			slog.String("connection_id", connectionID),
			slog.Any("error", probeErr),
		)
	}
	return probeErr == nil
}

// TestConnection implements Manager.
func (m *ManagerService) TestConnection(ctx context.Context, cfg connDomain.ConnectionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return m.factory.TestConnection(ctx, cfg, cfg.Credentials())
}

// Pool implements Manager. The pool dials fresh connectors using the stored
// credentials, so leases are independent of the registered connector.
func (m *ManagerService) Pool(connectionID string) (*ConnectionPool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.connections[connectionID]
	if !ok || entry == nil {
		return nil, apperrors.Wrap(apperrors.ErrNotFound, fmt.Sprintf("connection %q", connectionID))
	}

	if entry.pool == nil {
		minSize, maxSize := m.poolSizing(entry.config)
		cfg := entry.config
		entry.pool = NewConnectionPool(connectionID, minSize, maxSize, func(ctx context.Context) (driver.Connector, error) {
			return m.dialPooled(ctx, cfg)
		})
	}
	return entry.pool, nil
}

// CloseConnection implements Manager.
func (m *ManagerService) CloseConnection(ctx context.Context, connectionID string) error {
	m.mu.Lock()
	entry, ok := m.connections[connectionID]
	if !ok || entry == nil {
		m.mu.Unlock()
		return nil
	}
	delete(m.connections, connectionID)
	m.removeFromOrder(connectionID)
	m.mu.Unlock()

	return m.teardown(ctx, connectionID, entry)
}

// Shutdown implements Manager.
func (m *ManagerService) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true

	entries := make([]*managedConnection, 0, len(m.order))
	ids := make([]string, 0, len(m.order))
	for _, id := range m.order {
		if entry := m.connections[id]; entry != nil {
			entries = append(entries, entry)
			ids = append(ids, id)
		}
	}
	m.connections = make(map[string]*managedConnection)
	m.order = nil
	m.mu.Unlock()

	var firstErr error
	for i, entry := range entries {
		if err := m.teardown(ctx, ids[i], entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	m.monitorWG.Wait()
	m.logger.Info("connection manager shut down", slog.Int("connections_closed", len(entries)))
	return firstErr
}

// teardown cancels the monitor, closes the pool, and disconnects.
func (m *ManagerService) teardown(ctx context.Context, connectionID string, entry *managedConnection) error {
	entry.cancelMonitor()
	if entry.pool != nil {
		entry.pool.Close(ctx)
	}

	err := entry.connector.Disconnect(ctx)
	if err != nil {
		m.logger.Warn("disconnect failed",
			slog.String("connection_id", connectionID),
			slog.Any("error", err),
		)
	} else {
		m.logger.Info("connection closed", slog.String("connection_id", connectionID))
	}
	return err
}

// dialPooled creates and connects one pooled connector.
func (m *ManagerService) dialPooled(ctx context.Context, cfg connDomain.ConnectionConfig) (driver.Connector, error) {
	credentials, err := m.store.RetrieveConnectionCredentials(ctx, cfg.ID)
	if err != nil {
		return nil, err
	}

	connector, err := m.factory.Create(cfg, credentials)
	if err != nil {
		return nil, err
	}

	attempts, baseDelay := m.retryPolicy(cfg)
	if err := connectWithRetry(ctx, m.logger, cfg.ID, attempts, baseDelay, connector.Connect); err != nil {
		return nil, err
	}
	return connector, nil
}

func (m *ManagerService) entry(connectionID string) (*managedConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.connections[connectionID]
	if !ok || entry == nil {
		return nil, apperrors.Wrap(apperrors.ErrNotFound, fmt.Sprintf("connection %q", connectionID))
	}
	return entry, nil
}

func (m *ManagerService) removeFromOrder(connectionID string) {
	for i, id := range m.order {
		if id == connectionID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

// discardCredentials removes credentials stored for a connection that never
// got registered.
func (m *ManagerService) discardCredentials(ctx context.Context, connectionID string) {
	if err := m.store.DeleteConnectionCredentials(context.WithoutCancel(ctx), connectionID); err != nil {
		m.logger.Warn("failed to discard credentials",
			slog.String("connection_id", connectionID),
			slog.Any("error", err),
		)
	}
}

// retryPolicy resolves the effective total connect attempts (retries plus
// the initial attempt) and the backoff base delay.
func (m *ManagerService) retryPolicy(cfg connDomain.ConnectionConfig) (int, time.Duration) {
	retries := m.opts.RetryAttempts
	if cfg.RetryAttempts > 0 {
		retries = cfg.RetryAttempts
	}
	if retries < 0 {
		retries = 0
	}
	attempts := retries + 1

	baseDelay := m.opts.RetryBaseDelay
	if cfg.RetryBaseDelay > 0 {
		baseDelay = cfg.RetryBaseDelay
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return attempts, baseDelay
}

// poolSizing resolves the effective pool bounds.
func (m *ManagerService) poolSizing(cfg connDomain.ConnectionConfig) (int, int) {
	minSize := m.opts.PoolMinSize
	if cfg.PoolMinSize > 0 {
		minSize = cfg.PoolMinSize
	}
	maxSize := m.opts.PoolMaxSize
	if cfg.PoolMaxSize > 0 {
		maxSize = cfg.PoolMaxSize
	}
	if maxSize < 1 {
		maxSize = 1
	}
	if minSize > maxSize {
		minSize = maxSize
	}
	return minSize, maxSize
}
