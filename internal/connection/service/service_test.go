package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	connDomain "github.com/vaultcore/vaultcore/internal/connection/domain"
	"github.com/vaultcore/vaultcore/internal/connection/driver"
	apperrors "github.com/vaultcore/vaultcore/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeConnector counts calls and fails a configurable number of connect
// attempts before succeeding.
type fakeConnector struct {
	mu           sync.Mutex
	failConnects int
	connectErr   error
	healthErr    error
	queryErr     error

	connects     int
	disconnects  int
	healthChecks int
	queries      int
}

func (f *fakeConnector) Connect(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.failConnects > 0 {
		f.failConnects--
		if f.connectErr != nil {
			return f.connectErr
		}
		return connDomain.NewConnectionError(connDomain.KindNetwork, "fake", "connect failed", nil, nil)
	}
	return nil
}

func (f *fakeConnector) Disconnect(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}

func (f *fakeConnector) HealthCheck(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthChecks++
	return f.healthErr
}

func (f *fakeConnector) ExecuteQuery(_ context.Context, _ string, _ ...any) (*driver.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &driver.Result{Rows: []map[string]any{{"ok": true}}, RowsAffected: 1}, nil
}

func (f *fakeConnector) Type() connDomain.ConnectionType { return connDomain.TypePostgres }

func (f *fakeConnector) counts() (connects, disconnects, healthChecks int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects, f.disconnects, f.healthChecks
}

// fakeFactory hands out connectors from a queue, or a shared one.
type fakeFactory struct {
	mu         sync.Mutex
	connector  *fakeConnector
	queue      []*fakeConnector
	createErr  error
	testErr    error
	created    int
}

func (f *fakeFactory) Create(_ connDomain.ConnectionConfig, _ map[string]any) (driver.Connector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created++
	if len(f.queue) > 0 {
		connector := f.queue[0]
		f.queue = f.queue[1:]
		return connector, nil
	}
	if f.connector == nil {
		f.connector = &fakeConnector{}
	}
	return f.connector, nil
}

func (f *fakeFactory) TestConnection(ctx context.Context, _ connDomain.ConnectionConfig, _ map[string]any) error {
	return f.testErr
}

// fakeStore is an in-memory credential store.
type fakeStore struct {
	mu    sync.Mutex
	blobs map[string]map[string]any
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: make(map[string]map[string]any)}
}

func (s *fakeStore) StoreConnectionCredentials(_ context.Context, id string, credentials map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[id] = credentials
	return nil
}

func (s *fakeStore) RetrieveConnectionCredentials(_ context.Context, id string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	credentials, ok := s.blobs[id]
	if !ok {
		return nil, apperrors.Wrap(apperrors.ErrNotFound, "credentials not found")
	}
	return credentials, nil
}

func (s *fakeStore) DeleteConnectionCredentials(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, id)
	return nil
}

func (s *fakeStore) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[id]
	return ok
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	return Options{
		MaxConnections:      5,
		RetryAttempts:       2,
		RetryBaseDelay:      time.Millisecond,
		PoolMinSize:         1,
		PoolMaxSize:         2,
		HealthCheckInterval: time.Hour,
		HealthRetryDelay:    time.Hour,
	}
}

func testConfig(id string) connDomain.ConnectionConfig {
	return connDomain.ConnectionConfig{
		ID:       id,
		Type:     connDomain.TypePostgres,
		Host:     "localhost",
		Port:     5432,
		Database: "app",
		Username: "app",
		Password: "s3cret",
	}
}

func TestConnectWithRetry(t *testing.T) {
	ctx := context.Background()
	logger := testLogger()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		connector := &fakeConnector{failConnects: 2}

		err := connectWithRetry(ctx, logger, "db-1", 4, time.Millisecond, connector.Connect)
		require.NoError(t, err)

		connects, _, _ := connector.counts()
		assert.Equal(t, 3, connects)
	})

	t.Run("last failure propagates after exhaustion", func(t *testing.T) {
		cause := connDomain.NewConnectionError(connDomain.KindTimeout, "db-1", "slow", nil, nil)
		connector := &fakeConnector{failConnects: 10, connectErr: cause}

		err := connectWithRetry(ctx, logger, "db-1", 3, time.Millisecond, connector.Connect)
		require.ErrorIs(t, err, cause)

		connects, _, _ := connector.counts()
		assert.Equal(t, 3, connects)
	})

	t.Run("auth failures are not retried", func(t *testing.T) {
		cause := connDomain.NewConnectionError(connDomain.KindAuthFailed, "db-1", "denied", nil, nil)
		connector := &fakeConnector{failConnects: 10, connectErr: cause}

		err := connectWithRetry(ctx, logger, "db-1", 5, time.Millisecond, connector.Connect)
		require.ErrorIs(t, err, cause)

		connects, _, _ := connector.counts()
		assert.Equal(t, 1, connects)
	})

	t.Run("invalid config is not retried", func(t *testing.T) {
		cause := connDomain.NewConnectionError(connDomain.KindInvalidConfig, "db-1", "bad dsn", nil, nil)
		connector := &fakeConnector{failConnects: 10, connectErr: cause}

		err := connectWithRetry(ctx, logger, "db-1", 5, time.Millisecond, connector.Connect)
		require.ErrorIs(t, err, cause)

		connects, _, _ := connector.counts()
		assert.Equal(t, 1, connects)
	})

	t.Run("cancellation stops retrying", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()
		connector := &fakeConnector{failConnects: 10}

		err := connectWithRetry(cancelCtx, logger, "db-1", 5, time.Minute, connector.Connect)
		require.Error(t, err)

		connects, _, _ := connector.counts()
		assert.LessOrEqual(t, connects, 1)
	})
}

func TestConnectionPool(t *testing.T) {
	ctx := context.Background()

	newDial := func(factory *fakeFactory) dialFunc {
		return func(ctx context.Context) (driver.Connector, error) {
			connector, err := factory.Create(connDomain.ConnectionConfig{}, nil)
			if err != nil {
				return nil, err
			}
			if err := connector.Connect(ctx); err != nil {
				return nil, err
			}
			return connector, nil
		}
	}

	t.Run("bounded at max size", func(t *testing.T) {
		factory := &fakeFactory{queue: []*fakeConnector{{}, {}}}
		pool := NewConnectionPool("db-1", 1, 2, newDial(factory))

		first, err := pool.Acquire(ctx)
		require.NoError(t, err)
		second, err := pool.Acquire(ctx)
		require.NoError(t, err)

		_, err = pool.Acquire(ctx)
		connErr, ok := connDomain.AsConnectionError(err)
		require.True(t, ok)
		assert.Equal(t, connDomain.KindPoolExhausted, connErr.Kind)
		assert.ErrorIs(t, err, apperrors.ErrExhausted)

		pool.Release(ctx, first)
		pool.Release(ctx, second)
	})

	t.Run("released connector is reused", func(t *testing.T) {
		factory := &fakeFactory{}
		pool := NewConnectionPool("db-1", 1, 2, newDial(factory))

		connector, err := pool.Acquire(ctx)
		require.NoError(t, err)
		pool.Release(ctx, connector)

		again, err := pool.Acquire(ctx)
		require.NoError(t, err)
		assert.Same(t, connector, again)
		assert.Equal(t, 1, factory.created)
		pool.Release(ctx, again)
	})

	t.Run("release beyond min size discards", func(t *testing.T) {
		first := &fakeConnector{}
		second := &fakeConnector{}
		factory := &fakeFactory{queue: []*fakeConnector{first, second}}
		pool := NewConnectionPool("db-1", 1, 2, newDial(factory))

		a, err := pool.Acquire(ctx)
		require.NoError(t, err)
		b, err := pool.Acquire(ctx)
		require.NoError(t, err)

		pool.Release(ctx, a)
		pool.Release(ctx, b)

		idle, active := pool.Stats()
		assert.Equal(t, 1, idle)
		assert.Equal(t, 0, active)

		_, disconnects, _ := second.counts()
		assert.Equal(t, 1, disconnects)
	})

	t.Run("failed dial frees the slot", func(t *testing.T) {
		factory := &fakeFactory{createErr: errors.New("no driver")}
		pool := NewConnectionPool("db-1", 0, 1, newDial(factory))

		_, err := pool.Acquire(ctx)
		require.Error(t, err)

		_, active := pool.Stats()
		assert.Equal(t, 0, active)
	})

	t.Run("close disconnects idle and rejects acquires", func(t *testing.T) {
		connector := &fakeConnector{}
		factory := &fakeFactory{queue: []*fakeConnector{connector}}
		pool := NewConnectionPool("db-1", 1, 2, newDial(factory))

		leased, err := pool.Acquire(ctx)
		require.NoError(t, err)
		pool.Release(ctx, leased)

		pool.Close(ctx)
		pool.Close(ctx)

		_, disconnects, _ := connector.counts()
		assert.Equal(t, 1, disconnects)

		_, err = pool.Acquire(ctx)
		require.Error(t, err)
	})
}

func TestManagerCreateConnection(t *testing.T) {
	ctx := context.Background()

	t.Run("registers connection and starts monitoring", func(t *testing.T) {
		factory := &fakeFactory{}
		manager := NewManager(testOptions(), factory, newFakeStore(), testLogger())
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		metadata, err := manager.CreateConnection(ctx, testConfig("db-1"))
		require.NoError(t, err)
		assert.Equal(t, "db-1", metadata.ConnectionID)
		assert.Equal(t, connDomain.StatusConnected, metadata.Status)
		assert.True(t, metadata.IsHealthy)

		connector, err := manager.GetConnection("db-1")
		require.NoError(t, err)
		assert.NotNil(t, connector)
	})

	t.Run("invalid config rejected", func(t *testing.T) {
		manager := NewManager(testOptions(), &fakeFactory{}, newFakeStore(), testLogger())
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		cfg := testConfig("db-1")
		cfg.Port = 0
		_, err := manager.CreateConnection(ctx, cfg)
		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("duplicate id conflicts", func(t *testing.T) {
		manager := NewManager(testOptions(), &fakeFactory{}, newFakeStore(), testLogger())
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		_, err := manager.CreateConnection(ctx, testConfig("db-1"))
		require.NoError(t, err)

		_, err = manager.CreateConnection(ctx, testConfig("db-1"))
		require.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("connection limit", func(t *testing.T) {
		opts := testOptions()
		opts.MaxConnections = 1
		manager := NewManager(opts, &fakeFactory{}, newFakeStore(), testLogger())
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		_, err := manager.CreateConnection(ctx, testConfig("db-1"))
		require.NoError(t, err)

		_, err = manager.CreateConnection(ctx, testConfig("db-2"))
		connErr, ok := connDomain.AsConnectionError(err)
		require.True(t, ok)
		assert.Equal(t, connDomain.KindPoolExhausted, connErr.Kind)
	})

	t.Run("retry scenario records three attempts", func(t *testing.T) {
		connector := &fakeConnector{failConnects: 2}
		factory := &fakeFactory{queue: []*fakeConnector{connector}}
		opts := testOptions()
		opts.RetryAttempts = 3
		manager := NewManager(opts, factory, newFakeStore(), testLogger())
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		metadata, err := manager.CreateConnection(ctx, testConfig("db-1"))
		require.NoError(t, err)
		assert.Equal(t, connDomain.StatusConnected, metadata.Status)

		connects, _, _ := connector.counts()
		assert.Equal(t, 3, connects)
	})

	t.Run("exhausted retries register nothing", func(t *testing.T) {
		connector := &fakeConnector{failConnects: 100}
		factory := &fakeFactory{queue: []*fakeConnector{connector}}
		store := newFakeStore()
		manager := NewManager(testOptions(), factory, store, testLogger())
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		_, err := manager.CreateConnection(ctx, testConfig("db-1"))
		require.Error(t, err)

		_, err = manager.GetConnection("db-1")
		require.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.False(t, store.has("db-1"), "credentials must not be left behind")

		// The id is free for a fresh attempt.
		_, err = manager.CreateConnection(ctx, testConfig("db-1"))
		require.NoError(t, err)
	})

	t.Run("credentials stored redacted config kept", func(t *testing.T) {
		store := newFakeStore()
		manager := NewManager(testOptions(), &fakeFactory{}, store, testLogger())
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		_, err := manager.CreateConnection(ctx, testConfig("db-1"))
		require.NoError(t, err)

		credentials, err := store.RetrieveConnectionCredentials(ctx, "db-1")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", credentials["password"])
	})
}

func TestManagerOperations(t *testing.T) {
	ctx := context.Background()

	t.Run("execute query updates counters", func(t *testing.T) {
		connector := &fakeConnector{}
		factory := &fakeFactory{queue: []*fakeConnector{connector}}
		manager := NewManager(testOptions(), factory, newFakeStore(), testLogger())
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		_, err := manager.CreateConnection(ctx, testConfig("db-1"))
		require.NoError(t, err)

		result, err := manager.ExecuteQuery(ctx, "db-1", "SELECT 1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.RowsAffected)

		connector.queryErr = connDomain.NewConnectionError(connDomain.KindQueryTimeout, "db-1", "slow", nil, nil)
		_, err = manager.ExecuteQuery(ctx, "db-1", "SELECT 2")
		require.Error(t, err)

		metadata, err := manager.GetMetadata("db-1")
		require.NoError(t, err)
		assert.Equal(t, uint64(2), metadata.QueriesExecuted)
		assert.Equal(t, uint64(1), metadata.QueriesFailed)
	})

	t.Run("health check reports and records", func(t *testing.T) {
		connector := &fakeConnector{}
		factory := &fakeFactory{queue: []*fakeConnector{connector}}
		manager := NewManager(testOptions(), factory, newFakeStore(), testLogger())
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		_, err := manager.CreateConnection(ctx, testConfig("db-1"))
		require.NoError(t, err)

		assert.True(t, manager.HealthCheck(ctx, "db-1"))

		connector.healthErr = connDomain.NewConnectionError(connDomain.KindNetwork, "db-1", "down", nil, nil)
		assert.False(t, manager.HealthCheck(ctx, "db-1"))

		metadata, err := manager.GetMetadata("db-1")
		require.NoError(t, err)
		assert.False(t, metadata.IsHealthy)
		assert.Equal(t, connDomain.StatusError, metadata.Status)
		assert.Contains(t, metadata.LastError, "down")
	})

	t.Run("health check on unknown id is false", func(t *testing.T) {
		manager := NewManager(testOptions(), &fakeFactory{}, newFakeStore(), testLogger())
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		assert.False(t, manager.HealthCheck(ctx, "ghost"))
	})

	t.Run("list is in creation order", func(t *testing.T) {
		manager := NewManager(testOptions(), &fakeFactory{}, newFakeStore(), testLogger())
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		for _, id := range []string{"c", "a", "b"} {
			_, err := manager.CreateConnection(ctx, testConfig(id))
			require.NoError(t, err)
		}

		all := manager.ListConnections()
		require.Len(t, all, 3)
		assert.Equal(t, "c", all[0].ConnectionID)
		assert.Equal(t, "a", all[1].ConnectionID)
		assert.Equal(t, "b", all[2].ConnectionID)
	})

	t.Run("pool for registered connection", func(t *testing.T) {
		manager := NewManager(testOptions(), &fakeFactory{}, newFakeStore(), testLogger())
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		_, err := manager.CreateConnection(ctx, testConfig("db-1"))
		require.NoError(t, err)

		pool, err := manager.Pool("db-1")
		require.NoError(t, err)

		again, err := manager.Pool("db-1")
		require.NoError(t, err)
		assert.Same(t, pool, again)

		connector, err := pool.Acquire(ctx)
		require.NoError(t, err)
		pool.Release(ctx, connector)

		_, err = manager.Pool("ghost")
		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("test connection does not register", func(t *testing.T) {
		factory := &fakeFactory{}
		manager := NewManager(testOptions(), factory, newFakeStore(), testLogger())
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		require.NoError(t, manager.TestConnection(ctx, testConfig("probe")))
		assert.Empty(t, manager.ListConnections())
	})
}

func TestManagerCloseAndShutdown(t *testing.T) {
	ctx := context.Background()

	t.Run("close removes registration", func(t *testing.T) {
		connector := &fakeConnector{}
		factory := &fakeFactory{queue: []*fakeConnector{connector}}
		manager := NewManager(testOptions(), factory, newFakeStore(), testLogger())
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		_, err := manager.CreateConnection(ctx, testConfig("db-1"))
		require.NoError(t, err)

		require.NoError(t, manager.CloseConnection(ctx, "db-1"))

		_, err = manager.GetConnection("db-1")
		require.ErrorIs(t, err, apperrors.ErrNotFound)
		_, err = manager.GetMetadata("db-1")
		require.ErrorIs(t, err, apperrors.ErrNotFound)

		_, disconnects, _ := connector.counts()
		assert.Equal(t, 1, disconnects)
	})

	t.Run("close unknown id is a no-op", func(t *testing.T) {
		manager := NewManager(testOptions(), &fakeFactory{}, newFakeStore(), testLogger())
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		require.NoError(t, manager.CloseConnection(ctx, "ghost"))
	})

	t.Run("shutdown closes everything and is idempotent", func(t *testing.T) {
		first := &fakeConnector{}
		second := &fakeConnector{}
		factory := &fakeFactory{queue: []*fakeConnector{first, second}}
		manager := NewManager(testOptions(), factory, newFakeStore(), testLogger())

		_, err := manager.CreateConnection(ctx, testConfig("db-1"))
		require.NoError(t, err)
		_, err = manager.CreateConnection(ctx, testConfig("db-2"))
		require.NoError(t, err)

		require.NoError(t, manager.Shutdown(ctx))
		require.NoError(t, manager.Shutdown(ctx))

		_, firstDisconnects, _ := first.counts()
		_, secondDisconnects, _ := second.counts()
		assert.Equal(t, 1, firstDisconnects)
		assert.Equal(t, 1, secondDisconnects)

		assert.Empty(t, manager.ListConnections())

		_, err = manager.CreateConnection(ctx, testConfig("db-3"))
		require.ErrorIs(t, err, apperrors.ErrUnavailable)
	})
}

func TestHealthMonitor(t *testing.T) {
	ctx := context.Background()

	t.Run("probes on the configured interval", func(t *testing.T) {
		connector := &fakeConnector{}
		factory := &fakeFactory{queue: []*fakeConnector{connector}}
		opts := testOptions()
		opts.HealthCheckInterval = 5 * time.Millisecond
		opts.HealthRetryDelay = 5 * time.Millisecond
		manager := NewManager(opts, factory, newFakeStore(), testLogger())
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		_, err := manager.CreateConnection(ctx, testConfig("db-1"))
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			_, _, healthChecks := connector.counts()
			return healthChecks >= 2
		}, time.Second, time.Millisecond)
	})

	t.Run("failed probes flip metadata and keep monitoring", func(t *testing.T) {
		connector := &fakeConnector{healthErr: errors.New("down")}
		factory := &fakeFactory{queue: []*fakeConnector{connector}}
		opts := testOptions()
		opts.HealthCheckInterval = 5 * time.Millisecond
		opts.HealthRetryDelay = time.Millisecond
		manager := NewManager(opts, factory, newFakeStore(), testLogger())
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		_, err := manager.CreateConnection(ctx, testConfig("db-1"))
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			_, _, healthChecks := connector.counts()
			return healthChecks >= 3
		}, time.Second, time.Millisecond)

		metadata, err := manager.GetMetadata("db-1")
		require.NoError(t, err)
		assert.False(t, metadata.IsHealthy)
	})

	t.Run("close stops the monitor", func(t *testing.T) {
		connector := &fakeConnector{}
		factory := &fakeFactory{queue: []*fakeConnector{connector}}
		opts := testOptions()
		opts.HealthCheckInterval = time.Millisecond
		manager := NewManager(opts, factory, newFakeStore(), testLogger())
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		_, err := manager.CreateConnection(ctx, testConfig("db-1"))
		require.NoError(t, err)
		require.NoError(t, manager.CloseConnection(ctx, "db-1"))

		time.Sleep(10 * time.Millisecond)
		_, _, before := connector.counts()
		time.Sleep(20 * time.Millisecond)
		_, _, after := connector.counts()
		assert.Equal(t, before, after)
	})
}
