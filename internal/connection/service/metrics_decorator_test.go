package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingMetrics captures metric calls for assertions.
type recordingMetrics struct {
	mu         sync.Mutex
	operations []string
	deltas     map[string]int64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{deltas: make(map[string]int64)}
}

func (r *recordingMetrics) RecordOperation(_ context.Context, domain, operation, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations = append(r.operations, domain+"/"+operation+"/"+status)
}

func (r *recordingMetrics) RecordDuration(_ context.Context, _, _ string, _ time.Duration, _ string) {
}

func (r *recordingMetrics) RecordConnectionDelta(_ context.Context, connType string, delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas[connType] += delta
}

func (r *recordingMetrics) snapshot() ([]string, map[string]int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	operations := append([]string(nil), r.operations...)
	deltas := make(map[string]int64, len(r.deltas))
	for k, v := range r.deltas {
		deltas[k] = v
	}
	return operations, deltas
}

func TestManagerWithMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("create and close move the gauge", func(t *testing.T) {
		recorder := newRecordingMetrics()
		manager := NewManagerWithMetrics(
			NewManager(testOptions(), &fakeFactory{}, newFakeStore(), testLogger()),
			recorder,
		)
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		_, err := manager.CreateConnection(ctx, testConfig("db-1"))
		require.NoError(t, err)

		operations, deltas := recorder.snapshot()
		assert.Contains(t, operations, "connection/connection_create/success")
		assert.Equal(t, int64(1), deltas["postgres"])

		require.NoError(t, manager.CloseConnection(ctx, "db-1"))

		operations, deltas = recorder.snapshot()
		assert.Contains(t, operations, "connection/connection_close/success")
		assert.Equal(t, int64(0), deltas["postgres"])
	})

	t.Run("failed create does not move the gauge", func(t *testing.T) {
		recorder := newRecordingMetrics()
		connector := &fakeConnector{failConnects: 100}
		factory := &fakeFactory{queue: []*fakeConnector{connector}}
		manager := NewManagerWithMetrics(
			NewManager(testOptions(), factory, newFakeStore(), testLogger()),
			recorder,
		)
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		_, err := manager.CreateConnection(ctx, testConfig("db-1"))
		require.Error(t, err)

		operations, deltas := recorder.snapshot()
		assert.Contains(t, operations, "connection/connection_create/error")
		assert.Zero(t, deltas["postgres"])
	})

	t.Run("close on unknown id leaves the gauge alone", func(t *testing.T) {
		recorder := newRecordingMetrics()
		manager := NewManagerWithMetrics(
			NewManager(testOptions(), &fakeFactory{}, newFakeStore(), testLogger()),
			recorder,
		)
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		require.NoError(t, manager.CloseConnection(ctx, "ghost"))

		_, deltas := recorder.snapshot()
		assert.Empty(t, deltas)
	})

	t.Run("shutdown zeroes the gauge", func(t *testing.T) {
		recorder := newRecordingMetrics()
		manager := NewManagerWithMetrics(
			NewManager(testOptions(), &fakeFactory{queue: []*fakeConnector{{}, {}}}, newFakeStore(), testLogger()),
			recorder,
		)

		_, err := manager.CreateConnection(ctx, testConfig("db-1"))
		require.NoError(t, err)
		_, err = manager.CreateConnection(ctx, testConfig("db-2"))
		require.NoError(t, err)

		require.NoError(t, manager.Shutdown(ctx))

		_, deltas := recorder.snapshot()
		assert.Equal(t, int64(0), deltas["postgres"])
	})

	t.Run("query and health check record operations", func(t *testing.T) {
		recorder := newRecordingMetrics()
		manager := NewManagerWithMetrics(
			NewManager(testOptions(), &fakeFactory{}, newFakeStore(), testLogger()),
			recorder,
		)
		defer func() { require.NoError(t, manager.Shutdown(ctx)) }()

		_, err := manager.CreateConnection(ctx, testConfig("db-1"))
		require.NoError(t, err)

		_, err = manager.ExecuteQuery(ctx, "db-1", "SELECT 1")
		require.NoError(t, err)
		assert.True(t, manager.HealthCheck(ctx, "db-1"))

		operations, _ := recorder.snapshot()
		assert.Contains(t, operations, "connection/query_execute/success")
		assert.Contains(t, operations, "connection/health_check/success")
	})
}
