package service

import (
	"context"
	"sync"

	connDomain "github.com/vaultcore/vaultcore/internal/connection/domain"
	"github.com/vaultcore/vaultcore/internal/connection/driver"
)

// dialFunc creates and connects a fresh connector for the pool.
type dialFunc func(ctx context.Context) (driver.Connector, error)

// ConnectionPool is a bounded pool of connectors for one logical connection.
// Acquire hands out exclusive leases; Release returns them. At most maxSize
// connectors exist at once, and at most minSize sit idle.
type ConnectionPool struct {
	connectionID string
	minSize      int
	maxSize      int
	dial         dialFunc

	mu     sync.Mutex
	idle   []driver.Connector
	active int
	closed bool
}

// NewConnectionPool creates an empty pool. Connectors are dialed lazily on
// Acquire; nothing is pre-warmed.
func NewConnectionPool(connectionID string, minSize, maxSize int, dial dialFunc) *ConnectionPool {
	if maxSize < 1 {
		maxSize = 1
	}
	if minSize < 0 {
		minSize = 0
	}
	if minSize > maxSize {
		minSize = maxSize
	}
	return &ConnectionPool{
		connectionID: connectionID,
		minSize:      minSize,
		maxSize:      maxSize,
		dial:         dial,
	}
}

// Acquire returns an idle connector if one exists, dials a new one if the
// active count is below maxSize, and otherwise fails with a pool exhausted
// error.
func (p *ConnectionPool) Acquire(ctx context.Context) (driver.Connector, error) {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return nil, connDomain.NewConnectionError(
			connDomain.KindInvalidConfig, p.connectionID, "pool is closed", nil, nil,
		)
	}

	if n := len(p.idle); n > 0 {
		connector := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.active++
		p.mu.Unlock()
		return connector, nil
	}

	if p.active >= p.maxSize {
		p.mu.Unlock()
		return nil, connDomain.NewConnectionError(
			connDomain.KindPoolExhausted,
			p.connectionID,
			"no connections available",
			nil,
			map[string]any{"max_size": p.maxSize},
		)
	}

	// Reserve the slot before dialing so concurrent acquires cannot
	// overshoot maxSize while this dial is in flight.
	p.active++
	p.mu.Unlock()

	connector, err := p.dial(ctx)
	if err != nil {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
		return nil, err
	}
	return connector, nil
}

// Release returns a leased connector. It is kept idle while the idle count
// is below minSize; beyond that it is disconnected and discarded.
func (p *ConnectionPool) Release(ctx context.Context, connector driver.Connector) {
	p.mu.Lock()

	if p.active > 0 {
		p.active--
	}

	if !p.closed && len(p.idle) < p.minSize {
		p.idle = append(p.idle, connector)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	_ = connector.Disconnect(ctx)
}

// Close disconnects all idle connectors and marks the pool closed. It is
// idempotent. Connectors still leased out are disconnected when released.
func (p *ConnectionPool) Close(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	for _, connector := range idle {
		_ = connector.Disconnect(ctx)
	}
}

// Stats returns the current idle and active counts.
func (p *ConnectionPool) Stats() (idle, active int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle), p.active
}
