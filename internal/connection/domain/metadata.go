// Package domain defines the connection manager's core types: configs,
// lifecycle metadata, and structured connection errors.
package domain

import "time"

// ConnectionMetadata is the bookkeeping record the manager maintains for one
// connection. It is a plain value; the manager guards it with its own lock
// and hands out copies.
type ConnectionMetadata struct {
	ConnectionID    string           `json:"connection_id"`
	Type            ConnectionType   `json:"type"`
	Status          ConnectionStatus `json:"status"`
	ConnectedAt     time.Time        `json:"connected_at"`
	LastActivity    time.Time        `json:"last_activity"`
	QueriesExecuted uint64           `json:"queries_executed"`
	QueriesFailed   uint64           `json:"queries_failed"`
	IsHealthy       bool             `json:"is_healthy"`
	LastError       string           `json:"last_error,omitempty"`
}

// NewConnectionMetadata returns the metadata record for a freshly
// established connection.
func NewConnectionMetadata(connectionID string, connType ConnectionType) ConnectionMetadata {
	now := time.Now().UTC()
	return ConnectionMetadata{
		ConnectionID: connectionID,
		Type:         connType,
		Status:       StatusConnected,
		ConnectedAt:  now,
		LastActivity: now,
		IsHealthy:    true,
	}
}

// Touch updates the last activity timestamp.
func (m *ConnectionMetadata) Touch() {
	m.LastActivity = time.Now().UTC()
}

// RecordQuery bumps the query counters and activity timestamp.
func (m *ConnectionMetadata) RecordQuery(failed bool) {
	m.QueriesExecuted++
	if failed {
		m.QueriesFailed++
	}
	m.Touch()
}

// MarkHealthy records a successful health check.
func (m *ConnectionMetadata) MarkHealthy() {
	m.IsHealthy = true
	m.Status = StatusConnected
	m.LastError = ""
	m.Touch()
}

// MarkUnhealthy records a failed health check with its error.
func (m *ConnectionMetadata) MarkUnhealthy(err error) {
	m.IsHealthy = false
	m.Status = StatusError
	if err != nil {
		m.LastError = err.Error()
	}
	m.Touch()
}
