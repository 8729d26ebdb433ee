package dto

import (
	"time"

	connDomain "github.com/vaultcore/vaultcore/internal/connection/domain"
	"github.com/vaultcore/vaultcore/internal/connection/driver"
)

// ConnectionResponse is the runtime view of one managed connection.
type ConnectionResponse struct {
	ConnectionID    string    `json:"connection_id"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	ConnectedAt     time.Time `json:"connected_at"`
	LastActivity    time.Time `json:"last_activity"`
	QueriesExecuted uint64    `json:"queries_executed"`
	QueriesFailed   uint64    `json:"queries_failed"`
	IsHealthy       bool      `json:"is_healthy"`
	LastError       string    `json:"last_error,omitempty"`
}

// MapConnectionResponse converts metadata to its response form.
func MapConnectionResponse(metadata connDomain.ConnectionMetadata) ConnectionResponse {
	return ConnectionResponse{
		ConnectionID:    metadata.ConnectionID,
		Type:            string(metadata.Type),
		Status:          string(metadata.Status),
		ConnectedAt:     metadata.ConnectedAt,
		LastActivity:    metadata.LastActivity,
		QueriesExecuted: metadata.QueriesExecuted,
		QueriesFailed:   metadata.QueriesFailed,
		IsHealthy:       metadata.IsHealthy,
		LastError:       metadata.LastError,
	}
}

// ListConnectionsResponse lists all managed connections.
type ListConnectionsResponse struct {
	Connections []ConnectionResponse `json:"connections"`
}

// HealthResponse reports the outcome of an on-demand health probe.
type HealthResponse struct {
	ConnectionID string `json:"connection_id"`
	Healthy      bool   `json:"healthy"`
}

// QueryResponse returns normalized query results.
type QueryResponse struct {
	Rows         []map[string]any `json:"rows"`
	RowsAffected int64            `json:"rows_affected"`
}

// MapQueryResponse converts a driver result to its response form.
func MapQueryResponse(result *driver.Result) QueryResponse {
	rows := result.Rows
	if rows == nil {
		rows = []map[string]any{}
	}
	return QueryResponse{
		Rows:         rows,
		RowsAffected: result.RowsAffected,
	}
}

// TestConnectionResponse reports the outcome of a throwaway connection test.
type TestConnectionResponse struct {
	Success bool `json:"success"`
}
