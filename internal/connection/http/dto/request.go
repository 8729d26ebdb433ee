// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	connDomain "github.com/vaultcore/vaultcore/internal/connection/domain"
)

// CreateConnectionRequest declares a data-source connection. Timeouts and
// delays are given in seconds; zero values fall back to server defaults.
type CreateConnectionRequest struct {
	ID       string            `json:"id" binding:"required"`
	Type     string            `json:"type" binding:"required"`
	Host     string            `json:"host"`
	Port     int               `json:"port"`
	Database string            `json:"database"`
	Username string            `json:"username"`
	Password string            `json:"password"`
	BaseURL  string            `json:"base_url"`
	Options  map[string]string `json:"options"`

	PoolMinSize           int `json:"pool_min_size"`
	PoolMaxSize           int `json:"pool_max_size"`
	ConnectTimeoutSeconds int `json:"connect_timeout_seconds"`
	QueryTimeoutSeconds   int `json:"query_timeout_seconds"`
	RetryAttempts         int `json:"retry_attempts"`
	RetryBaseDelaySeconds int `json:"retry_base_delay_seconds"`
}

// Validate checks the request's surface shape. Full config validation
// happens in the domain layer.
func (r *CreateConnectionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ID, validation.Required),
		validation.Field(&r.Type, validation.Required),
	)
}

// ToConfig converts the request to a domain config.
func (r *CreateConnectionRequest) ToConfig() connDomain.ConnectionConfig {
	return connDomain.ConnectionConfig{
		ID:             r.ID,
		Type:           connDomain.ConnectionType(r.Type),
		Host:           r.Host,
		Port:           r.Port,
		Database:       r.Database,
		Username:       r.Username,
		Password:       r.Password,
		BaseURL:        r.BaseURL,
		Options:        r.Options,
		PoolMinSize:    r.PoolMinSize,
		PoolMaxSize:    r.PoolMaxSize,
		ConnectTimeout: time.Duration(r.ConnectTimeoutSeconds) * time.Second,
		QueryTimeout:   time.Duration(r.QueryTimeoutSeconds) * time.Second,
		RetryAttempts:  r.RetryAttempts,
		RetryBaseDelay: time.Duration(r.RetryBaseDelaySeconds) * time.Second,
	}
}

// QueryRequest contains a query to run on a registered connection.
type QueryRequest struct {
	Query string `json:"query" binding:"required"`
	Args  []any  `json:"args"`
}

// Validate checks if the query request is valid.
func (r *QueryRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Query, validation.Required),
	)
}
