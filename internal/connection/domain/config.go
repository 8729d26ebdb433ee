package domain

import (
	"time"

	validation "github.com/jellydator/validation"

	appvalidation "github.com/vaultcore/vaultcore/internal/validation"
)

// ConnectionConfig describes a connection to create. Secret fields are held
// only transiently: the manager hands them to secure storage and the config
// kept in memory afterwards is the redacted copy.
type ConnectionConfig struct {
	ID       string            `json:"id"`
	Type     ConnectionType    `json:"type"`
	Host     string            `json:"host,omitempty"`
	Port     int               `json:"port,omitempty"`
	Database string            `json:"database,omitempty"`
	Username string            `json:"username,omitempty"`
	Password string            `json:"password,omitempty"`
	BaseURL  string            `json:"base_url,omitempty"`
	Options  map[string]string `json:"options,omitempty"`

	// Optional per-connection overrides. Zero values fall back to the
	// manager's configured defaults.
	PoolMinSize    int           `json:"pool_min_size,omitempty"`
	PoolMaxSize    int           `json:"pool_max_size,omitempty"`
	ConnectTimeout time.Duration `json:"connect_timeout,omitempty"`
	QueryTimeout   time.Duration `json:"query_timeout,omitempty"`
	RetryAttempts  int           `json:"retry_attempts,omitempty"`
	RetryBaseDelay time.Duration `json:"retry_base_delay,omitempty"`
}

// Validate checks the config for structural problems. Type-specific fields
// are required only for the types that use them.
func (c *ConnectionConfig) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.ID,
			validation.Required,
			appvalidation.Identifier,
			validation.Length(1, 128),
		),
		validation.Field(&c.Type,
			validation.Required,
			validation.In(TypePostgres, TypeMySQL, TypeMongoDB, TypeHTTP),
		),
		validation.Field(&c.Host,
			validation.Required.When(c.Type != TypeHTTP),
			appvalidation.NoWhitespace,
		),
		validation.Field(&c.Port,
			validation.When(c.Type != TypeHTTP,
				validation.Required,
				validation.Min(1),
				validation.Max(65535),
			),
		),
		validation.Field(&c.BaseURL,
			validation.Required.When(c.Type == TypeHTTP),
		),
		validation.Field(&c.PoolMinSize, validation.Min(0)),
		validation.Field(&c.PoolMaxSize, validation.Min(0)),
		validation.Field(&c.RetryAttempts, validation.Min(0)),
	)
	if err == nil && c.PoolMaxSize > 0 && c.PoolMinSize > c.PoolMaxSize {
		err = validation.NewError("validation_pool_sizing", "pool_min_size must not exceed pool_max_size")
	}
	return appvalidation.WrapValidationError(err)
}

// Credentials returns the secret parts of the config as a mapping suitable
// for encrypted storage.
func (c *ConnectionConfig) Credentials() map[string]any {
	return map[string]any{
		"username": c.Username,
		"password": c.Password,
	}
}

// Redacted returns a copy of the config with secret fields blanked.
func (c *ConnectionConfig) Redacted() ConnectionConfig {
	redacted := *c
	redacted.Password = ""
	return redacted
}
