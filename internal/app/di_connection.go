package app

import (
	"fmt"

	"github.com/vaultcore/vaultcore/internal/connection/driver"
	connHTTP "github.com/vaultcore/vaultcore/internal/connection/http"
	connService "github.com/vaultcore/vaultcore/internal/connection/service"
	"github.com/vaultcore/vaultcore/internal/storage"
)

// SecureStorage returns the encrypted credential storage instance.
func (c *Container) SecureStorage() (*storage.SecureStorage, error) {
	var err error
	c.secureStorageInit.Do(func() {
		c.secureStorage, err = c.initSecureStorage()
		if err != nil {
			c.initErrors["secureStorage"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["secureStorage"]; exists {
		return nil, storedErr
	}
	return c.secureStorage, nil
}

// ConnectionManager returns the connection manager instance.
func (c *Container) ConnectionManager() (connService.Manager, error) {
	var err error
	c.connectionManagerInit.Do(func() {
		c.connectionManager, err = c.initConnectionManager()
		if err != nil {
			c.initErrors["connectionManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["connectionManager"]; exists {
		return nil, storedErr
	}
	return c.connectionManager, nil
}

// ConnectionHandler returns the connection HTTP handler instance.
func (c *Container) ConnectionHandler() (*connHTTP.ConnectionHandler, error) {
	var err error
	c.connectionHandlerInit.Do(func() {
		c.connectionHandler, err = c.initConnectionHandler()
		if err != nil {
			c.initErrors["connectionHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["connectionHandler"]; exists {
		return nil, storedErr
	}
	return c.connectionHandler, nil
}

// initSecureStorage creates the credential storage backed by the vault.
func (c *Container) initSecureStorage() (*storage.SecureStorage, error) {
	vault, err := c.Vault()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault for secure storage: %w", err)
	}

	logger := c.Logger()

	return storage.NewSecureStorage(vault, c.config.CredentialDir, logger)
}

// initConnectionManager creates the connection manager with all its dependencies.
func (c *Container) initConnectionManager() (connService.Manager, error) {
	store, err := c.SecureStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to get secure storage for connection manager: %w", err)
	}

	logger := c.Logger()
	factory := driver.NewFactory(c.config.ConnectTimeout, c.config.QueryTimeout)

	opts := connService.Options{
		MaxConnections:      c.config.MaxConnections,
		RetryAttempts:       c.config.RetryAttempts,
		RetryBaseDelay:      c.config.RetryBaseDelay,
		PoolMinSize:         c.config.PoolMinSize,
		PoolMaxSize:         c.config.PoolMaxSize,
		HealthCheckInterval: c.config.HealthCheckInterval,
		HealthRetryDelay:    c.config.HealthRetryDelay,
	}

	baseManager := connService.NewManager(opts, factory, store, logger)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for connection manager: %w", err)
		}
		return connService.NewManagerWithMetrics(baseManager, businessMetrics), nil
	}

	return baseManager, nil
}

// initConnectionHandler creates the connection HTTP handler with all its dependencies.
func (c *Container) initConnectionHandler() (*connHTTP.ConnectionHandler, error) {
	manager, err := c.ConnectionManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection manager for connection handler: %w", err)
	}

	logger := c.Logger()

	return connHTTP.NewConnectionHandler(manager, logger), nil
}
