package app

import (
	"context"
	"fmt"

	vaultDomain "github.com/vaultcore/vaultcore/internal/vault/domain"
	vaultHTTP "github.com/vaultcore/vaultcore/internal/vault/http"
	vaultService "github.com/vaultcore/vaultcore/internal/vault/service"
)

// MasterKey returns the unwrapped master key.
//
// Loading fails when MASTER_KEY is unset or malformed; the application never
// generates a master key implicitly, so this error is fatal at startup.
func (c *Container) MasterKey() (*vaultDomain.MasterKey, error) {
	var err error
	c.masterKeyInit.Do(func() {
		c.masterKey, err = c.initMasterKey()
		if err != nil {
			c.initErrors["masterKey"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["masterKey"]; exists {
		return nil, storedErr
	}
	return c.masterKey, nil
}

// Vault returns the vault service instance.
func (c *Container) Vault() (vaultService.Vault, error) {
	var err error
	c.vaultInit.Do(func() {
		c.vault, err = c.initVault()
		if err != nil {
			c.initErrors["vault"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["vault"]; exists {
		return nil, storedErr
	}
	return c.vault, nil
}

// VaultHandler returns the vault HTTP handler instance.
func (c *Container) VaultHandler() (*vaultHTTP.VaultHandler, error) {
	var err error
	c.vaultHandlerInit.Do(func() {
		c.vaultHandler, err = c.initVaultHandler()
		if err != nil {
			c.initErrors["vaultHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["vaultHandler"]; exists {
		return nil, storedErr
	}
	return c.vaultHandler, nil
}

// initMasterKey loads the master key from configuration, unwrapping it
// through the configured KMS keeper when KMS_KEY_URI is set.
func (c *Container) initMasterKey() (*vaultDomain.MasterKey, error) {
	kms := vaultService.NewKMSService()
	masterKey, err := vaultService.LoadMasterKey(
		context.Background(),
		kms,
		c.config.MasterKey,
		c.config.KMSKeyURI,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load master key: %w", err)
	}
	return masterKey, nil
}

// initVault creates the vault service with all its dependencies.
func (c *Container) initVault() (vaultService.Vault, error) {
	masterKey, err := c.MasterKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key for vault: %w", err)
	}

	logger := c.Logger()
	deriver := vaultService.NewKeyDeriver(c.config.VaultNamespace, vaultService.DefaultPBKDF2Iterations)
	aeadManager := vaultService.NewAEADManager()

	baseVault := vaultService.NewVault(
		masterKey,
		deriver,
		aeadManager,
		vaultDomain.Algorithm(c.config.VaultAlgorithm),
		logger,
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for vault: %w", err)
		}
		return vaultService.NewVaultWithMetrics(baseVault, businessMetrics), nil
	}

	return baseVault, nil
}

// initVaultHandler creates the vault HTTP handler with all its dependencies.
func (c *Container) initVaultHandler() (*vaultHTTP.VaultHandler, error) {
	vault, err := c.Vault()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault for vault handler: %w", err)
	}

	logger := c.Logger()

	return vaultHTTP.NewVaultHandler(vault, logger), nil
}
