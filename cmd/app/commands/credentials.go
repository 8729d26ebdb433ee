package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/vaultcore/vaultcore/internal/app"
	"github.com/vaultcore/vaultcore/internal/config"
)

// RunStoreCredentials encrypts and stores credentials for a connection id.
func RunStoreCredentials(ctx context.Context, out io.Writer, connectionID, username, password string) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	store, err := container.SecureStorage()
	if err != nil {
		return fmt.Errorf("failed to initialize secure storage: %w", err)
	}

	credentials := map[string]any{
		"username": username,
		"password": password,
	}
	if err := store.StoreConnectionCredentials(ctx, connectionID, credentials); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	fmt.Fprintf(out, "credentials stored for connection %q\n", connectionID)
	return nil
}

// RunRetrieveCredentials decrypts and prints stored credentials as JSON.
func RunRetrieveCredentials(ctx context.Context, out io.Writer, connectionID string) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	store, err := container.SecureStorage()
	if err != nil {
		return fmt.Errorf("failed to initialize secure storage: %w", err)
	}

	credentials, err := store.RetrieveConnectionCredentials(ctx, connectionID)
	if err != nil {
		return fmt.Errorf("failed to retrieve credentials: %w", err)
	}

	encoded, err := json.Marshal(credentials)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	fmt.Fprintln(out, string(encoded))
	return nil
}

// RunDeleteCredentials removes stored credentials for a connection id.
func RunDeleteCredentials(ctx context.Context, out io.Writer, connectionID string) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	store, err := container.SecureStorage()
	if err != nil {
		return fmt.Errorf("failed to initialize secure storage: %w", err)
	}

	if err := store.DeleteConnectionCredentials(ctx, connectionID); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}

	fmt.Fprintf(out, "credentials deleted for connection %q\n", connectionID)
	return nil
}
