package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/vaultcore/vaultcore/internal/app"
	"github.com/vaultcore/vaultcore/internal/config"
)

// RunEncrypt encrypts data under the given key id and prints the encoded package.
// Uses the master key from the environment; the key version is whatever is
// current for the key id in this process (version 1 unless rotated earlier).
func RunEncrypt(ctx context.Context, out io.Writer, keyID, data string) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	vault, err := container.Vault()
	if err != nil {
		return fmt.Errorf("failed to initialize vault: %w", err)
	}

	packaged, err := vault.Encrypt(ctx, data, keyID)
	if err != nil {
		return fmt.Errorf("failed to encrypt: %w", err)
	}

	fmt.Fprintln(out, packaged)
	return nil
}

// RunDecrypt decrypts an encoded package and prints the plaintext. String
// payloads are printed raw; structured payloads are printed as JSON.
func RunDecrypt(ctx context.Context, out io.Writer, packaged string) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	vault, err := container.Vault()
	if err != nil {
		return fmt.Errorf("failed to initialize vault: %w", err)
	}

	data, err := vault.Decrypt(ctx, packaged)
	if err != nil {
		return fmt.Errorf("failed to decrypt: %w", err)
	}

	if s, ok := data.(string); ok {
		fmt.Fprintln(out, s)
		return nil
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode decrypted data: %w", err)
	}
	fmt.Fprintln(out, string(encoded))
	return nil
}

// RunRotateKey bumps the key version for a key id and prints the new version.
//
// Subkeys are derived on demand from the master key, so rotation is a version
// bump: new packages use the new version while old packages remain readable.
// Rotation state lives in process memory; against a running server use the
// rotate endpoint instead.
func RunRotateKey(ctx context.Context, out io.Writer, keyID string) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	vault, err := container.Vault()
	if err != nil {
		return fmt.Errorf("failed to initialize vault: %w", err)
	}

	info, err := vault.RotateKey(ctx, keyID)
	if err != nil {
		return fmt.Errorf("failed to rotate key: %w", err)
	}

	fmt.Fprintf(out, "key %q rotated to version %d\n", info.KeyID, info.Version)
	return nil
}
