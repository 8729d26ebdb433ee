// Package storage persists per-connection credential blobs encrypted by the
// vault. One file per connection id, named credentials_<id>.enc, containing
// the vault's opaque package string. All cryptography is delegated to the
// vault; this package owns only file paths and scrubbing.
package storage

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	apperrors "github.com/vaultcore/vaultcore/internal/errors"
	vaultService "github.com/vaultcore/vaultcore/internal/vault/service"
)

// Storage error definitions.
var (
	// ErrCredentialsNotFound indicates there is no credential file for the
	// connection id.
	ErrCredentialsNotFound = apperrors.Wrap(apperrors.ErrNotFound, "credentials not found")

	// ErrInvalidConnectionID indicates the connection id cannot be used as a
	// file name component.
	ErrInvalidConnectionID = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid connection id")

	// ErrInvalidCredentials indicates the decrypted payload is not a
	// credential mapping.
	ErrInvalidCredentials = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid credential payload")
)

// connectionIDPattern limits ids to path-safe characters.
var connectionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// SecureStorage stores encrypted credential mappings on the local filesystem.
type SecureStorage struct {
	vault  vaultService.Vault
	dir    string
	logger *slog.Logger
}

// NewSecureStorage creates the credential directory (0700) if needed and
// returns a SecureStorage backed by the given vault.
func NewSecureStorage(vault vaultService.Vault, dir string, logger *slog.Logger) (*SecureStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}
	return &SecureStorage{vault: vault, dir: dir, logger: logger}, nil
}

// StoreConnectionCredentials encrypts the mapping under key id
// "conn_<connectionID>" and writes the package to the credential file,
// silently replacing any prior file for the same id.
func (s *SecureStorage) StoreConnectionCredentials(
	ctx context.Context,
	connectionID string,
	credentials map[string]any,
) error {
	if !connectionIDPattern.MatchString(connectionID) {
		return fmt.Errorf("%w: %q", ErrInvalidConnectionID, connectionID)
	}

	packaged, err := s.vault.Encrypt(ctx, credentials, credentialKeyID(connectionID))
	if err != nil {
		return err
	}

	if err := os.WriteFile(s.credentialPath(connectionID), []byte(packaged), 0o600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}

	s.logger.Debug("credentials stored", slog.String("connection_id", connectionID))
	return nil
}

// RetrieveConnectionCredentials reads and decrypts the credential file for
// the connection id. Returns ErrCredentialsNotFound when no file exists.
func (s *SecureStorage) RetrieveConnectionCredentials(
	ctx context.Context,
	connectionID string,
) (map[string]any, error) {
	if !connectionIDPattern.MatchString(connectionID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidConnectionID, connectionID)
	}

	packaged, err := os.ReadFile(s.credentialPath(connectionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, connectionID)
		}
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	decrypted, err := s.vault.Decrypt(ctx, string(packaged))
	if err != nil {
		return nil, err
	}

	credentials, ok := decrypted.(map[string]any)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return credentials, nil
}

// DeleteConnectionCredentials overwrites the credential file with random
// bytes before unlinking it, then clears the connection's vault key from
// memory. Returns ErrCredentialsNotFound when no file exists.
func (s *SecureStorage) DeleteConnectionCredentials(ctx context.Context, connectionID string) error {
	if !connectionIDPattern.MatchString(connectionID) {
		return fmt.Errorf("%w: %q", ErrInvalidConnectionID, connectionID)
	}

	path := s.credentialPath(connectionID)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrCredentialsNotFound, connectionID)
		}
		return fmt.Errorf("failed to stat credential file: %w", err)
	}

	// Scrub before unlink so the blob cannot be recovered from the free
	// blocks. Best effort: a failed scrub does not block removal.
	noise := make([]byte, info.Size())
	if _, err := rand.Read(noise); err == nil {
		_ = os.WriteFile(path, noise, 0o600)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}

	s.vault.ClearKey(credentialKeyID(connectionID))

	s.logger.Info("credentials deleted", slog.String("connection_id", connectionID))
	return nil
}

// credentialPath returns the file path for a connection id.
func (s *SecureStorage) credentialPath(connectionID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("credentials_%s.enc", connectionID))
}

// credentialKeyID returns the vault key id for a connection id.
func credentialKeyID(connectionID string) string {
	return "conn_" + connectionID
}
