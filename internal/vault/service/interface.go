// Package service implements the vault's cryptographic engine: AEAD ciphers,
// deterministic subkey derivation, and the envelope encrypt/decrypt/rotate
// operations built on top of them.
package service

import (
	"context"

	vaultDomain "github.com/vaultcore/vaultcore/internal/vault/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg vaultDomain.Algorithm) (AEAD, error)
}

// KeyDeriver derives deterministic per-(keyID, version) subkeys from the
// master key. The same inputs always produce the same subkey, so derived
// keys never need to be persisted.
type KeyDeriver interface {
	// Derive returns a 32-byte subkey for (keyID, version). The caller owns
	// the returned slice and must scrub it when done.
	Derive(masterKey []byte, keyID string, version uint) ([]byte, error)
}

// KeyInfo is the read-only introspection record for a key id.
type KeyInfo struct {
	KeyID     string                `json:"key_id"`
	Version   uint                  `json:"version"`
	Algorithm vaultDomain.Algorithm `json:"algorithm"`
}

// Vault is the authenticated encryption engine for opaque payloads.
//
// Payloads are addressable by a caller-chosen key id namespace (e.g., one id
// per stored credential). Rotation is a pure version bump: old versions stay
// decryptable because derivation is deterministic.
type Vault interface {
	// Encrypt serializes data (JSON for structured values, UTF-8 for strings),
	// encrypts it under the current version of keyID, and returns the opaque
	// package string.
	Encrypt(ctx context.Context, data any, keyID string) (string, error)

	// Decrypt parses a package string, derives the embedded (key id, version)
	// subkey on demand, authenticates and decrypts, and returns the original
	// value (JSON-parsed when possible, string otherwise).
	Decrypt(ctx context.Context, packaged string) (any, error)

	// RotateKey bumps the current version for keyID and returns the new info.
	RotateKey(ctx context.Context, keyID string) (KeyInfo, error)

	// ClearKey scrambles and removes all cached material for keyID.
	ClearKey(keyID string)

	// ClearAllKeys scrambles and removes every cached subkey.
	ClearAllKeys()

	// KeyInfo returns version and algorithm info for a known key id.
	KeyInfo(keyID string) (KeyInfo, error)

	// ListKeys returns the known key ids in sorted order.
	ListKeys() []string
}
