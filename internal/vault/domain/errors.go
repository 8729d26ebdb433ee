package domain

import (
	"github.com/vaultcore/vaultcore/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for cryptographic failures. All errors are mapped to
// appropriate HTTP status codes by the error handling layer.
var (
	// ErrMasterKeyNotSet indicates no master key is configured.
	//
	// A missing master key is a fatal configuration error: the service never
	// generates one on the fly, because silently generated keys make every
	// stored package unrecoverable after a restart.
	ErrMasterKeyNotSet = errors.Wrap(errors.ErrInvalidInput, "master key not set")

	// ErrInvalidMasterKeyBase64 indicates the configured master key is not valid base64.
	ErrInvalidMasterKeyBase64 = errors.Wrap(errors.ErrInvalidInput, "invalid master key base64")

	// ErrInvalidKeySize indicates a cryptographic key is not exactly 32 bytes.
	//
	// The master key and every derived subkey must be 256 bits for both
	// AES-256-GCM and ChaCha20-Poly1305.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is not supported.
	//
	// Supported algorithms: AESGCM (AES-256-GCM), ChaCha20 (ChaCha20-Poly1305).
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidPackage indicates an encrypted package envelope is malformed.
	//
	// Returned when the base64 wrapper, the JSON body, or a required field
	// (key_id, nonce, ciphertext, aad) is missing or unparsable.
	ErrInvalidPackage = errors.Wrap(errors.ErrInvalidInput, "invalid encrypted package")

	// ErrKeyNotFound indicates the requested key id has no derived material.
	ErrKeyNotFound = errors.Wrap(errors.ErrNotFound, "key not found")

	// ErrEncryptionFailed indicates an encryption operation failed.
	ErrEncryptionFailed = errors.Wrap(errors.ErrInvalidInput, "encryption failed")

	// ErrDecryptionFailed indicates a decryption operation failed.
	//
	// This error can occur due to:
	//   - Wrong key material (different master key or namespace)
	//   - Ciphertext, nonce, or aad has been tampered with (authentication failure)
	//   - Corrupted encrypted data
	//
	// For security reasons, the specific cause is not disclosed to prevent
	// information leakage that could aid attackers.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")
)
