package domain

import (
	"encoding/base64"
	"fmt"

	"github.com/awnumar/memguard"

	"github.com/vaultcore/vaultcore/internal/secure"
)

// MasterKey is the process-wide root secret for subkey derivation.
//
// The raw key bytes live inside a protected memory enclave and are only
// decrypted into a locked buffer for the duration of a single derivation.
// The key is never persisted in plaintext and is wiped on Close.
//
// Security considerations:
//   - The key must be exactly 32 bytes (256 bits)
//   - Production deployments should supply it KMS-wrapped (see the vault
//     service's KMS keeper) rather than as a raw environment value
//   - A missing master key is a fatal startup error, never a
//     generate-and-continue path
type MasterKey struct {
	buf *secure.Buffer
}

// NewMasterKey copies raw key material into protected memory. The input
// slice is scrubbed before returning so the caller's copy never outlives
// the construction.
//
// Returns ErrInvalidKeySize when the key is not exactly 32 bytes.
func NewMasterKey(raw []byte) (*MasterKey, error) {
	if len(raw) != KeySize {
		Zero(raw)
		return nil, fmt.Errorf("%w: master key must be %d bytes, got %d", ErrInvalidKeySize, KeySize, len(raw))
	}

	mk := &MasterKey{buf: secure.NewBuffer(raw)}
	Zero(raw)
	return mk, nil
}

// ParseMasterKey decodes a base64-encoded master key and stores it in
// protected memory.
//
// Returns:
//   - ErrMasterKeyNotSet if value is empty
//   - ErrInvalidMasterKeyBase64 if decoding fails
//   - ErrInvalidKeySize if the decoded key is not 32 bytes
func ParseMasterKey(value string) (*MasterKey, error) {
	if value == "" {
		return nil, ErrMasterKeyNotSet
	}

	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMasterKeyBase64, err)
	}

	return NewMasterKey(raw)
}

// Open decrypts the key into a locked buffer. The caller MUST call Destroy
// on the returned buffer as soon as the derivation using it completes.
//
// After Close, the returned buffer is empty; callers should treat a
// zero-length key as ErrMasterKeyNotSet.
func (m *MasterKey) Open() (*memguard.LockedBuffer, error) {
	if m == nil || m.buf == nil {
		return nil, ErrMasterKeyNotSet
	}
	return m.buf.Open()
}

// Close wipes the protected key material. Subsequent derivations fail with
// ErrMasterKeyNotSet. Safe to call more than once.
func (m *MasterKey) Close() {
	if m == nil || m.buf == nil {
		return
	}
	m.buf.Destroy()
}
