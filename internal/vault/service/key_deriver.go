package service

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	vaultDomain "github.com/vaultcore/vaultcore/internal/vault/domain"
)

// DefaultPBKDF2Iterations is the iteration count for subkey derivation.
const DefaultPBKDF2Iterations = 100_000

// PBKDF2KeyDeriver implements KeyDeriver with PBKDF2-HMAC-SHA256.
//
// The salt for a (keyID, version) pair is SHA-256("{keyID}:{version}:{namespace}"),
// so derivation is fully deterministic: the same master key, key id, and
// version always yield the same 32-byte subkey. Key material is therefore
// never stored anywhere; only the current version per key id needs tracking,
// and any historical version can be re-derived on demand. The namespace keeps
// two deployments sharing a master key from deriving identical subkeys.
type PBKDF2KeyDeriver struct {
	namespace  string
	iterations int
}

// NewKeyDeriver creates a PBKDF2KeyDeriver for the given namespace. An
// iterations value <= 0 falls back to DefaultPBKDF2Iterations.
func NewKeyDeriver(namespace string, iterations int) *PBKDF2KeyDeriver {
	if iterations <= 0 {
		iterations = DefaultPBKDF2Iterations
	}
	return &PBKDF2KeyDeriver{namespace: namespace, iterations: iterations}
}

// Derive returns the 32-byte subkey for (keyID, version).
//
// PBKDF2 is CPU-bound (around 100k HMAC invocations); callers on a hot path
// should cache the result rather than re-deriving per operation. The caller
// owns the returned slice and must scrub it when done.
func (d *PBKDF2KeyDeriver) Derive(masterKey []byte, keyID string, version uint) ([]byte, error) {
	if len(masterKey) != vaultDomain.KeySize {
		return nil, vaultDomain.ErrMasterKeyNotSet
	}
	if keyID == "" {
		return nil, fmt.Errorf("%w: empty key id", vaultDomain.ErrKeyNotFound)
	}

	salt := sha256.Sum256(fmt.Appendf(nil, "%s:%d:%s", keyID, version, d.namespace))
	return pbkdf2.Key(masterKey, salt[:], d.iterations, vaultDomain.KeySize, sha256.New), nil
}
