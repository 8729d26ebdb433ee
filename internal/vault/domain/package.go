package domain

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// EncryptedPackage is the self-describing envelope produced by the vault.
//
// The envelope records everything needed to decrypt the payload later:
// which key id and key version to derive, which algorithm was used, the
// nonce, and the additional authenticated data that binds the metadata to
// the ciphertext. It is serialized as JSON and base64-wrapped into a single
// opaque string, so callers can store it anywhere a string fits.
//
// The aad field is itself passed to the AEAD as associated data, so any
// tampering with the key id, key version, or timestamp it encodes is
// detected at decryption time. Packages are immutable: created by Encrypt,
// consumed by Decrypt.
type EncryptedPackage struct {
	Version    int       `json:"version"`
	KeyID      string    `json:"key_id"`
	KeyVersion uint      `json:"key_version"`
	Algorithm  Algorithm `json:"algorithm"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
	AAD        []byte    `json:"aad"`
	Timestamp  int64     `json:"timestamp"`
}

// BuildAAD returns the canonical associated-data bytes for a package.
//
// The layout is a fixed-order JSON object so the same inputs always produce
// the same bytes; json.Marshal of a map would not guarantee that.
func BuildAAD(keyID string, keyVersion uint, timestamp int64) []byte {
	return fmt.Appendf(nil, `{"key_id":%q,"key_version":%d,"timestamp":%d}`, keyID, keyVersion, timestamp)
}

// VerifyAAD reports whether the package's embedded aad matches the canonical
// aad rebuilt from its own metadata fields. A mismatch means the envelope
// metadata was edited independently of the aad and the package must be
// rejected before any key derivation happens.
func (p *EncryptedPackage) VerifyAAD() bool {
	return bytes.Equal(p.AAD, BuildAAD(p.KeyID, p.KeyVersion, p.Timestamp))
}

// Encode serializes the package to its opaque string form:
// base64(JSON envelope).
func (p *EncryptedPackage) Encode() (string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}
	return base64.StdEncoding.EncodeToString(body), nil
}

// DecodePackage parses the opaque string form back into an EncryptedPackage.
//
// Returns ErrInvalidPackage when the base64 wrapper or JSON body is
// unparsable, or when a required field (key_id, nonce, ciphertext, aad)
// is missing.
func DecodePackage(encoded string) (*EncryptedPackage, error) {
	body, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 wrapper: %v", ErrInvalidPackage, err)
	}

	var pkg EncryptedPackage
	if err := json.Unmarshal(body, &pkg); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON envelope: %v", ErrInvalidPackage, err)
	}

	switch {
	case pkg.KeyID == "":
		return nil, fmt.Errorf("%w: missing key_id", ErrInvalidPackage)
	case len(pkg.Nonce) == 0:
		return nil, fmt.Errorf("%w: missing nonce", ErrInvalidPackage)
	case len(pkg.Ciphertext) == 0:
		return nil, fmt.Errorf("%w: missing ciphertext", ErrInvalidPackage)
	case len(pkg.AAD) == 0:
		return nil, fmt.Errorf("%w: missing aad", ErrInvalidPackage)
	}

	return &pkg, nil
}
