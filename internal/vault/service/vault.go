package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	vaultDomain "github.com/vaultcore/vaultcore/internal/vault/domain"
)

// subkeyRef addresses one derived subkey in the in-memory cache.
type subkeyRef struct {
	keyID   string
	version uint
}

// VaultService implements the Vault interface.
//
// It owns all key material: the master key lives in protected memory, and
// derived subkeys are cached per (key id, version) so PBKDF2 runs once per
// pair instead of once per operation. Because derivation is deterministic,
// the cache is just an optimization since any subkey can be re-derived on
// demand, including old versions after a rotation or a process restart.
//
// The service is safe for concurrent use; the version table and subkey
// cache are guarded by a single RWMutex.
type VaultService struct {
	masterKey *vaultDomain.MasterKey
	deriver   KeyDeriver
	aead      AEADManager
	algorithm vaultDomain.Algorithm
	logger    *slog.Logger

	mu       sync.RWMutex
	versions map[string]uint
	cache    map[subkeyRef][]byte
}

// NewVault creates a VaultService. The algorithm selects the AEAD used for
// new packages; an empty value falls back to AES-256-GCM. Decryption always
// honors the algorithm recorded in the package itself.
func NewVault(
	masterKey *vaultDomain.MasterKey,
	deriver KeyDeriver,
	aeadManager AEADManager,
	algorithm vaultDomain.Algorithm,
	logger *slog.Logger,
) *VaultService {
	if algorithm == "" {
		algorithm = vaultDomain.AESGCM
	}
	return &VaultService{
		masterKey: masterKey,
		deriver:   deriver,
		aead:      aeadManager,
		algorithm: algorithm,
		logger:    logger,
		versions:  make(map[string]uint),
		cache:     make(map[subkeyRef][]byte),
	}
}

// Encrypt serializes and encrypts data under the current version of keyID.
//
// Strings are encrypted as raw UTF-8 bytes; any other value is JSON
// serialized first. The resulting package embeds key id, key version,
// algorithm, and timestamp, and binds them to the ciphertext through the
// AEAD's associated data.
func (v *VaultService) Encrypt(ctx context.Context, data any, keyID string) (string, error) {
	if keyID == "" {
		keyID = vaultDomain.DefaultKeyID
	}

	plaintext, err := serializePayload(data)
	if err != nil {
		return "", err
	}

	version := v.currentVersion(keyID)

	key, err := v.subkey(keyID, version)
	if err != nil {
		return "", err
	}

	cipher, err := v.aead.CreateCipher(key, v.algorithm)
	if err != nil {
		return "", err
	}

	timestamp := time.Now().Unix()
	aad := vaultDomain.BuildAAD(keyID, version, timestamp)

	ciphertext, nonce, err := cipher.Encrypt(plaintext, aad)
	if err != nil {
		return "", fmt.Errorf("%w: %v", vaultDomain.ErrEncryptionFailed, err)
	}

	pkg := &vaultDomain.EncryptedPackage{
		Version:    vaultDomain.PackageFormatVersion,
		KeyID:      keyID,
		KeyVersion: version,
		Algorithm:  v.algorithm,
		Nonce:      nonce,
		Ciphertext: ciphertext,
		AAD:        aad,
		Timestamp:  timestamp,
	}

	return pkg.Encode()
}

// Decrypt parses and decrypts a package string produced by Encrypt.
//
// The subkey for the embedded (key id, key version) is derived on demand,
// so packages encrypted before a restart or under a pre-rotation version
// stay readable as long as the master key is unchanged. Tampering with the
// ciphertext, nonce, or metadata fails authentication and returns
// ErrDecryptionFailed; no partial plaintext is ever returned.
func (v *VaultService) Decrypt(ctx context.Context, packaged string) (any, error) {
	pkg, err := vaultDomain.DecodePackage(packaged)
	if err != nil {
		return nil, err
	}

	// Reject envelopes whose metadata was edited independently of the aad
	// before spending any cycles on key derivation.
	if !pkg.VerifyAAD() {
		return nil, vaultDomain.ErrDecryptionFailed
	}

	key, err := v.subkey(pkg.KeyID, pkg.KeyVersion)
	if err != nil {
		return nil, err
	}

	cipher, err := v.aead.CreateCipher(key, pkg.Algorithm)
	if err != nil {
		return nil, err
	}

	plaintext, err := cipher.Decrypt(pkg.Ciphertext, pkg.Nonce, pkg.AAD)
	if err != nil {
		return nil, vaultDomain.ErrDecryptionFailed
	}

	return deserializePayload(plaintext), nil
}

// RotateKey bumps the current version for keyID and derives the new subkey
// eagerly so a bad master key surfaces here instead of at the next Encrypt.
// Old-version packages remain decryptable via on-demand derivation.
func (v *VaultService) RotateKey(ctx context.Context, keyID string) (KeyInfo, error) {
	if keyID == "" {
		keyID = vaultDomain.DefaultKeyID
	}

	v.mu.Lock()
	current, ok := v.versions[keyID]
	if !ok {
		current = vaultDomain.InitialKeyVersion
	}
	next := current + 1
	v.versions[keyID] = next
	v.mu.Unlock()

	if _, err := v.subkey(keyID, next); err != nil {
		return KeyInfo{}, err
	}

	v.logger.Info("key rotated",
		slog.String("key_id", keyID),
		slog.Uint64("version", uint64(next)),
	)

	return KeyInfo{KeyID: keyID, Version: next, Algorithm: v.algorithm}, nil
}

// ClearKey scrambles and removes all cached subkey versions for keyID.
// The key id can be used again afterwards; it simply restarts at the
// initial version.
func (v *VaultService) ClearKey(keyID string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for ref, key := range v.cache {
		if ref.keyID == keyID {
			vaultDomain.Scramble(key)
			delete(v.cache, ref)
		}
	}
	delete(v.versions, keyID)
}

// ClearAllKeys scrambles and removes every cached subkey and version record.
func (v *VaultService) ClearAllKeys() {
	v.mu.Lock()
	defer v.mu.Unlock()

	for ref, key := range v.cache {
		vaultDomain.Scramble(key)
		delete(v.cache, ref)
	}
	v.versions = make(map[string]uint)
}

// KeyInfo returns the current version and algorithm for a managed key id.
// Returns ErrKeyNotFound for ids the vault has never encrypted or rotated.
func (v *VaultService) KeyInfo(keyID string) (KeyInfo, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	version, ok := v.versions[keyID]
	if !ok {
		return KeyInfo{}, fmt.Errorf("%w: %s", vaultDomain.ErrKeyNotFound, keyID)
	}

	return KeyInfo{KeyID: keyID, Version: version, Algorithm: v.algorithm}, nil
}

// ListKeys returns the managed key ids in sorted order.
func (v *VaultService) ListKeys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	ids := make([]string, 0, len(v.versions))
	for id := range v.versions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// currentVersion returns the active version for keyID, registering the
// initial version on first use.
func (v *VaultService) currentVersion(keyID string) uint {
	v.mu.Lock()
	defer v.mu.Unlock()

	version, ok := v.versions[keyID]
	if !ok {
		version = vaultDomain.InitialKeyVersion
		v.versions[keyID] = version
	}
	return version
}

// subkey returns the derived key for (keyID, version), deriving and caching
// it when absent. The returned slice is shared with the cache and must not
// be modified by callers.
func (v *VaultService) subkey(keyID string, version uint) ([]byte, error) {
	ref := subkeyRef{keyID: keyID, version: version}

	v.mu.RLock()
	key, ok := v.cache[ref]
	v.mu.RUnlock()
	if ok {
		return key, nil
	}

	locked, err := v.masterKey.Open()
	if err != nil {
		return nil, err
	}
	defer locked.Destroy()

	if len(locked.Bytes()) == 0 {
		return nil, vaultDomain.ErrMasterKeyNotSet
	}

	derived, err := v.deriver.Derive(locked.Bytes(), keyID, version)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if cached, ok := v.cache[ref]; ok {
		// Another goroutine derived the same subkey concurrently; the
		// results are identical, keep the first one.
		vaultDomain.Scramble(derived)
		return cached, nil
	}
	v.cache[ref] = derived
	return derived, nil
}

// serializePayload converts a value to bytes: raw UTF-8 for strings, JSON
// for everything else.
func serializePayload(data any) ([]byte, error) {
	if s, ok := data.(string); ok {
		return []byte(s), nil
	}

	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: payload not serializable: %v", vaultDomain.ErrEncryptionFailed, err)
	}
	return body, nil
}

// deserializePayload reverses serializePayload on a best-effort basis:
// valid JSON is parsed, anything else comes back as a string.
func deserializePayload(plaintext []byte) any {
	var value any
	if err := json.Unmarshal(plaintext, &value); err == nil {
		return value
	}
	return string(plaintext)
}
