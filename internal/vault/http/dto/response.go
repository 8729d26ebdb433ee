package dto

import (
	vaultService "github.com/vaultcore/vaultcore/internal/vault/service"
)

// EncryptResponse returns the opaque package string for an encrypted payload.
type EncryptResponse struct {
	Package string `json:"package"`
	KeyID   string `json:"key_id"`
}

// DecryptResponse returns the decrypted payload.
type DecryptResponse struct {
	Data any `json:"data"`
}

// KeyInfoResponse describes one key id's current state.
type KeyInfoResponse struct {
	KeyID     string `json:"key_id"`
	Version   uint   `json:"version"`
	Algorithm string `json:"algorithm"`
}

// MapKeyInfoResponse converts a service KeyInfo to its response form.
func MapKeyInfoResponse(info vaultService.KeyInfo) KeyInfoResponse {
	return KeyInfoResponse{
		KeyID:     info.KeyID,
		Version:   info.Version,
		Algorithm: string(info.Algorithm),
	}
}

// ListKeysResponse lists the known key ids.
type ListKeysResponse struct {
	Keys []string `json:"keys"`
}
