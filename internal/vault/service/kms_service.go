package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	vaultDomain "github.com/vaultcore/vaultcore/internal/vault/domain"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// Keeper is the subset of gocloud's secrets.Keeper the vault needs to
// unwrap a KMS-wrapped master key.
type Keeper interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// KMSService opens secrets keepers for master-key wrapping.
//
// Supported URI schemes: gcpkms://, awskms://, azurekeyvault://,
// hashivault://, base64key:// (local development only).
type KMSService interface {
	// OpenKeeper opens a keeper for the configured KMS provider URI.
	OpenKeeper(ctx context.Context, keyURI string) (Keeper, error)
}

// kmsService implements KMSService using gocloud.dev/secrets.
type kmsService struct{}

// NewKMSService creates a new KMS service instance.
func NewKMSService() KMSService {
	return &kmsService{}
}

// OpenKeeper opens a secrets.Keeper for the configured KMS provider.
func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (Keeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// LoadMasterKey builds the process master key from configuration.
//
// With an empty kmsKeyURI, encodedKey is the raw base64 master key. With a
// kmsKeyURI, encodedKey is a base64 KMS ciphertext that is unwrapped through
// the keeper first; this is the recommended production path since the raw
// key then never appears in the environment.
//
// A missing key is a fatal configuration error (ErrMasterKeyNotSet); the
// vault never generates a master key implicitly.
func LoadMasterKey(ctx context.Context, kms KMSService, encodedKey, kmsKeyURI string) (*vaultDomain.MasterKey, error) {
	if encodedKey == "" {
		return nil, vaultDomain.ErrMasterKeyNotSet
	}

	if kmsKeyURI == "" {
		return vaultDomain.ParseMasterKey(encodedKey)
	}

	wrapped, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vaultDomain.ErrInvalidMasterKeyBase64, err)
	}

	keeper, err := kms.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = keeper.Close()
	}()

	raw, err := keeper.Decrypt(ctx, wrapped)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap master key: %w", err)
	}

	return vaultDomain.NewMasterKey(raw)
}
