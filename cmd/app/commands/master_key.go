package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	vaultDomain "github.com/vaultcore/vaultcore/internal/vault/domain"
	vaultService "github.com/vaultcore/vaultcore/internal/vault/service"
)

// RunGenerateMasterKey generates a cryptographically secure 32-byte master key.
// Key material is zeroed from memory after encoding.
//
// Without a KMS key URI the raw base64 key is printed for MASTER_KEY. With a
// KMS key URI the key is wrapped through the configured keeper first and the
// printed MASTER_KEY holds the base64 ciphertext; the raw key then never
// appears in the environment.
//
// For local development, use kmsKeyURI="base64key://<32-byte-base64-key>".
// For production, use cloud KMS providers (gcpkms, awskms, azurekeyvault,
// hashivault).
func RunGenerateMasterKey(ctx context.Context, kms vaultService.KMSService, out io.Writer, kmsKeyURI string) error {
	// Generate a cryptographically secure 32-byte master key
	masterKey := make([]byte, vaultDomain.KeySize)
	if _, err := rand.Read(masterKey); err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}
	defer func() {
		for i := range masterKey {
			masterKey[i] = 0
		}
	}()

	if kmsKeyURI == "" {
		fmt.Fprintln(out, "# Master Key Configuration")
		fmt.Fprintln(out, "# Copy these environment variables to your .env file or secrets manager")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "MASTER_KEY=%q\n", base64.StdEncoding.EncodeToString(masterKey))
		return nil
	}

	keeperInterface, err := kms.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeperInterface.Close(); closeErr != nil {
			fmt.Fprintf(out, "# Warning: failed to close KMS keeper: %v\n", closeErr)
		}
	}()

	// The unwrap-only Keeper interface is enough for server startup; wrapping
	// a new key additionally needs Encrypt.
	keeper, ok := keeperInterface.(interface {
		Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	})
	if !ok {
		return fmt.Errorf("KMS keeper does not support encryption")
	}

	ciphertext, err := keeper.Encrypt(ctx, masterKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt master key with KMS: %w", err)
	}

	fmt.Fprintln(out, "# Master Key Configuration (KMS Mode)")
	fmt.Fprintln(out, "# Copy these environment variables to your .env file or secrets manager")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "KMS_KEY_URI=%q\n", kmsKeyURI)
	fmt.Fprintf(out, "MASTER_KEY=%q\n", base64.StdEncoding.EncodeToString(ciphertext))

	return nil
}
