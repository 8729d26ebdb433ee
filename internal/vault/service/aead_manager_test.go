package service

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vaultDomain "github.com/vaultcore/vaultcore/internal/vault/domain"
)

func TestAEADManagerService_CreateCipher(t *testing.T) {
	manager := NewAEADManager()
	validKey := make([]byte, 32)
	_, err := rand.Read(validKey)
	require.NoError(t, err)

	t.Run("create AES-GCM cipher", func(t *testing.T) {
		cipher, err := manager.CreateCipher(validKey, vaultDomain.AESGCM)
		require.NoError(t, err)

		_, ok := cipher.(*AESGCMCipher)
		assert.True(t, ok, "cipher should be of type *AESGCMCipher")
	})

	t.Run("create ChaCha20-Poly1305 cipher", func(t *testing.T) {
		cipher, err := manager.CreateCipher(validKey, vaultDomain.ChaCha20)
		require.NoError(t, err)

		_, ok := cipher.(*ChaCha20Poly1305Cipher)
		assert.True(t, ok, "cipher should be of type *ChaCha20Poly1305Cipher")
	})

	t.Run("unsupported algorithm", func(t *testing.T) {
		_, err := manager.CreateCipher(validKey, vaultDomain.Algorithm("unsupported"))
		assert.ErrorIs(t, err, vaultDomain.ErrUnsupportedAlgorithm)
	})

	t.Run("invalid key sizes", func(t *testing.T) {
		for _, size := range []int{0, 16, 64} {
			_, err := manager.CreateCipher(make([]byte, size), vaultDomain.AESGCM)
			assert.ErrorIs(t, err, vaultDomain.ErrInvalidKeySize)
		}
	})
}

func TestCiphersRoundTrip(t *testing.T) {
	manager := NewAEADManager()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	for _, alg := range []vaultDomain.Algorithm{vaultDomain.AESGCM, vaultDomain.ChaCha20} {
		t.Run(string(alg), func(t *testing.T) {
			cipher, err := manager.CreateCipher(key, alg)
			require.NoError(t, err)

			plaintext := []byte("payload under test")
			aad := []byte(`{"key_id":"x"}`)

			ciphertext, nonce, err := cipher.Encrypt(plaintext, aad)
			require.NoError(t, err)
			assert.Len(t, nonce, 12)
			assert.NotEqual(t, plaintext, ciphertext)

			decrypted, err := cipher.Decrypt(ciphertext, nonce, aad)
			require.NoError(t, err)
			assert.Equal(t, plaintext, decrypted)

			t.Run("wrong aad fails", func(t *testing.T) {
				_, err := cipher.Decrypt(ciphertext, nonce, []byte("other"))
				assert.Error(t, err)
			})

			t.Run("nonces are unique per call", func(t *testing.T) {
				_, nonce2, err := cipher.Encrypt(plaintext, aad)
				require.NoError(t, err)
				assert.NotEqual(t, nonce, nonce2)
			})
		})
	}
}
