package domain

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMasterKey(t *testing.T) {
	t.Run("accepts 32-byte key and scrubs the input", func(t *testing.T) {
		raw := make([]byte, KeySize)
		_, err := rand.Read(raw)
		require.NoError(t, err)

		mk, err := NewMasterKey(raw)
		require.NoError(t, err)
		defer mk.Close()

		assert.Equal(t, make([]byte, KeySize), raw, "input slice should be zeroed")

		locked, err := mk.Open()
		require.NoError(t, err)
		defer locked.Destroy()
		assert.Len(t, locked.Bytes(), KeySize)
	})

	t.Run("rejects wrong key size", func(t *testing.T) {
		_, err := NewMasterKey(make([]byte, 16))
		assert.ErrorIs(t, err, ErrInvalidKeySize)
	})
}

func TestParseMasterKey(t *testing.T) {
	t.Run("parses base64 key", func(t *testing.T) {
		raw := make([]byte, KeySize)
		_, err := rand.Read(raw)
		require.NoError(t, err)
		encoded := base64.StdEncoding.EncodeToString(raw)

		mk, err := ParseMasterKey(encoded)
		require.NoError(t, err)
		defer mk.Close()

		locked, err := mk.Open()
		require.NoError(t, err)
		defer locked.Destroy()
		assert.Equal(t, raw, locked.Bytes())
	})

	t.Run("empty value is a configuration error", func(t *testing.T) {
		_, err := ParseMasterKey("")
		assert.ErrorIs(t, err, ErrMasterKeyNotSet)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := ParseMasterKey("not-base64!!!")
		assert.ErrorIs(t, err, ErrInvalidMasterKeyBase64)
	})

	t.Run("wrong decoded size", func(t *testing.T) {
		_, err := ParseMasterKey(base64.StdEncoding.EncodeToString([]byte("short")))
		assert.ErrorIs(t, err, ErrInvalidKeySize)
	})
}

func TestMasterKeyClose(t *testing.T) {
	raw := make([]byte, KeySize)
	mk, err := NewMasterKey(raw)
	require.NoError(t, err)

	mk.Close()
	mk.Close() // idempotent

	locked, err := mk.Open()
	require.NoError(t, err)
	defer locked.Destroy()
	assert.Empty(t, locked.Bytes())
}
