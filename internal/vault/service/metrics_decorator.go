package service

import (
	"context"
	"time"

	"github.com/vaultcore/vaultcore/internal/metrics"
)

// vaultWithMetrics decorates Vault with metrics instrumentation.
type vaultWithMetrics struct {
	next    Vault
	metrics metrics.BusinessMetrics
}

// NewVaultWithMetrics wraps a Vault with metrics recording.
func NewVaultWithMetrics(vault Vault, m metrics.BusinessMetrics) Vault {
	return &vaultWithMetrics{
		next:    vault,
		metrics: m,
	}
}

// Encrypt records metrics for encryption operations.
func (v *vaultWithMetrics) Encrypt(ctx context.Context, data any, keyID string) (string, error) {
	start := time.Now()
	packaged, err := v.next.Encrypt(ctx, data, keyID)

	status := "success"
	if err != nil {
		status = "error"
	}

	v.metrics.RecordOperation(ctx, "vault", "encrypt", status)
	v.metrics.RecordDuration(ctx, "vault", "encrypt", time.Since(start), status)

	return packaged, err
}

// Decrypt records metrics for decryption operations.
func (v *vaultWithMetrics) Decrypt(ctx context.Context, packaged string) (any, error) {
	start := time.Now()
	data, err := v.next.Decrypt(ctx, packaged)

	status := "success"
	if err != nil {
		status = "error"
	}

	v.metrics.RecordOperation(ctx, "vault", "decrypt", status)
	v.metrics.RecordDuration(ctx, "vault", "decrypt", time.Since(start), status)

	return data, err
}

// RotateKey records metrics for key rotation operations.
func (v *vaultWithMetrics) RotateKey(ctx context.Context, keyID string) (KeyInfo, error) {
	start := time.Now()
	info, err := v.next.RotateKey(ctx, keyID)

	status := "success"
	if err != nil {
		status = "error"
	}

	v.metrics.RecordOperation(ctx, "vault", "key_rotate", status)
	v.metrics.RecordDuration(ctx, "vault", "key_rotate", time.Since(start), status)

	return info, err
}

// ClearKey passes through without instrumentation.
func (v *vaultWithMetrics) ClearKey(keyID string) {
	v.next.ClearKey(keyID)
}

// ClearAllKeys passes through without instrumentation.
func (v *vaultWithMetrics) ClearAllKeys() {
	v.next.ClearAllKeys()
}

// KeyInfo passes through without instrumentation.
func (v *vaultWithMetrics) KeyInfo(keyID string) (KeyInfo, error) {
	return v.next.KeyInfo(keyID)
}

// ListKeys passes through without instrumentation.
func (v *vaultWithMetrics) ListKeys() []string {
	return v.next.ListKeys()
}
