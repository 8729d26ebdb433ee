package service

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/vaultcore/vaultcore/internal/errors"
)

// monitor is the supervised health loop for one connection. It probes on a
// fixed interval, switching to the shorter retry delay after a failed probe,
// and exits when its context is cancelled or the id leaves the registry.
func (m *ManagerService) monitor(ctx context.Context, connectionID string) {
	defer m.monitorWG.Done()

	interval := m.opts.HealthCheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	retryDelay := m.opts.HealthRetryDelay
	if retryDelay <= 0 {
		retryDelay = 5 * time.Second
	}

	m.logger.Debug("health monitor started", slog.String("connection_id", connectionID))

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("health monitor stopped", slog.String("connection_id", connectionID))
			return
		case <-timer.C:
		}

		if _, err := m.GetMetadata(connectionID); apperrors.Is(err, apperrors.ErrNotFound) {
			return
		}

		if m.HealthCheck(ctx, connectionID) {
			timer.Reset(interval)
		} else {
			timer.Reset(retryDelay)
		}
	}
}
