package service

import (
	"context"
	"log/slog"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	connDomain "github.com/vaultcore/vaultcore/internal/connection/domain"
)

// connectWithRetry runs connect up to attempts times with exponential
// backoff (base, 2*base, 4*base, ...). Terminal failures (rejected
// credentials, invalid config) stop immediately. The last failure is
// returned; intermediate ones are logged and swallowed.
func connectWithRetry(
	ctx context.Context,
	logger *slog.Logger,
	connectionID string,
	attempts int,
	baseDelay time.Duration,
	connect func(ctx context.Context) error,
) error {
	if attempts < 1 {
		attempts = 1
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = baseDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	attempt := 0
	operation := func() error {
		attempt++
		err := connect(ctx)
		if err == nil {
			return nil
		}

		if isTerminal(err) {
			return backoff.Permanent(err)
		}

		logger.Warn("connect attempt failed",
			slog.String("connection_id", connectionID),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Any("error", err),
		)
		return err
	}

	return backoff.Retry(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(attempts-1)), ctx),
	)
}

// isTerminal reports whether a connect failure cannot be fixed by retrying.
func isTerminal(err error) bool {
	connErr, ok := connDomain.AsConnectionError(err)
	if !ok {
		return false
	}
	switch connErr.Kind {
	case connDomain.KindAuthFailed, connDomain.KindInvalidConfig:
		return true
	}
	return false
}
