package domain

import (
	"errors"
	"fmt"
	"time"

	apperrors "github.com/vaultcore/vaultcore/internal/errors"
)

// ErrorKind classifies a connection failure so callers can branch on the
// category instead of parsing driver error strings.
type ErrorKind string

// Connection failure categories.
const (
	KindAuthFailed    ErrorKind = "auth_failed"
	KindRefused       ErrorKind = "refused"
	KindTimeout       ErrorKind = "timeout"
	KindInvalidConfig ErrorKind = "invalid_config"
	KindNetwork       ErrorKind = "network"
	KindPoolExhausted ErrorKind = "pool_exhausted"
	KindQueryTimeout  ErrorKind = "query_timeout"
	KindUnknown       ErrorKind = "unknown"
)

// ConnectionError is the structured failure record for connection and query
// operations. It carries the failure category, the connection it belongs to,
// the moment it happened, and any driver-specific context.
type ConnectionError struct {
	Kind         ErrorKind      `json:"kind"`
	ConnectionID string         `json:"connection_id"`
	Message      string         `json:"message"`
	Timestamp    time.Time      `json:"timestamp"`
	Context      map[string]any `json:"context,omitempty"`

	cause error
}

// NewConnectionError builds a ConnectionError stamped with the current time.
// The cause may be nil; context may be nil.
func NewConnectionError(
	kind ErrorKind,
	connectionID string,
	message string,
	cause error,
	context map[string]any,
) *ConnectionError {
	if kind == "" {
		kind = KindUnknown
	}
	return &ConnectionError{
		Kind:         kind,
		ConnectionID: connectionID,
		Message:      message,
		Timestamp:    time.Now().UTC(),
		Context:      context,
		cause:        cause,
	}
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.ConnectionID, e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s [%s]: %s", e.ConnectionID, e.Kind, e.Message)
}

// Unwrap exposes both the underlying cause and the application sentinel for
// the kind, so errors.Is works against either.
func (e *ConnectionError) Unwrap() []error {
	unwrapped := make([]error, 0, 2)
	if e.cause != nil {
		unwrapped = append(unwrapped, e.cause)
	}
	if sentinel := sentinelForKind(e.Kind); sentinel != nil {
		unwrapped = append(unwrapped, sentinel)
	}
	return unwrapped
}

// sentinelForKind maps a failure category to the application error sentinel.
func sentinelForKind(kind ErrorKind) error {
	switch kind {
	case KindAuthFailed:
		return apperrors.ErrUnauthorized
	case KindInvalidConfig:
		return apperrors.ErrInvalidInput
	case KindPoolExhausted:
		return apperrors.ErrExhausted
	case KindRefused, KindTimeout, KindNetwork, KindQueryTimeout:
		return apperrors.ErrUnavailable
	}
	return nil
}

// AsConnectionError extracts a ConnectionError from an error chain.
func AsConnectionError(err error) (*ConnectionError, bool) {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return connErr, true
	}
	return nil, false
}
