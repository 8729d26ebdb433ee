package driver

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	connDomain "github.com/vaultcore/vaultcore/internal/connection/domain"
)

// mysqlAuthErrors are the server error numbers for rejected credentials.
var mysqlAuthErrors = map[uint16]bool{
	1044: true, // access denied for database
	1045: true, // access denied for user
	1698: true, // access denied, auth plugin
}

// classifyConnectError turns a driver error into a structured ConnectionError
// with the right failure category. ConnectionErrors pass through unchanged.
func classifyConnectError(connectionID string, err error) *connDomain.ConnectionError {
	return classify(connectionID, "connect failed", err, connDomain.KindTimeout)
}

// classifyQueryError is like classifyConnectError but maps deadline
// expiration to the query timeout category.
func classifyQueryError(connectionID string, err error) *connDomain.ConnectionError {
	return classify(connectionID, "query failed", err, connDomain.KindQueryTimeout)
}

func classify(
	connectionID string,
	message string,
	err error,
	timeoutKind connDomain.ErrorKind,
) *connDomain.ConnectionError {
	if connErr, ok := connDomain.AsConnectionError(err); ok {
		return connErr
	}

	kind := connDomain.KindUnknown
	switch {
	case isTimeout(err):
		kind = timeoutKind
	case isAuthFailure(err):
		kind = connDomain.KindAuthFailed
	case isRefused(err):
		kind = connDomain.KindRefused
	case isNetwork(err):
		kind = connDomain.KindNetwork
	}

	return connDomain.NewConnectionError(kind, connectionID, message, err, nil)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(err.Error(), "connection refused")
}

func isAuthFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 28 covers invalid authorization (28000, 28P01).
		return strings.HasPrefix(string(pqErr.Code), "28")
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlAuthErrors[mysqlErr.Number]
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "authentication failed") ||
		strings.Contains(msg, "access denied") ||
		strings.Contains(msg, "auth error")
}

func isNetwork(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
