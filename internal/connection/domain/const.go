package domain

// ConnectionType identifies the backend a connection talks to.
type ConnectionType string

// Supported connection types.
const (
	TypePostgres ConnectionType = "postgres"
	TypeMySQL    ConnectionType = "mysql"
	TypeMongoDB  ConnectionType = "mongodb"
	TypeHTTP     ConnectionType = "http"
)

// Valid reports whether the connection type is supported.
func (t ConnectionType) Valid() bool {
	switch t {
	case TypePostgres, TypeMySQL, TypeMongoDB, TypeHTTP:
		return true
	}
	return false
}

// ConnectionStatus is the lifecycle state of a managed connection.
type ConnectionStatus string

// Connection lifecycle states.
const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusError        ConnectionStatus = "error"
)
