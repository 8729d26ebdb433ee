package driver

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	connDomain "github.com/vaultcore/vaultcore/internal/connection/domain"
)

// openFunc opens a *sql.DB for a driver name and DSN. Tests swap it for a
// sqlmock-backed opener.
type openFunc func(driverName, dsn string) (*sql.DB, error)

// SQLConnector connects to PostgreSQL or MySQL through database/sql.
type SQLConnector struct {
	id             string
	connType       connDomain.ConnectionType
	driverName     string
	dsn            string
	connectTimeout time.Duration
	queryTimeout   time.Duration
	open           openFunc

	mu sync.Mutex
	db *sql.DB
}

func newSQLConnector(
	cfg connDomain.ConnectionConfig,
	username string,
	password string,
	connectTimeout time.Duration,
	queryTimeout time.Duration,
) (*SQLConnector, error) {
	var driverName, dsn string
	switch cfg.Type {
	case connDomain.TypePostgres:
		driverName = "postgres"
		dsn = postgresDSN(cfg, username, password)
	case connDomain.TypeMySQL:
		driverName = "mysql"
		dsn = mysqlDSN(cfg, username, password, connectTimeout)
	default:
		return nil, connDomain.NewConnectionError(
			connDomain.KindInvalidConfig,
			cfg.ID,
			fmt.Sprintf("not a SQL connection type: %q", cfg.Type),
			nil,
			nil,
		)
	}

	return &SQLConnector{
		id:             cfg.ID,
		connType:       cfg.Type,
		driverName:     driverName,
		dsn:            dsn,
		connectTimeout: connectTimeout,
		queryTimeout:   queryTimeout,
		open:           sql.Open,
	}, nil
}

// Connect opens the database handle and verifies it with a ping. Calling it
// on an already connected connector is a no-op.
func (c *SQLConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return nil
	}

	db, err := c.open(c.driverName, c.dsn)
	if err != nil {
		return classifyConnectError(c.id, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return classifyConnectError(c.id, err)
	}

	c.db = db
	return nil
}

// Disconnect closes the database handle. It is idempotent.
func (c *SQLConnector) Disconnect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}

	err := c.db.Close()
	c.db = nil
	if err != nil {
		return connDomain.NewConnectionError(connDomain.KindUnknown, c.id, "disconnect failed", err, nil)
	}
	return nil
}

// HealthCheck pings the database within the connect timeout.
func (c *SQLConnector) HealthCheck(ctx context.Context) error {
	db, err := c.handle()
	if err != nil {
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		return classifyConnectError(c.id, err)
	}
	return nil
}

// ExecuteQuery runs the query within the query timeout and returns all rows
// as column-keyed maps.
func (c *SQLConnector) ExecuteQuery(ctx context.Context, query string, args ...any) (*Result, error) {
	db, err := c.handle()
	if err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(queryCtx, query, args...)
	if err != nil {
		return nil, classifyQueryError(c.id, err)
	}
	defer rows.Close()

	result, err := collectRows(rows)
	if err != nil {
		return nil, classifyQueryError(c.id, err)
	}
	return result, nil
}

// Type returns the backend type tag.
func (c *SQLConnector) Type() connDomain.ConnectionType {
	return c.connType
}

func (c *SQLConnector) handle() (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil, connDomain.NewConnectionError(
			connDomain.KindInvalidConfig, c.id, "not connected", nil, nil,
		)
	}
	return c.db, nil
}

// collectRows drains a result set into column-keyed maps, converting raw
// byte columns to strings.
func collectRows(rows *sql.Rows) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if raw, ok := values[i].([]byte); ok {
				row[col] = string(raw)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &Result{Rows: out, RowsAffected: int64(len(out))}, nil
}

func postgresDSN(cfg connDomain.ConnectionConfig, username, password string) string {
	query := url.Values{}
	for key, value := range cfg.Options {
		query.Set(key, value)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(username, password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Database,
		RawQuery: query.Encode(),
	}
	return u.String()
}

func mysqlDSN(cfg connDomain.ConnectionConfig, username, password string, connectTimeout time.Duration) string {
	mysqlCfg := mysql.NewConfig()
	mysqlCfg.User = username
	mysqlCfg.Passwd = password
	mysqlCfg.Net = "tcp"
	mysqlCfg.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mysqlCfg.DBName = cfg.Database
	mysqlCfg.Timeout = connectTimeout
	if len(cfg.Options) > 0 {
		mysqlCfg.Params = cfg.Options
	}
	return mysqlCfg.FormatDSN()
}
