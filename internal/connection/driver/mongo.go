package driver

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	connDomain "github.com/vaultcore/vaultcore/internal/connection/domain"
)

// MongoConnector connects to MongoDB through the official driver. Queries
// are database commands expressed in extended JSON.
type MongoConnector struct {
	id             string
	uri            string
	database       string
	connectTimeout time.Duration
	queryTimeout   time.Duration

	mu     sync.Mutex
	client *mongo.Client
}

func newMongoConnector(
	cfg connDomain.ConnectionConfig,
	username string,
	password string,
	connectTimeout time.Duration,
	queryTimeout time.Duration,
) (*MongoConnector, error) {
	return &MongoConnector{
		id:             cfg.ID,
		uri:            mongoURI(cfg, username, password),
		database:       cfg.Database,
		connectTimeout: connectTimeout,
		queryTimeout:   queryTimeout,
	}, nil
}

// Connect establishes the client and verifies the server with a ping.
// Calling it on an already connected connector is a no-op.
func (c *MongoConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	opts := options.Client().
		ApplyURI(c.uri).
		SetConnectTimeout(c.connectTimeout).
		SetServerSelectionTimeout(c.connectTimeout)

	client, err := mongo.Connect(opts)
	if err != nil {
		return classifyConnectError(c.id, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return classifyConnectError(c.id, err)
	}

	c.client = client
	return nil
}

// Disconnect closes the client. It is idempotent.
func (c *MongoConnector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}

	err := c.client.Disconnect(ctx)
	c.client = nil
	if err != nil {
		return connDomain.NewConnectionError(connDomain.KindUnknown, c.id, "disconnect failed", err, nil)
	}
	return nil
}

// HealthCheck pings the primary within the connect timeout.
func (c *MongoConnector) HealthCheck(ctx context.Context) error {
	client, err := c.handle()
	if err != nil {
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return classifyConnectError(c.id, err)
	}
	return nil
}

// ExecuteQuery runs a database command given as an extended JSON document,
// for example {"ping": 1} or {"find": "users", "limit": 10}.
func (c *MongoConnector) ExecuteQuery(ctx context.Context, query string, _ ...any) (*Result, error) {
	client, err := c.handle()
	if err != nil {
		return nil, err
	}

	var command bson.D
	if err := bson.UnmarshalExtJSON([]byte(query), false, &command); err != nil {
		return nil, connDomain.NewConnectionError(
			connDomain.KindInvalidConfig, c.id, "query must be an extended JSON command document", err, nil,
		)
	}

	queryCtx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	var doc bson.M
	if err := client.Database(c.database).RunCommand(queryCtx, command).Decode(&doc); err != nil {
		return nil, classifyQueryError(c.id, err)
	}

	row := make(map[string]any, len(doc))
	for key, value := range doc {
		row[key] = value
	}
	return &Result{Rows: []map[string]any{row}, RowsAffected: 1}, nil
}

// Type returns the backend type tag.
func (c *MongoConnector) Type() connDomain.ConnectionType {
	return connDomain.TypeMongoDB
}

func (c *MongoConnector) handle() (*mongo.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil, connDomain.NewConnectionError(
			connDomain.KindInvalidConfig, c.id, "not connected", nil, nil,
		)
	}
	return c.client, nil
}

func mongoURI(cfg connDomain.ConnectionConfig, username, password string) string {
	query := url.Values{}
	for key, value := range cfg.Options {
		query.Set(key, value)
	}

	u := url.URL{
		Scheme:   "mongodb",
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Database,
		RawQuery: query.Encode(),
	}
	if username != "" {
		u.User = url.UserPassword(username, password)
	}
	return u.String()
}
