package driver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	connDomain "github.com/vaultcore/vaultcore/internal/connection/domain"
)

// maxHTTPBodyBytes caps how much of a response body ExecuteQuery returns.
const maxHTTPBodyBytes = 1 << 20

// HTTPConnector probes an HTTP endpoint. Connect and HealthCheck issue a GET
// against the base URL; ExecuteQuery issues a GET against a relative path.
type HTTPConnector struct {
	id             string
	baseURL        string
	connectTimeout time.Duration
	queryTimeout   time.Duration

	mu     sync.Mutex
	client *http.Client
}

func newHTTPConnector(
	cfg connDomain.ConnectionConfig,
	connectTimeout time.Duration,
	queryTimeout time.Duration,
) (*HTTPConnector, error) {
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, connDomain.NewConnectionError(
			connDomain.KindInvalidConfig, cfg.ID, "invalid base url", err, nil,
		)
	}
	return &HTTPConnector{
		id:             cfg.ID,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		connectTimeout: connectTimeout,
		queryTimeout:   queryTimeout,
	}, nil
}

// Connect creates the client and probes the base URL once.
func (c *HTTPConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.client == nil {
		c.client = &http.Client{Timeout: c.queryTimeout}
	}
	c.mu.Unlock()

	return c.HealthCheck(ctx)
}

// Disconnect drops idle connections. It is idempotent.
func (c *HTTPConnector) Disconnect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		c.client.CloseIdleConnections()
		c.client = nil
	}
	return nil
}

// HealthCheck probes the base URL and treats any status below 500 as alive.
func (c *HTTPConnector) HealthCheck(ctx context.Context) error {
	client, err := c.handle()
	if err != nil {
		return err
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return connDomain.NewConnectionError(connDomain.KindInvalidConfig, c.id, "invalid probe request", err, nil)
	}

	resp, err := client.Do(req)
	if err != nil {
		return classifyConnectError(c.id, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxHTTPBodyBytes))

	if resp.StatusCode >= http.StatusInternalServerError {
		return connDomain.NewConnectionError(
			connDomain.KindNetwork,
			c.id,
			fmt.Sprintf("endpoint unhealthy: status %d", resp.StatusCode),
			nil,
			map[string]any{"status_code": resp.StatusCode},
		)
	}
	return nil
}

// ExecuteQuery issues a GET against the query path relative to the base URL
// and returns the status code and body.
func (c *HTTPConnector) ExecuteQuery(ctx context.Context, query string, _ ...any) (*Result, error) {
	client, err := c.handle()
	if err != nil {
		return nil, err
	}

	target := c.baseURL
	if query != "" {
		target = c.baseURL + "/" + strings.TrimLeft(query, "/")
	}

	queryCtx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(queryCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, connDomain.NewConnectionError(connDomain.KindInvalidConfig, c.id, "invalid request", err, nil)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyQueryError(c.id, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTTPBodyBytes))
	if err != nil {
		return nil, classifyQueryError(c.id, err)
	}

	return &Result{
		Rows: []map[string]any{{
			"status_code": resp.StatusCode,
			"body":        string(body),
		}},
		RowsAffected: 1,
	}, nil
}

// Type returns the backend type tag.
func (c *HTTPConnector) Type() connDomain.ConnectionType {
	return connDomain.TypeHTTP
}

func (c *HTTPConnector) handle() (*http.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil, connDomain.NewConnectionError(
			connDomain.KindInvalidConfig, c.id, "not connected", nil, nil,
		)
	}
	return c.client, nil
}
