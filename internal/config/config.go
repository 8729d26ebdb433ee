// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// ServerHost is the host address the API server will bind to.
	ServerHost string
	// ServerPort is the port number the API server will listen on.
	ServerPort int

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// VaultNamespace is mixed into the subkey derivation salt so that two
	// deployments sharing a master key still derive distinct subkeys.
	VaultNamespace string
	// VaultAlgorithm selects the AEAD for new packages
	// ("aes-gcm" or "chacha20-poly1305").
	VaultAlgorithm string
	// MasterKey is the base64-encoded 256-bit master key. When KMSKeyURI is
	// set, this holds the KMS-wrapped ciphertext instead of the raw key.
	MasterKey string
	// KMSKeyURI is the gocloud.dev secrets keeper URI used to unwrap the
	// master key (e.g., "hashivault://keyname", "base64key://..."). Empty
	// means MasterKey is the raw base64 key.
	KMSKeyURI string

	// CredentialDir is the directory where encrypted credential files are stored.
	CredentialDir string

	// MaxConnections is the process-wide cap on registered connections.
	MaxConnections int
	// PoolMinSize is the default number of idle connectors a pool retains.
	PoolMinSize int
	// PoolMaxSize is the default cap on concurrently active connectors per pool.
	PoolMaxSize int
	// ConnectTimeout bounds a single connect attempt.
	ConnectTimeout time.Duration
	// QueryTimeout bounds a single query execution.
	QueryTimeout time.Duration
	// RetryAttempts is the number of retries after the first failed connect.
	RetryAttempts int
	// RetryBaseDelay is the backoff base; attempt n waits base * 2^n.
	RetryBaseDelay time.Duration
	// HealthCheckInterval is the sleep between health-monitor probes.
	HealthCheckInterval time.Duration
	// HealthRetryDelay is the sleep after an unexpected monitor-loop error.
	HealthRetryDelay time.Duration

	// RateLimitEnabled indicates whether API rate limiting is enabled.
	RateLimitEnabled bool
	// RateLimitRequestsPerSec is the number of requests allowed per second per client.
	RateLimitRequestsPerSec float64
	// RateLimitBurst is the burst size for rate limiting.
	RateLimitBurst int

	// CORSEnabled indicates whether CORS is enabled.
	CORSEnabled bool
	// CORSAllowOrigins is a comma-separated list of allowed origins for CORS.
	CORSAllowOrigins string

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Server configuration
		ServerHost: env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort: env.GetInt("SERVER_PORT", 8080),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Vault configuration
		VaultNamespace: env.GetString("VAULT_NAMESPACE", "vaultcore"),
		VaultAlgorithm: env.GetString("VAULT_ALGORITHM", "aes-gcm"),
		MasterKey:      env.GetString("MASTER_KEY", ""),
		KMSKeyURI:      env.GetString("KMS_KEY_URI", ""),

		// Secure storage
		CredentialDir: env.GetString("CREDENTIAL_DIR", "./data/credentials"),

		// Connection management
		MaxConnections:      env.GetInt("MAX_CONNECTIONS", 50),
		PoolMinSize:         env.GetInt("POOL_MIN_SIZE", 1),
		PoolMaxSize:         env.GetInt("POOL_MAX_SIZE", 10),
		ConnectTimeout:      env.GetDuration("CONNECT_TIMEOUT_SECONDS", 30, time.Second),
		QueryTimeout:        env.GetDuration("QUERY_TIMEOUT_SECONDS", 300, time.Second),
		RetryAttempts:       env.GetInt("RETRY_ATTEMPTS", 3),
		RetryBaseDelay:      env.GetDuration("RETRY_BASE_DELAY_SECONDS", 1, time.Second),
		HealthCheckInterval: env.GetDuration("HEALTH_CHECK_INTERVAL_SECONDS", 30, time.Second),
		HealthRetryDelay:    env.GetDuration("HEALTH_RETRY_DELAY_SECONDS", 5, time.Second),

		// Rate Limiting
		RateLimitEnabled:        env.GetBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequestsPerSec: env.GetFloat64("RATE_LIMIT_REQUESTS_PER_SEC", 10.0),
		RateLimitBurst:          env.GetInt("RATE_LIMIT_BURST", 20),

		// CORS
		CORSEnabled:      env.GetBool("CORS_ENABLED", false),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", ""),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "vaultcore"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),
	}
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	switch c.LogLevel {
	case "debug":
		return "debug"
	default:
		return "release"
	}
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	// Get current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	// Search for .env file recursively up the directory tree
	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			// .env file found, load it
			_ = godotenv.Load(envPath)
			return
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}
}
