package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	connHTTP "github.com/vaultcore/vaultcore/internal/connection/http"
	vaultHTTP "github.com/vaultcore/vaultcore/internal/vault/http"
)

// Server represents the API HTTP server.
type Server struct {
	server            *http.Server
	router            *gin.Engine
	logger            *slog.Logger
	vaultHandler      *vaultHTTP.VaultHandler
	connectionHandler *connHTTP.ConnectionHandler
	extraMiddleware   []gin.HandlerFunc
}

// NewServer creates a new HTTP server. Extra middleware (CORS, rate limiting,
// metrics) is applied after the base request id and logging middleware; nil
// entries are skipped.
func NewServer(
	host string,
	port int,
	logger *slog.Logger,
	vaultHandler *vaultHTTP.VaultHandler,
	connectionHandler *connHTTP.ConnectionHandler,
	extraMiddleware ...gin.HandlerFunc,
) *Server {
	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:            logger,
		vaultHandler:      vaultHandler,
		connectionHandler: connectionHandler,
		extraMiddleware:   extraMiddleware,
	}
}

// setupRouter builds the Gin engine with middleware and all API routes.
func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	for _, mw := range s.extraMiddleware {
		if mw != nil {
			router.Use(mw)
		}
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")

	if s.vaultHandler != nil {
		keys := v1.Group("/vault/keys")
		keys.GET("", s.vaultHandler.ListKeysHandler)
		keys.GET("/:id", s.vaultHandler.KeyInfoHandler)
		keys.DELETE("/:id", s.vaultHandler.ClearKeyHandler)
		keys.POST("/:id/encrypt", s.vaultHandler.EncryptHandler)
		keys.POST("/:id/decrypt", s.vaultHandler.DecryptHandler)
		keys.POST("/:id/rotate", s.vaultHandler.RotateHandler)
	}

	if s.connectionHandler != nil {
		conns := v1.Group("/connections")
		conns.POST("", s.connectionHandler.CreateHandler)
		conns.GET("", s.connectionHandler.ListHandler)
		conns.POST("/test", s.connectionHandler.TestHandler)
		conns.GET("/:id", s.connectionHandler.GetHandler)
		conns.DELETE("/:id", s.connectionHandler.DeleteHandler)
		conns.POST("/:id/health", s.connectionHandler.HealthHandler)
		conns.POST("/:id/query", s.connectionHandler.QueryHandler)
	}

	return router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can serve API traffic.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}
	ready := true

	if s.vaultHandler != nil {
		components["vault"] = "ok"
	} else {
		components["vault"] = "error"
		ready = false
	}

	if s.connectionHandler != nil {
		components["connections"] = "ok"
	} else {
		components["connections"] = "error"
		ready = false
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	if s.router == nil {
		s.router = s.setupRouter()
	}
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		s.router = s.setupRouter()
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
