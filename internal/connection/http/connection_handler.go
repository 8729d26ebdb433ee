// Package http provides HTTP handlers for connection management.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vaultcore/vaultcore/internal/connection/http/dto"
	connService "github.com/vaultcore/vaultcore/internal/connection/service"
	"github.com/vaultcore/vaultcore/internal/httputil"
	customValidation "github.com/vaultcore/vaultcore/internal/validation"
)

// ConnectionHandler handles HTTP requests for the connection manager.
type ConnectionHandler struct {
	manager connService.Manager
	logger  *slog.Logger
}

// NewConnectionHandler creates a new connection handler with required dependencies.
func NewConnectionHandler(manager connService.Manager, logger *slog.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		manager: manager,
		logger:  logger,
	}
}

// CreateHandler registers a new connection.
// POST /v1/connections
func (h *ConnectionHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	metadata, err := h.manager.CreateConnection(c.Request.Context(), req.ToConfig())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapConnectionResponse(metadata))
}

// ListHandler lists all managed connections.
// GET /v1/connections
func (h *ConnectionHandler) ListHandler(c *gin.Context) {
	all := h.manager.ListConnections()

	connections := make([]dto.ConnectionResponse, 0, len(all))
	for _, metadata := range all {
		connections = append(connections, dto.MapConnectionResponse(metadata))
	}

	c.JSON(http.StatusOK, dto.ListConnectionsResponse{Connections: connections})
}

// GetHandler returns the runtime metadata for one connection.
// GET /v1/connections/:id
func (h *ConnectionHandler) GetHandler(c *gin.Context) {
	metadata, err := h.manager.GetMetadata(c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapConnectionResponse(metadata))
}

// DeleteHandler closes a connection and removes it from the registry.
// DELETE /v1/connections/:id
func (h *ConnectionHandler) DeleteHandler(c *gin.Context) {
	if err := h.manager.CloseConnection(c.Request.Context(), c.Param("id")); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// HealthHandler runs an on-demand health probe.
// POST /v1/connections/:id/health
func (h *ConnectionHandler) HealthHandler(c *gin.Context) {
	connectionID := c.Param("id")

	if _, err := h.manager.GetMetadata(connectionID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	healthy := h.manager.HealthCheck(c.Request.Context(), connectionID)
	c.JSON(http.StatusOK, dto.HealthResponse{
		ConnectionID: connectionID,
		Healthy:      healthy,
	})
}

// QueryHandler runs a query on a registered connection.
// POST /v1/connections/:id/query
func (h *ConnectionHandler) QueryHandler(c *gin.Context) {
	connectionID := c.Param("id")
	if connectionID == "" {
		httputil.HandleBadRequestGin(c, fmt.Errorf("connection id cannot be empty"), h.logger)
		return
	}

	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	result, err := h.manager.ExecuteQuery(c.Request.Context(), connectionID, req.Query, req.Args...)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapQueryResponse(result))
}

// TestHandler establishes a throwaway connection without registering it.
// POST /v1/connections/test
func (h *ConnectionHandler) TestHandler(c *gin.Context) {
	var req dto.CreateConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.manager.TestConnection(c.Request.Context(), req.ToConfig()); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.TestConnectionResponse{Success: true})
}
