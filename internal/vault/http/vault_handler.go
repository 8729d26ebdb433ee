// Package http provides HTTP handlers for vault encryption, decryption, and
// key management operations.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vaultcore/vaultcore/internal/httputil"
	customValidation "github.com/vaultcore/vaultcore/internal/validation"
	vaultDomain "github.com/vaultcore/vaultcore/internal/vault/domain"
	"github.com/vaultcore/vaultcore/internal/vault/http/dto"
	vaultService "github.com/vaultcore/vaultcore/internal/vault/service"
)

// VaultHandler handles HTTP requests for encryption and key management.
type VaultHandler struct {
	vault  vaultService.Vault
	logger *slog.Logger
}

// NewVaultHandler creates a new vault handler with required dependencies.
func NewVaultHandler(vault vaultService.Vault, logger *slog.Logger) *VaultHandler {
	return &VaultHandler{
		vault:  vault,
		logger: logger,
	}
}

// EncryptHandler encrypts a payload under the current version of a key id.
// POST /v1/vault/keys/:id/encrypt
func (h *VaultHandler) EncryptHandler(c *gin.Context) {
	keyID := c.Param("id")
	if keyID == "" {
		httputil.HandleBadRequestGin(c, fmt.Errorf("key id cannot be empty"), h.logger)
		return
	}

	var req dto.EncryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	packaged, err := h.vault.Encrypt(c.Request.Context(), req.Data, keyID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.EncryptResponse{
		Package: packaged,
		KeyID:   keyID,
	})
}

// DecryptHandler decrypts a package under a key id. The package embeds its
// own key id; a mismatch with the URL parameter is rejected.
// POST /v1/vault/keys/:id/decrypt
func (h *VaultHandler) DecryptHandler(c *gin.Context) {
	keyID := c.Param("id")
	if keyID == "" {
		httputil.HandleBadRequestGin(c, fmt.Errorf("key id cannot be empty"), h.logger)
		return
	}

	var req dto.DecryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	pkg, err := vaultDomain.DecodePackage(req.Package)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	if pkg.KeyID != keyID {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("package was encrypted under key %q, not %q", pkg.KeyID, keyID),
			h.logger,
		)
		return
	}

	data, err := h.vault.Decrypt(c.Request.Context(), req.Package)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.DecryptResponse{Data: data})
}

// RotateHandler bumps the current version of a key id.
// POST /v1/vault/keys/:id/rotate
func (h *VaultHandler) RotateHandler(c *gin.Context) {
	keyID := c.Param("id")
	if keyID == "" {
		httputil.HandleBadRequestGin(c, fmt.Errorf("key id cannot be empty"), h.logger)
		return
	}

	info, err := h.vault.RotateKey(c.Request.Context(), keyID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeyInfoResponse(info))
}

// KeyInfoHandler returns version and algorithm info for a key id.
// GET /v1/vault/keys/:id
func (h *VaultHandler) KeyInfoHandler(c *gin.Context) {
	info, err := h.vault.KeyInfo(c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeyInfoResponse(info))
}

// ListKeysHandler lists all known key ids.
// GET /v1/vault/keys
func (h *VaultHandler) ListKeysHandler(c *gin.Context) {
	keys := h.vault.ListKeys()
	if keys == nil {
		keys = []string{}
	}
	c.JSON(http.StatusOK, dto.ListKeysResponse{Keys: keys})
}

// ClearKeyHandler scrubs a key id's cached material from memory.
// DELETE /v1/vault/keys/:id
func (h *VaultHandler) ClearKeyHandler(c *gin.Context) {
	h.vault.ClearKey(c.Param("id"))
	c.Status(http.StatusNoContent)
}
