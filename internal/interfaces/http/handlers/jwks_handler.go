package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthcoresys/core/internal/infrastructure/crypto"
	"github.com/healthcoresys/core/pkg/constants"
	"github.com/healthcoresys/core/pkg/logger"
)

// JWKSHandler publishes the broker's signing key set at the well-known
// path. Only public key material ever passes through here.
type JWKSHandler struct {
	registry crypto.KeyRegistry
	log      logger.Logger
}

// NewJWKSHandler creates the key set endpoint handler.
func NewJWKSHandler(registry crypto.KeyRegistry, log logger.Logger) *JWKSHandler {
	return &JWKSHandler{
		registry: registry,
		log:      log.WithComponent("jwks_handler"),
	}
}

// KeySet handles GET /.well-known/jwks.json. The short public max-age keeps
// rotation propagation in minutes rather than hours.
func (h *JWKSHandler) KeySet(c *gin.Context) {
	set, err := h.registry.KeySet(c.Request.Context())
	if err != nil {
		h.log.Error("key set load failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "key set unavailable"})
		return
	}

	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", int(constants.JWKSCacheMaxAge.Seconds())))
	c.JSON(http.StatusOK, set)
}
