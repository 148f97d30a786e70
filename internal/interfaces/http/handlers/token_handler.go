// Package handlers implements the broker's HTTP endpoints.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/healthcoresys/core/internal/application/dto"
	"github.com/healthcoresys/core/internal/application/service"
	"github.com/healthcoresys/core/pkg/errors"
	"github.com/healthcoresys/core/pkg/logger"
)

// TokenHandler serves the mint endpoint.
type TokenHandler struct {
	tokens *service.TokenService
	log    logger.Logger
}

// NewTokenHandler creates the mint endpoint handler.
func NewTokenHandler(tokens *service.TokenService, log logger.Logger) *TokenHandler {
	return &TokenHandler{
		tokens: tokens,
		log:    log.WithComponent("token_handler"),
	}
}

// Mint handles POST /api/tokens/mint.
func (h *TokenHandler) Mint(c *gin.Context) {
	var req dto.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := errors.ErrValidation("request body must include scope and patientId")
		c.JSON(appErr.HTTPStatus(), dto.Fail(errors.ToErrorResponse(appErr)))
		return
	}

	resp, err := h.tokens.Mint(c.Request.Context(), c.GetHeader("Authorization"), &req, service.RequestMeta{
		IP:        ClientIP(c),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(resp))
}

func (h *TokenHandler) writeError(c *gin.Context, err error) {
	status := errors.HTTPStatusOf(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("mint request failed", err)
	}
	c.JSON(status, dto.Fail(errors.ToErrorResponse(err)))
}

// ClientIP resolves the caller address, preferring the first entry of
// X-Forwarded-For, then X-Real-IP, then the connection peer.
func ClientIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if real := c.GetHeader("X-Real-IP"); real != "" {
		return strings.TrimSpace(real)
	}
	return c.ClientIP()
}
