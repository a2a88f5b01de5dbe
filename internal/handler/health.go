package handler

import (
	"context"
	"time"

	"tubequiz/internal/domain"
	"tubequiz/internal/dto"
	"tubequiz/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const healthPingTimeout = 2 * time.Second

// HealthHandler reports liveness and Redis reachability.
type HealthHandler struct {
	cache domain.Cache
}

// NewHealthHandler creates a HealthHandler. A nil cache reports Redis as disabled.
func NewHealthHandler(cache domain.Cache) *HealthHandler {
	return &HealthHandler{cache: cache}
}

// Health handles GET /healthz
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	if h.cache == nil {
		return c.JSON(dto.HealthResponse{Status: "ok", Redis: "disabled"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), healthPingTimeout)
	defer cancel()
	if err := h.cache.Ping(ctx); err != nil {
		logger.Get().Warn("Health check: Redis ping failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.HealthResponse{Status: "degraded", Redis: "unreachable"})
	}
	return c.JSON(dto.HealthResponse{Status: "ok", Redis: "ok"})
}
