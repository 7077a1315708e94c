package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Pinger зависимость, проверяемая health-чеком.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	storage Pinger
	cache   Pinger
	logger  zerolog.Logger
}

// NewHealthHandler cache may be nil when Redis is disabled.
func NewHealthHandler(storage, cache Pinger, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		storage: storage,
		cache:   cache,
		logger:  logger,
	}
}

// Check always answers 200 "ok" while the process serves requests; failing
// dependencies show up only in checks.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()
	dbStatus := "healthy"
	redisStatus := "disabled"

	if err := h.storage.Ping(ctx); err != nil {
		dbStatus = "unhealthy"
		h.logger.Warn().Err(err).Msg("database health check failed")
	}

	if h.cache != nil {
		redisStatus = "healthy"
		if err := h.cache.Ping(ctx); err != nil {
			redisStatus = "unhealthy"
			h.logger.Warn().Err(err).Msg("redis health check failed")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "API is running",
		"checks": gin.H{
			"database": dbStatus,
			"redis":    redisStatus,
		},
	})
}
