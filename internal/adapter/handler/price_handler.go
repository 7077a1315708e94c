package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/douoai/jijin/internal/application/usecase"
	"github.com/douoai/jijin/internal/domain/model"
)

type PriceHandler struct {
	useCase *usecase.PriceUseCase
	logger  zerolog.Logger
}

func NewPriceHandler(useCase *usecase.PriceUseCase, logger zerolog.Logger) *PriceHandler {
	return &PriceHandler{
		useCase: useCase,
		logger:  logger,
	}
}

func (h *PriceHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/api/price", h.SavePrice)
	r.GET("/api/prices", h.GetPrices)
	r.GET("/api/prices/latest", h.GetLatestPrice)
}

func (h *PriceHandler) SavePrice(c *gin.Context) {
	var req usecase.SavePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	if err := h.useCase.SavePrice(c.Request.Context(), req); err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		h.logger.Error().Err(err).Msg("failed to save price")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save price"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Price saved successfully",
	})
}

func (h *PriceHandler) GetPrices(c *gin.Context) {
	hours := queryInt(c, "hours")
	limit := queryInt(c, "limit")

	rows, err := h.useCase.GetPrices(c.Request.Context(), hours, limit)
	if err != nil {
		h.logger.Error().Err(err).Int("hours", hours).Int("limit", limit).Msg("failed to get prices")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get prices"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    rows,
		"count":   len(rows),
	})
}

func (h *PriceHandler) GetLatestPrice(c *gin.Context) {
	rec, err := h.useCase.GetLatestPrice(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to get latest price")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get latest price"})
		return
	}

	if rec == nil {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    nil,
			"message": "No data found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    rec,
	})
}

// queryInt returns 0 for absent or unparsable values; callers apply defaults.
func queryInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}
