package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/douoai/jijin/internal/application/service"
	"github.com/douoai/jijin/internal/domain/model"
)

type ModeHandler struct {
	tracker *service.Tracker
	log     zerolog.Logger
}

func NewModeHandler(tracker *service.Tracker, log zerolog.Logger) *ModeHandler {
	return &ModeHandler{
		tracker: tracker,
		log:     log,
	}
}

func (h *ModeHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/api/mode/test", h.SwitchToTest)
	r.POST("/api/mode/live", h.SwitchToLive)
}

func (h *ModeHandler) SwitchToTest(c *gin.Context) {
	h.log.Info().Msg("received request to switch to test mode")
	h.switchMode(c, model.TestMode)
}

func (h *ModeHandler) SwitchToLive(c *gin.Context) {
	h.log.Info().Msg("received request to switch to live mode")
	h.switchMode(c, model.LiveMode)
}

func (h *ModeHandler) switchMode(c *gin.Context, mode model.DataMode) {
	if !h.tracker.SwitchMode(mode) {
		h.log.Info().Stringer("mode", mode).Msg("already in requested mode")
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": mode, "message": "already in requested mode"})
		return
	}

	h.log.Info().Stringer("new_mode", mode).Msg("mode switched successfully, history reset")
	c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": mode})
}
