package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/douoai/jijin/internal/application/service"
	"github.com/douoai/jijin/internal/concurrency/fanout"
	"github.com/douoai/jijin/internal/domain/model"
)

const streamBuffer = 16

// TickStats счётчики планировщика для health.
type TickStats interface {
	Runs() int64
	Skipped() int64
}

// ChartHandler отдаёт историю трекера внешнему рендереру.
type ChartHandler struct {
	tracker *service.Tracker
	hub     *fanout.Hub
	stats   TickStats
	logger  zerolog.Logger
}

func NewChartHandler(tracker *service.Tracker, hub *fanout.Hub, stats TickStats, logger zerolog.Logger) *ChartHandler {
	return &ChartHandler{
		tracker: tracker,
		hub:     hub,
		stats:   stats,
		logger:  logger,
	}
}

func (h *ChartHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/ticker", h.GetTicker)
	r.GET("/api/chart/line", h.GetLine)
	r.GET("/api/chart/candles", h.GetCandles)
	r.GET("/api/stream", h.Stream)
	r.GET("/api/health", h.Health)
}

func (h *ChartHandler) GetTicker(c *gin.Context) {
	tk := h.tracker.Ticker()
	if tk == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": nil, "message": "No data yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": tk})
}

func (h *ChartHandler) GetLine(c *gin.Context) {
	period, err := model.ParsePeriod(c.Query("period"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	samples := h.tracker.Line(period)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"period":  period,
		"data":    samples,
		"count":   len(samples),
	})
}

func (h *ChartHandler) GetCandles(c *gin.Context) {
	var width time.Duration
	if v := c.Query("bucket"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < time.Second {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bucket must be a duration of at least 1s"})
			return
		}
		width = d
	}

	candles := h.tracker.Candles(width)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bucket":  h.tracker.CandleWidth().String(),
		"data":    candles,
		"count":   len(candles),
	})
}

// Stream отправляет SSE-событие "price" на каждую принятую точку.
func (h *ChartHandler) Stream(c *gin.Context) {
	ch, cancel := h.hub.Subscribe(streamBuffer)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	// заголовки уходят сразу, не дожидаясь первой точки
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	h.logger.Debug().Int("subscribers", h.hub.Subscribers()).Msg("stream subscriber connected")

	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		select {
		case s, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("price", s)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func (h *ChartHandler) Health(c *gin.Context) {
	resp := gin.H{
		"status":      "ok",
		"mode":        h.tracker.Mode(),
		"samples":     h.tracker.Samples(),
		"subscribers": h.hub.Subscribers(),
	}
	if h.stats != nil {
		resp["runs"] = h.stats.Runs()
		resp["skippedTicks"] = h.stats.Skipped()
	}
	c.JSON(http.StatusOK, resp)
}
