package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stableview/stableview/internal/refresh"
	"go.uber.org/zap"
)

// Manual trigger endpoints always answer 200 with the run tally; per-coin
// failures are reported inside the summary, not as an HTTP error.
func (s *Server) TriggerMetricsRefresh(c *gin.Context) {
	s.trigger(c, s.refresher.RefreshMetrics)
}

func (s *Server) TriggerPriceRefresh(c *gin.Context) {
	s.trigger(c, s.refresher.RefreshPrices)
}

func (s *Server) TriggerPegPriceRefresh(c *gin.Context) {
	s.trigger(c, s.refresher.RefreshPegPrices)
}

func (s *Server) trigger(c *gin.Context, run func(ctx context.Context) (*refresh.Summary, error)) {
	summary, err := run(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) ClearPriceCache(c *gin.Context) {
	s.priceClient.ClearCache()
	s.log.Info("price cache cleared")
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"cleared": true}})
}

// CronRefresh runs the full pass (sync plus all three refresh flows). Only a
// run-level failure yields a 500; individual coin failures stay in the body.
func (s *Server) CronRefresh(c *gin.Context) {
	summaries, err := s.refresher.RunOnce(c.Request.Context())
	if err != nil {
		s.log.Error("scheduled refresh pass failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"data":  summaries,
			"error": errorPayload{Type: "internal_error", Message: "refresh pass failed"},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summaries})
}
