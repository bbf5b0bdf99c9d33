package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	stablecoindomain "github.com/stableview/stableview/internal/stablecoin/domain"
	"go.uber.org/zap"
)

func (s *Server) ListStablecoins(c *gin.Context) {
	var query struct {
		PeggedAsset string `form:"pegged_asset"`
		Symbol      string `form:"symbol"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.stablecoinSvc.List(c.Request.Context(), stablecoindomain.ListRequest{
		PeggedAsset: query.PeggedAsset,
		Symbol:      query.Symbol,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetStablecoin serves one coin, refreshing its spot price inline when the
// stored value is older than the price staleness threshold. A failed refresh
// degrades to the stale value instead of failing the read.
func (s *Server) GetStablecoin(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	resp, err := s.stablecoinSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.priceIsStale(resp) {
		if coinID, parseErr := strconv.ParseInt(id, 10, 64); parseErr == nil {
			if _, refreshErr := s.refresher.RefreshCoinPrice(c.Request.Context(), coinID); refreshErr != nil {
				s.log.Warn("inline price refresh failed, serving stale value",
					zap.String("coin_id", id),
					zap.Error(refreshErr),
				)
			} else if fresh, rereadErr := s.stablecoinSvc.Get(c.Request.Context(), id); rereadErr == nil {
				resp = fresh
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetStablecoinPegPrice serves one coin's peg price with the same inline
// refresh contract, on the (longer) peg staleness threshold.
func (s *Server) GetStablecoinPegPrice(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	resp, err := s.stablecoinSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.pegPriceIsStale(resp) {
		if coinID, parseErr := strconv.ParseInt(id, 10, 64); parseErr == nil {
			if _, refreshErr := s.refresher.RefreshCoinPegPrice(c.Request.Context(), coinID); refreshErr != nil {
				s.log.Warn("inline peg price refresh failed, serving stale value",
					zap.String("coin_id", id),
					zap.Error(refreshErr),
				)
			} else if fresh, rereadErr := s.stablecoinSvc.Get(c.Request.Context(), id); rereadErr == nil {
				resp = fresh
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"id":                resp.ID,
		"symbol":            resp.Symbol,
		"peggedAsset":       resp.PeggedAsset,
		"pegPrice":          resp.PegPrice,
		"pegPriceUpdatedAt": resp.PegPriceUpdatedAt,
	}})
}

func (s *Server) CreateStablecoin(c *gin.Context) {
	var req stablecoindomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.stablecoinSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) priceIsStale(resp *stablecoindomain.Response) bool {
	if resp.PriceUpdatedAt == nil {
		return true
	}
	return s.now().Sub(*resp.PriceUpdatedAt) > s.refreshCfg.PriceStaleAfter
}

func (s *Server) pegPriceIsStale(resp *stablecoindomain.Response) bool {
	if resp.PegPriceUpdatedAt == nil {
		return true
	}
	return s.now().Sub(*resp.PegPriceUpdatedAt) > s.refreshCfg.PegPriceStaleAfter
}
