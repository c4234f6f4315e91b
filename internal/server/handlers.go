package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mkurzov/marketd/internal/model"
	"github.com/mkurzov/marketd/internal/provider"
	"github.com/mkurzov/marketd/internal/version"
)

func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "marketd is running",
		"version": version.Version,
		"health":  "/health",
		"endpoints": []string{
			"/exchanges",
			"/markets/:exchange",
			"/price/:exchange/:symbol",
			"/historical/:exchange/:symbol",
			"/ws/:exchange/:symbol",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   model.Now(),
		"version":     version.Version,
		"cache_stats": s.provider.CacheStats(),
	})
}

func (s *Server) handleExchanges(c *gin.Context) {
	c.JSON(http.StatusOK, s.provider.ListExchanges())
}

func (s *Server) handleMarkets(c *gin.Context) {
	exchangeID := c.Param("exchange")
	symbols, err := s.provider.ListMarkets(c.Request.Context(), exchangeID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"exchange": exchangeID,
		"symbols":  symbols,
		"count":    len(symbols),
	})
}

func (s *Server) handlePrice(c *gin.Context) {
	tick, err := s.provider.GetTicker(c.Request.Context(), c.Param("exchange"), wildcardSymbol(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, tick)
}

func (s *Server) handleHistorical(c *gin.Context) {
	var query model.OHLCVQuery
	query.Timeframe = c.Query("timeframe")
	if raw := c.Query("since"); raw != "" {
		since, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.badRequest(c, "since must be a Unix timestamp in milliseconds")
			return
		}
		query.Since = since
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			s.badRequest(c, "limit must be an integer")
			return
		}
		query.Limit = limit
	}

	candles, err := s.provider.GetOHLCV(c.Request.Context(), c.Param("exchange"), wildcardSymbol(c), query)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, candles)
}

func (s *Server) handleClearCache(c *gin.Context) {
	s.provider.ClearCaches()
	c.JSON(http.StatusOK, gin.H{"message": "All caches cleared successfully"})
}

func (s *Server) handleCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.provider.CacheStats())
}

// renderError maps a provider failure onto the wire error shape. Unknown
// errors become a 500 without detail leakage.
func (s *Server) renderError(c *gin.Context, err error) {
	kind := provider.KindOf(err)
	detail := "internal error"
	var pe *provider.Error
	if errors.As(err, &pe) {
		detail = pe.Detail
	} else {
		s.logger.Error("unhandled error", "path", c.Request.URL.Path, "error", err)
	}

	status := kind.HTTPStatus()
	c.AbortWithStatusJSON(status, model.ErrorResponse{
		Error:      string(kind),
		Detail:     detail,
		StatusCode: status,
		Timestamp:  model.Now(),
	})
}

func (s *Server) badRequest(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, model.ErrorResponse{
		Error:      "invalid_request",
		Detail:     detail,
		StatusCode: http.StatusBadRequest,
		Timestamp:  model.Now(),
	})
}

// wildcardSymbol extracts the unified symbol from a *symbol route, dropping
// the wildcard's leading slash.
func wildcardSymbol(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("symbol"), "/")
}
