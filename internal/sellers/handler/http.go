package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/supplyline/go-sellers-cache/internal/sellers/domain"
	"github.com/supplyline/go-sellers-cache/internal/sellers/metrics"
	"github.com/supplyline/go-sellers-cache/internal/sellers/service"
)

type HTTPHandler struct {
	lookup  *service.LookupService
	refresh *service.RefreshService
	metrics *metrics.InMemoryMetrics
	logger  *zap.Logger
}

func NewHTTPHandler(
	lookup *service.LookupService,
	refresh *service.RefreshService,
	metricsCollector *metrics.InMemoryMetrics,
	logger *zap.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		lookup:  lookup,
		refresh: refresh,
		metrics: metricsCollector,
		logger:  logger,
	}
}

func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/lookup", h.BatchLookup)
		api.POST("/lookup/stream", h.StreamLookup)
		api.POST("/lookup/parallel", h.ParallelLookup)
		api.GET("/domains/:domain/cache", h.GetCacheInfo)
		api.POST("/domains/:domain/refresh", h.ForceRefresh)
		api.GET("/stats", h.GetStats)
	}
}

// BatchLookup answers up to 100 seller IDs against one domain. An absent
// or broken remote document is an ordinary 200 answer with found=false per
// ID; only validation and infrastructure faults produce error statuses.
func (h *HTTPHandler) BatchLookup(c *gin.Context) {
	var req domain.LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.lookup.Lookup(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Batch lookup failed",
			zap.Error(err), zap.String("domain", req.Domain))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) ParallelLookup(c *gin.Context) {
	var req domain.ParallelLookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.lookup.LookupParallel(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Parallel lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) GetCacheInfo(c *gin.Context) {
	dom := c.Param("domain")

	meta, err := h.refresh.CacheInfo(c.Request.Context(), dom)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to read cache info",
			zap.Error(err), zap.String("domain", dom))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if meta == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "domain has never been fetched"})
		return
	}

	resp := gin.H{
		"domain": domain.NormalizeDomain(dom),
		"cache":  meta,
	}
	if wait, ok := domain.RetryAfter(meta.ErrorCode); ok {
		resp["retry_after_seconds"] = int(wait / time.Second)
	}

	c.JSON(http.StatusOK, resp)
}

// ForceRefresh refetches a domain regardless of cache freshness and
// returns the resulting cache state.
func (h *HTTPHandler) ForceRefresh(c *gin.Context) {
	dom := c.Param("domain")

	doc, meta, err := h.refresh.Resolve(c.Request.Context(), dom, true)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Forced refresh failed",
			zap.Error(err), zap.String("domain", dom))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"domain": domain.NormalizeDomain(dom),
		"cache":  meta,
	}
	if doc != nil {
		resp["seller_count"] = len(doc.Sellers)
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"counters": h.metrics.GetCounters(),
		"gauges":   h.metrics.GetGauges(),
	})
}
