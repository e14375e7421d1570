package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const basePath = "/api/v1/market-data"

// NewRouter wires h under basePath. gatherer, when not nil, is exposed on /metrics.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	md := r.Group(basePath)
	md.POST("", h.Save)
	md.GET("/source", h.GetSpecific)
	md.GET("/consolidated/:symbol", h.GetConsolidated)
	md.GET("/batch", h.GetBatch)
	md.POST("/batch", h.GetBatch)
	md.DELETE("/:symbol/:source", h.Delete)

	return r
}
