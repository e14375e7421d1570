// Package api maps REST calls one to one onto gateway operations.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yanun0323/logs"

	"marketdata/internal/model"
	"marketdata/internal/schema"
	"marketdata/pkg/exception"
)

const MsgNotFound = "Market data not found."

// Service is the awaitable market data API, implemented by the gateway.
type Service interface {
	Save(ctx context.Context, f model.Fields) (schema.Result, error)
	Delete(ctx context.Context, symbol, source string) (schema.Result, error)
	GetSpecific(ctx context.Context, symbol, source string) (model.MarketRecord, error)
	GetConsolidated(ctx context.Context, symbol string) (model.MarketRecord, error)
	GetBatch(ctx context.Context, symbols []*string) ([]*model.MarketRecord, error)
}

// Handler serves the market data routes.
type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Save handles POST /api/v1/market-data.
func (h *Handler) Save(c *gin.Context) {
	var f model.Fields
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	f.Normalize()

	res, err := h.svc.Save(c.Request.Context(), f)
	if err != nil {
		h.fail(c, "save", err)
		return
	}
	if !res.Success {
		c.JSON(resultStatus(res), res)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GetSpecific handles GET /api/v1/market-data/source?symbol=&source=.
func (h *Handler) GetSpecific(c *gin.Context) {
	symbol, source := c.Query("symbol"), c.Query("source")
	if symbol == "" || source == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol and source are required"})
		return
	}

	rec, err := h.svc.GetSpecific(c.Request.Context(), symbol, source)
	if err != nil {
		h.fail(c, "get specific", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetConsolidated handles GET /api/v1/market-data/consolidated/:symbol.
func (h *Handler) GetConsolidated(c *gin.Context) {
	rec, err := h.svc.GetConsolidated(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		h.fail(c, "get consolidated", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetBatch handles GET|POST /api/v1/market-data/batch with a JSON array of symbols.
func (h *Handler) GetBatch(c *gin.Context) {
	var symbols []*string
	if err := c.ShouldBindJSON(&symbols); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON array of symbols", "details": err.Error()})
		return
	}

	batch, err := h.svc.GetBatch(c.Request.Context(), symbols)
	if err != nil {
		h.fail(c, "get batch", err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// Delete handles DELETE /api/v1/market-data/:symbol/:source.
func (h *Handler) Delete(c *gin.Context) {
	res, err := h.svc.Delete(c.Request.Context(), c.Param("symbol"), c.Param("source"))
	if err != nil {
		h.fail(c, "delete", err)
		return
	}
	if !res.Success {
		c.JSON(resultStatus(res), res)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	switch exception.KindOf(err) {
	case exception.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"message": MsgNotFound})
	case exception.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logs.Errorf("%s failed, err: %+v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// resultStatus maps a failed Result: caller mistakes are 400, store trouble is 500.
func resultStatus(res schema.Result) int {
	switch exception.Kind(res.Kind) {
	case exception.KindValidation, exception.KindNotFound:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
