package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/rentgazer/internal/models"
	"github.com/langchou/rentgazer/internal/service"
)

const (
	defaultPredictionLimit = 20
	maxPredictionLimit     = 200
)

// Predict 价格预测
// POST /predict
// 校验失败返回 422；模型调用失败仍返回 200，错误放在 error 字段
func (h *Handler) Predict(c *gin.Context) {
	var req models.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		verr := models.NewValidationError(err)
		h.logger.Debug("Invalid prediction request", zap.Error(verr))
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Validation Error",
			"details": verr.Fields,
		})
		return
	}

	pred, err := h.pricing.Predict(c.Request.Context(), req.Features())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"predicted_price": pred.PredictedPrice})
}

// ListPredictions 最近的预测记录
func (h *Handler) ListPredictions(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultPredictionLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if limit < 1 || limit > maxPredictionLimit {
		limit = defaultPredictionLimit
	}

	items, err := h.pricing.Recent(c.Request.Context(), int(limit))
	if err != nil {
		if errors.Is(err, service.ErrPersistenceDisabled) {
			c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to list predictions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list predictions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
