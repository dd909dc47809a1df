package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/rentgazer/internal/dataset"
)

const (
	defaultPreviewLimit = 20
	maxPreviewLimit     = 1000
)

// GetDataset 数据集概要与状态，未加载时只返回状态
func (h *Handler) GetDataset(c *gin.Context) {
	store := h.datasets.Store()
	resp := gin.H{"state": store.State()}

	snap, err := store.Snapshot()
	switch {
	case err == nil:
		resp["summary"] = snap.Summarize()
		resp["loaded_at"] = snap.LoadedAt
	case !errors.Is(err, dataset.ErrNotLoaded):
		h.respondError(c, err, "Failed to read dataset")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// PreviewDataset 返回前 limit 条记录，raw=true 时返回原始表格行
func (h *Handler) PreviewDataset(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultPreviewLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if limit < 1 || limit > maxPreviewLimit {
		limit = defaultPreviewLimit
	}

	raw, err := strconv.ParseBool(c.DefaultQuery("raw", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid raw: must be a boolean"})
		return
	}

	snap, err := h.datasets.Store().Snapshot()
	if err != nil {
		h.respondError(c, err, "Failed to read dataset")
		return
	}

	if raw {
		c.JSON(http.StatusOK, gin.H{
			"data":  snap.RawPreview(int(limit)),
			"total": snap.Frame.Nrow(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  snap.Preview(int(limit)),
		"total": len(snap.Records),
	})
}

// ReloadDataset 强制重新加载
// POST /api/dataset/reload
// 失败时保留上一份快照
func (h *Handler) ReloadDataset(c *gin.Context) {
	snap, err := h.datasets.Reload(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to reload dataset via API", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("Dataset reloaded via API", zap.Int("records", len(snap.Records)))
	c.JSON(http.StatusOK, gin.H{"data": snap.Summarize()})
}
