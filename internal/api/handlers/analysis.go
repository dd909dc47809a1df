package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/langchou/rentgazer/internal/analysis"
	"github.com/langchou/rentgazer/internal/models"
)

const (
	maxHistogramBins = 500
	defaultSweepStep = 30
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// GetThreshold 阈值分析
// GET /api/analysis/threshold?threshold=N[&include_rentals=true]
func (h *Handler) GetThreshold(c *gin.Context) {
	t, ok := threshold(c)
	if !ok {
		return
	}
	includeRentals, err := strconv.ParseBool(c.DefaultQuery("include_rentals", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid include_rentals: must be a boolean"})
		return
	}

	result, err := h.analytics.Threshold(t)
	if err != nil {
		h.respondError(c, err, "Failed to analyze threshold")
		return
	}

	if includeRentals {
		c.JSON(http.StatusOK, gin.H{"data": result})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result.WithoutRentals()})
}

// GetResolved 指定取车方式下的已解决问题单数量
func (h *Handler) GetResolved(c *gin.Context) {
	t, ok := threshold(c)
	if !ok {
		return
	}
	channel, err := models.ParseCheckinType(c.Query("channel"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	resolved, err := h.analytics.ResolvedForChannel(t, channel)
	if err != nil {
		h.respondError(c, err, "Failed to analyze threshold")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"channel":   channel,
			"threshold": t,
			"resolved":  resolved,
		},
	})
}

// GetLateness 迟还统计
func (h *Handler) GetLateness(c *gin.Context) {
	result, err := h.analytics.Lateness()
	if err != nil {
		h.respondError(c, err, "Failed to analyze lateness")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetNextDriverImpact 对下一位司机的影响
func (h *Handler) GetNextDriverImpact(c *gin.Context) {
	result, err := h.analytics.NextDriverImpact()
	if err != nil {
		h.respondError(c, err, "Failed to analyze next driver impact")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetStates 状态分布
func (h *Handler) GetStates(c *gin.Context) {
	result, err := h.analytics.States()
	if err != nil {
		h.respondError(c, err, "Failed to compute state distribution")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetSweep 阈值扫描，默认 0..MAX_THRESHOLD 步长 30
func (h *Handler) GetSweep(c *gin.Context) {
	from, err := queryInt(c, "from", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := queryInt(c, "to", h.analytics.MaxThreshold())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	step, err := queryInt(c, "step", defaultSweepStep)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	points, err := h.analytics.Sweep(from, to, step)
	if err != nil {
		h.respondError(c, err, "Failed to sweep thresholds")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": points})
}

// GetHistogram 直方图
// GET /api/analysis/histogram?field=delay|time_delta&bins=N
func (h *Handler) GetHistogram(c *gin.Context) {
	field := c.DefaultQuery("field", analysis.FieldDelay)
	var defaultBins int64
	switch field {
	case analysis.FieldDelay:
		defaultBins = analysis.DefaultDelayBins
	case analysis.FieldTimeDelta:
		defaultBins = analysis.DefaultTimeDeltaBins
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid field: must be %s or %s", analysis.FieldDelay, analysis.FieldTimeDelta),
		})
		return
	}

	bins, err := queryInt(c, "bins", defaultBins)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if bins < 1 || bins > maxHistogramBins {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid bins: must be between 1 and %d", maxHistogramBins)})
		return
	}

	hist, err := h.analytics.Histogram(field, int(bins))
	if err != nil {
		h.respondError(c, err, "Failed to build histogram")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": hist})
}

// GetSummary 延误概要
func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.analytics.Summary()
	if err != nil {
		h.respondError(c, err, "Failed to summarize delays")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// DownloadReport 下载 xlsx 报表
func (h *Handler) DownloadReport(c *gin.Context) {
	t, ok := threshold(c)
	if !ok {
		return
	}

	buf, err := h.analytics.Report(t)
	if err != nil {
		h.respondError(c, err, "Failed to build report")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="delay_impact_%d.xlsx"`, t))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
