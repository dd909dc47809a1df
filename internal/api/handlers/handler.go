package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/langchou/rentgazer/internal/analysis"
	"github.com/langchou/rentgazer/internal/dataset"
	"github.com/langchou/rentgazer/internal/service"
	"github.com/langchou/rentgazer/pkg/ws"
)

// Handler HTTP 处理器
type Handler struct {
	logger    *zap.Logger
	datasets  *service.DatasetService
	analytics *service.AnalyticsService
	pricing   *service.PricingService
	wsHub     *ws.Hub
	upgrader  websocket.Upgrader
}

// NewHandler 创建处理器，pricing 为 nil 时不注册预测接口
func NewHandler(
	logger *zap.Logger,
	datasets *service.DatasetService,
	analytics *service.AnalyticsService,
	pricing *service.PricingService,
	wsHub *ws.Hub,
) *Handler {
	return &Handler{
		logger:    logger,
		datasets:  datasets,
		analytics: analytics,
		pricing:   pricing,
		wsHub:     wsHub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 开发环境允许所有来源
			},
		},
	}
}

// respondError 按错误类型映射状态码
func (h *Handler) respondError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, dataset.ErrNotLoaded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Dataset not loaded"})
	case errors.Is(err, analysis.ErrNegativeThreshold),
		errors.Is(err, analysis.ErrInvalidSweep),
		errors.Is(err, service.ErrThresholdOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// queryInt 读取整数查询参数，缺省时返回 def
func queryInt(c *gin.Context, key string, def int64) (int64, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + key + ": must be an integer")
	}
	return v, nil
}

// threshold 读取必填的 threshold 参数
func threshold(c *gin.Context) (int64, bool) {
	raw, ok := c.GetQuery("threshold")
	if !ok || raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold is required"})
		return 0, false
	}
	t, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid threshold: must be an integer number of minutes"})
		return 0, false
	}
	return t, true
}
