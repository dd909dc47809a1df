package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/rentgazer/pkg/ws"
)

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.Welcome)

	// API 路由
	api := r.Group("/api")
	{
		// 数据集
		api.GET("/dataset", h.GetDataset)
		api.GET("/dataset/preview", h.PreviewDataset)
		api.POST("/dataset/reload", h.ReloadDataset)

		// 分析
		api.GET("/analysis/threshold", h.GetThreshold)
		api.GET("/analysis/threshold/resolved", h.GetResolved)
		api.GET("/analysis/lateness", h.GetLateness)
		api.GET("/analysis/next-driver", h.GetNextDriverImpact)
		api.GET("/analysis/states", h.GetStates)
		api.GET("/analysis/sweep", h.GetSweep)
		api.GET("/analysis/histogram", h.GetHistogram)
		api.GET("/analysis/summary", h.GetSummary)
		api.GET("/analysis/report", h.DownloadReport)

		// 预测记录
		if h.pricing != nil {
			api.GET("/predictions", h.ListPredictions)
		}
	}

	if h.pricing != nil {
		r.POST("/predict", h.Predict)
	}

	// WebSocket
	r.GET("/ws", h.HandleWebSocket)

	// 健康检查
	r.GET("/health", h.HealthCheck)
}

// Welcome 根路径
func (h *Handler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the Car Rental Delay Analysis API"})
}

// HandleWebSocket WebSocket 处理
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Register()

	// 启动读写协程
	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	hits, misses := h.analytics.CacheStats()
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"dataset":      h.datasets.Store().State().CurrentState,
		"ws_clients":   h.wsHub.ClientCount(),
		"cache_hits":   hits,
		"cache_misses": misses,
	})
}
