package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/langchou/rentgazer/internal/api/handlers"
	"github.com/langchou/rentgazer/internal/api/mlflow"
	"github.com/langchou/rentgazer/internal/config"
	"github.com/langchou/rentgazer/internal/dataset"
	"github.com/langchou/rentgazer/internal/repository"
	"github.com/langchou/rentgazer/internal/service"
	"github.com/langchou/rentgazer/pkg/ws"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting Rentgazer",
		zap.String("port", cfg.ServerPort),
		zap.String("dataset_source", cfg.DatasetSource),
	)

	// 创建 context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接数据库（可选）
	var (
		rentalRepo     *repository.RentalRepository
		predictionRepo service.PredictionStore
	)
	if cfg.PersistenceEnabled() {
		db, err := repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect database", zap.Error(err))
		}
		defer db.Close()

		// 执行数据库迁移
		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Info("Database migrated successfully")

		rentalRepo = repository.NewRentalRepository(db)
		predictionRepo = repository.NewPredictionRepository(db)
	}

	// 数据集加载器
	policy, err := dataset.ParseCategoryPolicy(cfg.CategoryPolicy)
	if err != nil {
		logger.Fatal("Invalid category policy", zap.Error(err))
	}
	loader := dataset.NewLoader(cfg.DatasetSheet, policy)
	loader.Encoding = cfg.DatasetEncoding

	// 选择数据源
	opts := service.DatasetOptions{RefreshSchedule: cfg.RefreshSchedule}
	var source dataset.Source
	switch cfg.DatasetSource {
	case config.SourcePostgres:
		source = service.NewPostgresSource(rentalRepo, loader)
	default:
		source = dataset.NewFileSource(cfg.DatasetPath, loader)
		if cfg.WatchDataset {
			opts.WatchPath = cfg.DatasetPath
			opts.WatchDebounce = cfg.WatchDebounce
		}
		if cfg.ImportToDatabase {
			opts.Importer = rentalRepo
		}
	}

	// 创建 WebSocket Hub
	wsHub := ws.NewHub(logger)
	go wsHub.Run(ctx)

	// 创建数据集服务
	datasetService, err := service.NewDatasetService(logger, source, wsHub, opts)
	if err != nil {
		logger.Fatal("Failed to create dataset service", zap.Error(err))
	}

	// 创建分析服务，快照替换时清空缓存
	analyticsService := service.NewAnalyticsService(logger, datasetService.Store(), cfg.MaxThreshold)
	datasetService.Store().OnReload(analyticsService.OnSnapshot)

	// 新连接的客户端先收到数据集状态和迟还统计
	wsHub.SetInitDataProvider(func() *ws.InitData {
		data := &ws.InitData{Dataset: datasetService.Store().State()}
		if lateness, err := analyticsService.Lateness(); err == nil {
			data.Lateness = lateness
		}
		return data
	})

	// 创建价格预测服务
	var pricingService *service.PricingService
	if cfg.ModelServingURL != "" {
		modelClient := mlflow.NewClient(cfg.ModelServingURL, cfg.PredictTimeout)
		if err := modelClient.Ping(ctx); err != nil {
			logger.Warn("Model serving not reachable, predictions will fail until it is up",
				zap.String("url", cfg.ModelServingURL),
				zap.Error(err),
			)
		}
		pricingService = service.NewPricingService(logger, modelClient, predictionRepo, wsHub)
	}

	// 启动数据集服务
	if err := datasetService.Start(ctx); err != nil {
		logger.Fatal("Failed to start dataset service", zap.Error(err))
	}

	// 创建 HTTP 处理器
	handler := handlers.NewHandler(
		logger,
		datasetService,
		analyticsService,
		pricingService,
		wsHub,
	)

	// 设置 Gin 模式
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// 注册路由
	handler.RegisterRoutes(router)

	// 启动 HTTP 服务器
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 停止服务
	datasetService.Stop()

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	cancel()
	logger.Info("Server exited")
}

// initLogger 初始化日志
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}

// corsMiddleware CORS 中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
