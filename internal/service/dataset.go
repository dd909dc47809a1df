package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/rentgazer/internal/dataset"
	"github.com/langchou/rentgazer/pkg/ws"
)

// Broadcaster 向仪表盘推送消息
type Broadcaster interface {
	BroadcastMessage(msgType string, data interface{})
}

// StateChange 数据集状态变化
type StateChange struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	At   time.Time `json:"at"`
}

// DatasetService 管理数据集的加载、监听、定时刷新和导入数据库
type DatasetService struct {
	logger      *zap.Logger
	store       *dataset.Store
	broadcaster Broadcaster
	importer    RentalStore

	watchPath     string
	watchDebounce time.Duration
	refresher     *Refresher

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// DatasetOptions 可选组件
type DatasetOptions struct {
	// WatchPath 非空时监听该文件并在变化后重新加载
	WatchPath     string
	WatchDebounce time.Duration
	// Importer 非空时每次加载成功后把快照写入数据库，数据源是数据库时不要设置
	Importer RentalStore
	// RefreshSchedule 非空时按 cron 表达式定时重新加载
	RefreshSchedule string
}

// NewDatasetService 创建数据集服务，source 决定数据来自文件还是数据库
func NewDatasetService(logger *zap.Logger, source dataset.Source, broadcaster Broadcaster, opts DatasetOptions) (*DatasetService, error) {
	svc := &DatasetService{
		logger:        logger,
		broadcaster:   broadcaster,
		importer:      opts.Importer,
		watchPath:     opts.WatchPath,
		watchDebounce: opts.WatchDebounce,
	}
	svc.store = dataset.NewStore(source, logger, svc.onStateChange)

	if opts.RefreshSchedule != "" {
		refresher, err := NewRefresher(logger, opts.RefreshSchedule, svc.reload)
		if err != nil {
			return nil, err
		}
		svc.refresher = refresher
	}

	if svc.importer != nil {
		svc.store.OnReload(svc.importSnapshot)
	}
	svc.store.OnReload(svc.broadcastSnapshot)

	return svc, nil
}

// Store 数据集存储
func (s *DatasetService) Store() *dataset.Store {
	return s.store
}

// Start 首次加载并启动监听与定时刷新
// 首次加载失败不会阻止服务启动，接口返回 503 直到加载成功
func (s *DatasetService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Info("Dataset service already running, skipping start")
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.logger.Info("Starting dataset service", zap.String("source", s.store.SourceName()))

	if _, err := s.store.Load(ctx); err != nil {
		s.logger.Warn("Initial dataset load failed", zap.Error(err))
	}

	if s.watchPath != "" {
		watcher, err := dataset.NewWatcher(s.watchPath, s.watchDebounce, s.logger)
		if err != nil {
			cancel()
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return fmt.Errorf("watch dataset: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := watcher.Watch(ctx, func(string) { s.reload(ctx) }); err != nil {
				s.logger.Error("Dataset watcher stopped", zap.Error(err))
			}
		}()
	}

	if s.refresher != nil {
		s.refresher.Start()
	}

	s.logger.Info("Dataset service started")
	return nil
}

// Stop 停止监听与定时刷新
func (s *DatasetService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	s.logger.Info("Stopping dataset service")
	if s.refresher != nil {
		s.refresher.Stop()
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("Dataset service stopped")
}

// Reload 手动重新加载
func (s *DatasetService) Reload(ctx context.Context) (*dataset.Snapshot, error) {
	return s.store.Load(ctx)
}

func (s *DatasetService) reload(ctx context.Context) {
	if _, err := s.store.Load(ctx); err != nil {
		s.logger.Warn("Dataset reload failed", zap.Error(err))
	}
}

func (s *DatasetService) onStateChange(from, to string) {
	s.logger.Info("Dataset state changed", zap.String("from", from), zap.String("to", to))
	if s.broadcaster != nil {
		s.broadcaster.BroadcastMessage(ws.MsgTypeDatasetState, StateChange{From: from, To: to, At: time.Now()})
	}
}

func (s *DatasetService) broadcastSnapshot(snap *dataset.Snapshot) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastMessage(ws.MsgTypeDatasetUpdated, snap.Summarize())
}

// importSnapshot 文件快照写入数据库
func (s *DatasetService) importSnapshot(snap *dataset.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	n, err := s.importer.ReplaceAll(ctx, snap.Records)
	if err != nil {
		s.logger.Error("Failed to import dataset into database", zap.Error(err))
		return
	}
	s.logger.Info("Dataset imported into database", zap.Int64("rows", n))
}
