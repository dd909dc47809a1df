package service

import (
	"bytes"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/langchou/rentgazer/internal/analysis"
	"github.com/langchou/rentgazer/internal/dataset"
	"github.com/langchou/rentgazer/internal/models"
	"github.com/langchou/rentgazer/internal/report"
)

// ErrThresholdOutOfRange 阈值超过接口允许的上限
var ErrThresholdOutOfRange = errors.New("threshold out of range")

// SnapshotProvider 当前数据快照的来源
type SnapshotProvider interface {
	Snapshot() (*dataset.Snapshot, error)
}

// AnalyticsService 在当前快照上执行分析
type AnalyticsService struct {
	logger       *zap.Logger
	snapshots    SnapshotProvider
	cache        *analysis.Cache
	report       *report.Builder
	maxThreshold int64
}

// NewAnalyticsService 创建分析服务
func NewAnalyticsService(logger *zap.Logger, snapshots SnapshotProvider, maxThreshold int64) *AnalyticsService {
	return &AnalyticsService{
		logger:       logger,
		snapshots:    snapshots,
		cache:        analysis.NewCache(nil),
		report:       report.NewBuilder(language.English),
		maxThreshold: maxThreshold,
	}
}

// OnSnapshot 快照替换时清空缓存，注册到 dataset.Store.OnReload
func (s *AnalyticsService) OnSnapshot(snap *dataset.Snapshot) {
	s.cache.Reset(snap.Records)
	s.logger.Debug("Analysis cache reset", zap.Int("records", len(snap.Records)))
}

// MaxThreshold 接口允许的最大阈值
func (s *AnalyticsService) MaxThreshold() int64 {
	return s.maxThreshold
}

// CacheStats 分析缓存命中情况
func (s *AnalyticsService) CacheStats() (hits, misses uint64) {
	return s.cache.Stats()
}

// records 当前快照的记录
func (s *AnalyticsService) records() ([]models.RentalRecord, error) {
	snap, err := s.snapshots.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Records, nil
}

func (s *AnalyticsService) checkThreshold(threshold int64) error {
	if threshold < 0 {
		return fmt.Errorf("threshold %d: %w", threshold, analysis.ErrNegativeThreshold)
	}
	if threshold > s.maxThreshold {
		return fmt.Errorf("threshold %d exceeds %d: %w", threshold, s.maxThreshold, ErrThresholdOutOfRange)
	}
	return nil
}

// syncCache 保证缓存指向当前快照
func (s *AnalyticsService) syncCache() error {
	records, err := s.records()
	if err != nil {
		return err
	}
	current := s.cache.Records()
	if len(current) != len(records) || (len(records) > 0 && &current[0] != &records[0]) {
		s.cache.Reset(records)
	}
	return nil
}

// Threshold 阈值分析
func (s *AnalyticsService) Threshold(threshold int64) (*models.AnalysisResult, error) {
	if err := s.checkThreshold(threshold); err != nil {
		return nil, err
	}
	if err := s.syncCache(); err != nil {
		return nil, err
	}
	return s.cache.Threshold(threshold)
}

// ResolvedForChannel 指定取车方式的已解决问题单数量
func (s *AnalyticsService) ResolvedForChannel(threshold int64, channel models.CheckinType) (int, error) {
	result, err := s.Threshold(threshold)
	if err != nil {
		return 0, err
	}
	return analysis.SelectResolvedForChannel(result, channel)
}

// Lateness 迟还统计
func (s *AnalyticsService) Lateness() (*models.LatenessResult, error) {
	if err := s.syncCache(); err != nil {
		return nil, err
	}
	return s.cache.Lateness()
}

// NextDriverImpact 对下一位司机的影响
func (s *AnalyticsService) NextDriverImpact() (*models.NextDriverImpact, error) {
	records, err := s.records()
	if err != nil {
		return nil, err
	}
	return analysis.AnalyzeNextDriverImpact(records), nil
}

// States 状态分布
func (s *AnalyticsService) States() (*models.StateDistribution, error) {
	records, err := s.records()
	if err != nil {
		return nil, err
	}
	return analysis.StateDistribution(records)
}

// Sweep 阈值扫描
func (s *AnalyticsService) Sweep(from, to, step int64) ([]models.SweepPoint, error) {
	if err := s.checkThreshold(to); err != nil {
		return nil, err
	}
	records, err := s.records()
	if err != nil {
		return nil, err
	}
	return analysis.SweepThresholds(records, from, to, step)
}

// Histogram 直方图
func (s *AnalyticsService) Histogram(field string, bins int) (*models.Histogram, error) {
	records, err := s.records()
	if err != nil {
		return nil, err
	}
	return analysis.Histogram(records, field, bins)
}

// Summary 延误概要
func (s *AnalyticsService) Summary() (*models.DelaySummary, error) {
	records, err := s.records()
	if err != nil {
		return nil, err
	}
	return analysis.SummarizeDelays(records), nil
}

// Report 生成 xlsx 报表
func (s *AnalyticsService) Report(threshold int64) (*bytes.Buffer, error) {
	result, err := s.Threshold(threshold)
	if err != nil {
		return nil, err
	}
	lateness, err := s.Lateness()
	if err != nil {
		return nil, err
	}

	buf, err := s.report.Build(result, lateness)
	if err != nil {
		s.logger.Error("Failed to build report", zap.Int64("threshold", threshold), zap.Error(err))
		return nil, fmt.Errorf("build report: %w", err)
	}
	return buf, nil
}
