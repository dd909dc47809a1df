package analysis

import (
	"sync"

	"github.com/langchou/rentgazer/internal/models"
)

// Cache 按阈值缓存同一份记录快照上的分析结果
// 快照替换时调用 Reset，缓存只影响性能，不改变结果
type Cache struct {
	mu        sync.RWMutex
	records   []models.RentalRecord
	threshold map[int64]*models.AnalysisResult
	lateness  *models.LatenessResult
	hits      uint64
	misses    uint64
}

// NewCache 创建缓存
func NewCache(records []models.RentalRecord) *Cache {
	return &Cache{
		records:   records,
		threshold: make(map[int64]*models.AnalysisResult),
	}
}

// Reset 切换到新的记录快照并清空缓存
func (c *Cache) Reset(records []models.RentalRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = records
	c.threshold = make(map[int64]*models.AnalysisResult)
	c.lateness = nil
}

// Records 当前快照
func (c *Cache) Records() []models.RentalRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.records
}

// Threshold 返回阈值分析结果，未命中时计算并写入
func (c *Cache) Threshold(thresholdMinutes int64) (*models.AnalysisResult, error) {
	c.mu.RLock()
	res, ok := c.threshold[thresholdMinutes]
	records := c.records
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return res, nil
	}

	res, err := AnalyzeThreshold(records, thresholdMinutes)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses++
	// 计算期间快照可能已被替换，此时不写入
	if sameSnapshot(c.records, records) {
		c.threshold[thresholdMinutes] = res
	}
	return res, nil
}

// Lateness 返回迟还统计，结果与阈值无关，只计算一次
func (c *Cache) Lateness() (*models.LatenessResult, error) {
	c.mu.RLock()
	res := c.lateness
	records := c.records
	c.mu.RUnlock()
	if res != nil {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return res, nil
	}

	res, err := AnalyzeLateness(records)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses++
	if sameSnapshot(c.records, records) {
		c.lateness = res
	}
	return res, nil
}

// Stats 阈值与迟还查询的命中与未命中次数
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func sameSnapshot(a, b []models.RentalRecord) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return &a[0] == &b[0]
}
