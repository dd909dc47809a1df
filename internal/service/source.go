package service

import (
	"context"

	"github.com/langchou/rentgazer/internal/dataset"
	"github.com/langchou/rentgazer/internal/models"
)

// RentalStore 租赁记录的持久化存储
type RentalStore interface {
	ReplaceAll(ctx context.Context, records []models.RentalRecord) (int64, error)
	ListAll(ctx context.Context) ([]models.RentalRecord, error)
}

// PostgresSource 从 rentals 表读取数据集
type PostgresSource struct {
	repo   RentalStore
	loader *dataset.Loader
}

// NewPostgresSource 创建数据库数据源
func NewPostgresSource(repo RentalStore, loader *dataset.Loader) *PostgresSource {
	return &PostgresSource{repo: repo, loader: loader}
}

// Name 数据源名称
func (s *PostgresSource) Name() string {
	return "postgres:rentals"
}

// Load 读取全部记录
func (s *PostgresSource) Load(ctx context.Context) (*dataset.Snapshot, error) {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.loader.FromRecords(s.Name(), records)
}
