package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/langchou/rentgazer/internal/models"
)

// PredictionRepository 价格预测记录仓库
type PredictionRepository struct {
	db *DB
}

// NewPredictionRepository 创建预测记录仓库
func NewPredictionRepository(db *DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// Create 记录一次预测
func (r *PredictionRepository) Create(ctx context.Context, p *models.Prediction) error {
	query := `
		INSERT INTO predictions (features, predicted_price, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	now := time.Now()
	if err := r.db.Pool.QueryRow(ctx, query, p.Features, p.PredictedPrice, now).Scan(&p.ID); err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	p.CreatedAt = now
	return nil
}

// ListRecent 最近的预测记录
func (r *PredictionRepository) ListRecent(ctx context.Context, limit int) ([]*models.Prediction, error) {
	query := `
		SELECT id, features, predicted_price, created_at
		FROM predictions
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var predictions []*models.Prediction
	for rows.Next() {
		p := &models.Prediction{}
		if err := rows.Scan(&p.ID, &p.Features, &p.PredictedPrice, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate predictions: %w", err)
	}
	return predictions, nil
}
