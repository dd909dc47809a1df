package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/langchou/rentgazer/internal/models"
	"github.com/langchou/rentgazer/pkg/ws"
)

// ErrPersistenceDisabled 未配置数据库
var ErrPersistenceDisabled = errors.New("prediction history requires a database")

// Predictor 价格预测模型
type Predictor interface {
	Predict(ctx context.Context, features *models.PredictionFeatures) (float64, error)
}

// PredictionStore 预测记录存储
type PredictionStore interface {
	Create(ctx context.Context, p *models.Prediction) error
	ListRecent(ctx context.Context, limit int) ([]*models.Prediction, error)
}

// PricingService 价格预测服务
type PricingService struct {
	logger      *zap.Logger
	predictor   Predictor
	store       PredictionStore
	broadcaster Broadcaster
}

// NewPricingService 创建价格预测服务，store 和 broadcaster 可以为 nil
func NewPricingService(logger *zap.Logger, predictor Predictor, store PredictionStore, broadcaster Broadcaster) *PricingService {
	return &PricingService{
		logger:      logger,
		predictor:   predictor,
		store:       store,
		broadcaster: broadcaster,
	}
}

// Predict 调用模型预测价格，成功后记录
// 记录失败只写日志，不影响预测结果
func (s *PricingService) Predict(ctx context.Context, features *models.PredictionFeatures) (*models.Prediction, error) {
	price, err := s.predictor.Predict(ctx, features)
	if err != nil {
		s.logger.Error("Prediction failed", zap.String("model_key", features.ModelKey), zap.Error(err))
		return nil, err
	}

	p := &models.Prediction{Features: *features, PredictedPrice: price}
	if s.store != nil {
		if err := s.store.Create(ctx, p); err != nil {
			s.logger.Warn("Failed to record prediction", zap.Error(err))
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastMessage(ws.MsgTypePrediction, p)
	}

	s.logger.Debug("Prediction done",
		zap.String("model_key", features.ModelKey),
		zap.Float64("predicted_price", price),
	)
	return p, nil
}

// Recent 最近的预测记录
func (s *PricingService) Recent(ctx context.Context, limit int) ([]*models.Prediction, error) {
	if s.store == nil {
		return nil, ErrPersistenceDisabled
	}
	return s.store.ListRecent(ctx, limit)
}
