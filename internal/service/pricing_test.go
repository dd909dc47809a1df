package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/langchou/rentgazer/internal/api/mlflow"
	"github.com/langchou/rentgazer/internal/models"
	"github.com/langchou/rentgazer/pkg/ws"
)

type fixedPredictor struct {
	price float64
	err   error
}

func (f fixedPredictor) Predict(ctx context.Context, features *models.PredictionFeatures) (float64, error) {
	return f.price, f.err
}

type memoryPredictions struct {
	mu    sync.Mutex
	items []*models.Prediction
	err   error
}

func (m *memoryPredictions) Create(ctx context.Context, p *models.Prediction) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = int64(len(m.items) + 1)
	m.items = append(m.items, p)
	return nil
}

func (m *memoryPredictions) ListRecent(ctx context.Context, limit int) ([]*models.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Prediction, 0, limit)
	for i := len(m.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.items[i])
	}
	return out, nil
}

func sampleFeatures() *models.PredictionFeatures {
	return &models.PredictionFeatures{
		ModelKey:    "Renault",
		Mileage:     120000,
		EnginePower: 110,
		Fuel:        "diesel",
		PaintColor:  "grey",
		CarType:     "estate",
		HasGPS:      true,
	}
}

func TestPricingPredict(t *testing.T) {
	store := &memoryPredictions{}
	hub := &recordingBroadcaster{}
	svc := NewPricingService(zap.NewNop(), fixedPredictor{price: 117.5}, store, hub)

	pred, err := svc.Predict(context.Background(), sampleFeatures())
	require.NoError(t, err)
	assert.InDelta(t, 117.5, pred.PredictedPrice, 1e-9)
	assert.Equal(t, int64(1), pred.ID)
	assert.Equal(t, []string{ws.MsgTypePrediction}, hub.types())

	recent, err := svc.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Renault", recent[0].Features.ModelKey)
}

func TestPricingPredictFailure(t *testing.T) {
	hub := &recordingBroadcaster{}
	svc := NewPricingService(zap.NewNop(), fixedPredictor{err: mlflow.ErrModelUnavailable}, nil, hub)

	_, err := svc.Predict(context.Background(), sampleFeatures())
	assert.ErrorIs(t, err, mlflow.ErrModelUnavailable)
	assert.Empty(t, hub.types())
}

func TestPricingStoreFailureDoesNotFailPrediction(t *testing.T) {
	store := &memoryPredictions{err: errors.New("connection refused")}
	svc := NewPricingService(zap.NewNop(), fixedPredictor{price: 80}, store, nil)

	pred, err := svc.Predict(context.Background(), sampleFeatures())
	require.NoError(t, err)
	assert.InDelta(t, 80.0, pred.PredictedPrice, 1e-9)
}

func TestPricingRecentWithoutStore(t *testing.T) {
	svc := NewPricingService(zap.NewNop(), fixedPredictor{price: 80}, nil, nil)
	_, err := svc.Recent(context.Background(), 5)
	assert.ErrorIs(t, err, ErrPersistenceDisabled)
}
