package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langchou/rentgazer/internal/models"
)

// openTestDB 需要设置 TEST_DATABASE_URL 指向一个可清空的 PostgreSQL
func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	return db
}

func TestRentalRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewRentalRepository(db)
	ctx := context.Background()

	records := []models.RentalRecord{
		{RentalID: 2, CarID: 7, CheckinType: models.CheckinMobile, State: models.StateCancelled,
			PreviousEndedRentalID: models.Int64Ptr(1), TimeDeltaWithPrevious: models.Int64Ptr(-20)},
		{RentalID: 1, CarID: 7, CheckinType: models.CheckinConnect, State: models.StateEnded, DelayAtCheckout: models.Int64Ptr(12)},
	}

	n, err := repo.ReplaceAll(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, records[1], got[0])
	assert.Equal(t, records[0], got[1])

	n, err = repo.ReplaceAll(ctx, records[:1])
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPredictionRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewPredictionRepository(db)
	ctx := context.Background()

	p := &models.Prediction{
		Features: models.PredictionFeatures{
			ModelKey: "Renault", Mileage: 100000, EnginePower: 120,
			Fuel: "diesel", PaintColor: "black", CarType: "estate", HasGPS: true,
		},
		PredictedPrice: 118.5,
	}
	require.NoError(t, repo.Create(ctx, p))
	assert.NotZero(t, p.ID)

	recent, err := repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, p.ID, recent[0].ID)
	assert.Equal(t, p.Features, recent[0].Features)
	assert.InDelta(t, 118.5, recent[0].PredictedPrice, 1e-9)
}
