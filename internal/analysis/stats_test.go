package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langchou/rentgazer/internal/models"
)

func TestHistogram(t *testing.T) {
	records := []models.RentalRecord{
		rec(1, models.CheckinConnect, nil, p(0)),
		rec(2, models.CheckinConnect, nil, p(10)),
		rec(3, models.CheckinMobile, nil, p(20)),
		rec(4, models.CheckinMobile, nil, p(40)),
		rec(5, models.CheckinMobile, nil, nil),
	}

	h, err := Histogram(records, FieldDelay, 4)
	require.NoError(t, err)
	assert.Equal(t, FieldDelay, h.Field)
	assert.Equal(t, 4, h.Values)
	require.Len(t, h.Bins, 4)

	counts := make([]int, 0, len(h.Bins))
	total := 0
	for _, b := range h.Bins {
		counts = append(counts, b.Count)
		total += b.Count
	}
	assert.Equal(t, []int{1, 1, 1, 1}, counts)
	assert.Equal(t, 4, total)
	assert.Equal(t, 0.0, h.Bins[0].Lower)
	assert.Equal(t, 10.0, h.Bins[0].Upper)
	assert.Greater(t, h.Bins[3].Upper, 40.0)
}

func TestHistogramEdgeCases(t *testing.T) {
	t.Run("no values", func(t *testing.T) {
		h, err := Histogram([]models.RentalRecord{rec(1, models.CheckinConnect, nil, nil)}, FieldTimeDelta, 10)
		require.NoError(t, err)
		assert.Equal(t, 0, h.Values)
		assert.Empty(t, h.Bins)
	})

	t.Run("single distinct value", func(t *testing.T) {
		records := []models.RentalRecord{
			rec(1, models.CheckinConnect, p(30), nil),
			rec(2, models.CheckinConnect, p(30), nil),
		}
		h, err := Histogram(records, FieldTimeDelta, 3)
		require.NoError(t, err)
		require.Len(t, h.Bins, 3)
		assert.Equal(t, 2, h.Bins[0].Count)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		_, err := Histogram(nil, FieldDelay, 0)
		assert.Error(t, err)
		_, err = Histogram(nil, "mileage", 10)
		assert.Error(t, err)
	})
}

func TestSummarizeDelays(t *testing.T) {
	records := []models.RentalRecord{
		rec(1, models.CheckinConnect, nil, p(-10)),
		rec(2, models.CheckinConnect, nil, p(0)),
		rec(3, models.CheckinMobile, nil, p(40)),
		rec(4, models.CheckinMobile, nil, nil),
	}
	s := SummarizeDelays(records)
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 10.0, s.Mean, 1e-9)
	assert.Equal(t, 0.0, s.Median)
	assert.Equal(t, -10.0, s.Min)
	assert.Equal(t, 40.0, s.Max)

	empty := SummarizeDelays(nil)
	assert.Equal(t, 0, empty.Count)
	assert.Equal(t, 0.0, empty.Mean)
}
