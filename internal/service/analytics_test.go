package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/langchou/rentgazer/internal/analysis"
	"github.com/langchou/rentgazer/internal/dataset"
	"github.com/langchou/rentgazer/internal/models"
	"github.com/langchou/rentgazer/internal/report"
)

func TestAnalyticsNotLoaded(t *testing.T) {
	svc := NewAnalyticsService(zap.NewNop(), &staticSnapshots{}, 720)

	_, err := svc.Threshold(30)
	assert.ErrorIs(t, err, dataset.ErrNotLoaded)
	_, err = svc.Lateness()
	assert.ErrorIs(t, err, dataset.ErrNotLoaded)
	_, err = svc.States()
	assert.ErrorIs(t, err, dataset.ErrNotLoaded)
	_, err = svc.Summary()
	assert.ErrorIs(t, err, dataset.ErrNotLoaded)
}

func TestAnalyticsThresholdBounds(t *testing.T) {
	svc := NewAnalyticsService(zap.NewNop(), &staticSnapshots{snap: testSnapshot()}, 720)

	_, err := svc.Threshold(-1)
	assert.ErrorIs(t, err, analysis.ErrNegativeThreshold)

	_, err = svc.Threshold(721)
	assert.ErrorIs(t, err, ErrThresholdOutOfRange)

	_, err = svc.Sweep(0, 1000, 60)
	assert.ErrorIs(t, err, ErrThresholdOutOfRange)

	res, err := svc.Threshold(720)
	require.NoError(t, err)
	assert.Equal(t, int64(720), res.ThresholdMinutes)
	assert.Equal(t, 720, int(svc.MaxThreshold()))
}

func TestAnalyticsMatchesAnalyzer(t *testing.T) {
	snap := testSnapshot()
	svc := NewAnalyticsService(zap.NewNop(), &staticSnapshots{snap: snap}, 720)

	got, err := svc.Threshold(20)
	require.NoError(t, err)
	want, err := analysis.AnalyzeThreshold(snap.Records, 20)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = svc.Threshold(20)
	require.NoError(t, err)
	hits, misses := svc.CacheStats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)

	resolved, err := svc.ResolvedForChannel(20, models.CheckinConnect)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	resolved, err = svc.ResolvedForChannel(20, models.CheckinMobile)
	require.NoError(t, err)
	assert.Equal(t, 0, resolved)

	lateness, err := svc.Lateness()
	require.NoError(t, err)
	wantLateness, err := analysis.AnalyzeLateness(snap.Records)
	require.NoError(t, err)
	assert.Equal(t, wantLateness, lateness)
}

func TestAnalyticsFollowsSnapshotSwap(t *testing.T) {
	snaps := &staticSnapshots{snap: testSnapshot()}
	svc := NewAnalyticsService(zap.NewNop(), snaps, 720)

	res, err := svc.Threshold(20)
	require.NoError(t, err)
	assert.Equal(t, 2, res.AffectedTotal)

	next := &dataset.Snapshot{
		Source: "next",
		Records: []models.RentalRecord{
			rental(1, models.CheckinMobile, p(500), p(3)),
		},
	}
	snaps.set(next)

	res, err = svc.Threshold(20)
	require.NoError(t, err)
	assert.Equal(t, 0, res.AffectedTotal)
	assert.Equal(t, 1, res.Mobile.Total)

	// 通过 OnSnapshot 通知也能切换
	svc.OnSnapshot(testSnapshot())
	snaps.set(testSnapshot())
	res, err = svc.Threshold(20)
	require.NoError(t, err)
	assert.Equal(t, 2, res.AffectedTotal)
}

func TestAnalyticsDerivedViews(t *testing.T) {
	svc := NewAnalyticsService(zap.NewNop(), &staticSnapshots{snap: testSnapshot()}, 720)

	impact, err := svc.NextDriverImpact()
	require.NoError(t, err)
	assert.Equal(t, 3, impact.TotalRentals)
	assert.Equal(t, 1, impact.OverlappingRentals)

	states, err := svc.States()
	require.NoError(t, err)
	assert.Equal(t, 3, states.Total)

	points, err := svc.Sweep(0, 60, 30)
	require.NoError(t, err)
	assert.Len(t, points, 3)

	hist, err := svc.Histogram(analysis.FieldTimeDelta, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, hist.Values)

	summary, err := svc.Summary()
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count)
}

func TestAnalyticsReport(t *testing.T) {
	svc := NewAnalyticsService(zap.NewNop(), &staticSnapshots{snap: testSnapshot()}, 720)

	buf, err := svc.Report(20)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{report.SheetThreshold, report.SheetLateness, report.SheetAffected}, f.GetSheetList())

	_, err = svc.Report(-5)
	assert.ErrorIs(t, err, analysis.ErrNegativeThreshold)
}
