package analysis

import (
	"errors"
	"fmt"

	"github.com/langchou/rentgazer/internal/models"
)

// ErrInvalidSweep 扫描区间参数错误
var ErrInvalidSweep = errors.New("invalid threshold sweep")

// AnalyzeNextDriverImpact 统计与上一单重叠（间隔 < 0）的租赁，以及上一单迟还后被取消的租赁
func AnalyzeNextDriverImpact(records []models.RentalRecord) *models.NextDriverImpact {
	impact := &models.NextDriverImpact{TotalRentals: len(records)}

	for _, r := range records {
		if r.TimeDeltaWithPrevious != nil && *r.TimeDeltaWithPrevious < 0 {
			impact.OverlappingRentals++
		}
		if r.State == models.StateCancelled && r.IsLate() && r.PreviousEndedRentalID != nil {
			impact.CancelledAfterLateCheckout++
		}
	}
	impact.PercentageOverlapping = percentage(impact.OverlappingRentals, impact.TotalRentals)

	return impact
}

// StateDistribution 租赁状态分布，未知状态返回 ErrUnrecognizedCategory
func StateDistribution(records []models.RentalRecord) (*models.StateDistribution, error) {
	counts := make(map[models.RentalState]int, len(models.States))
	for _, r := range records {
		switch r.State {
		case models.StateEnded, models.StateCancelled:
			counts[r.State]++
		default:
			return nil, fmt.Errorf("record %d state %q: %w", r.RentalID, r.State, ErrUnrecognizedCategory)
		}
	}

	dist := &models.StateDistribution{Total: len(records)}
	for _, s := range models.States {
		dist.States = append(dist.States, models.StateShare{
			State:      s,
			Count:      counts[s],
			Percentage: percentage(counts[s], len(records)),
		})
	}
	return dist, nil
}

// SweepThresholds 在 [from, to] 区间按 step 依次计算阈值分析
func SweepThresholds(records []models.RentalRecord, from, to, step int64) ([]models.SweepPoint, error) {
	if from < 0 {
		return nil, fmt.Errorf("sweep from %d: %w", from, ErrNegativeThreshold)
	}
	if step <= 0 || to < from {
		return nil, fmt.Errorf("sweep from=%d to=%d step=%d: %w", from, to, step, ErrInvalidSweep)
	}

	points := make([]models.SweepPoint, 0, (to-from)/step+1)
	for t := from; t <= to; t += step {
		res, err := AnalyzeThreshold(records, t)
		if err != nil {
			return nil, err
		}
		points = append(points, models.SweepPoint{
			ThresholdMinutes:          t,
			AffectedConnect:           res.Connect.Affected,
			AffectedMobile:            res.Mobile.Affected,
			PercentageAffectedConnect: res.Connect.PercentageAffected,
			PercentageAffectedMobile:  res.Mobile.PercentageAffected,
			ResolvedConnect:           res.Connect.Resolved,
			ResolvedMobile:            res.Mobile.Resolved,
		})
	}
	return points, nil
}
