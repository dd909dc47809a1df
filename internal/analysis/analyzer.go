// Package analysis 实现还车延误对下一单影响的分析。
//
// 所有函数都是纯函数：只读输入切片，不保留状态，可以在同一份快照上并发调用。
package analysis

import (
	"errors"
	"fmt"

	"github.com/langchou/rentgazer/internal/models"
)

var (
	// ErrNegativeThreshold 阈值不能为负
	ErrNegativeThreshold = errors.New("threshold must be non-negative")
	// ErrUnrecognizedCategory 未知的取车方式或租赁状态
	ErrUnrecognizedCategory = errors.New("unrecognized category")
)

// percentage 计算百分比，分母为 0 时返回 0
func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// AnalyzeThreshold 计算与上一单间隔小于阈值的租赁（受影响租赁）及其中上一单迟还的部分
func AnalyzeThreshold(records []models.RentalRecord, thresholdMinutes int64) (*models.AnalysisResult, error) {
	if thresholdMinutes < 0 {
		return nil, fmt.Errorf("analyze threshold %d: %w", thresholdMinutes, ErrNegativeThreshold)
	}

	result := &models.AnalysisResult{
		ThresholdMinutes: thresholdMinutes,
		Connect:          models.ChannelImpact{Channel: models.CheckinConnect},
		Mobile:           models.ChannelImpact{Channel: models.CheckinMobile},
	}

	for i := range records {
		r := records[i]
		impact, ok := result.Channel(r.CheckinType)
		if !ok {
			return nil, fmt.Errorf("record %d checkin_type %q: %w", r.RentalID, r.CheckinType, ErrUnrecognizedCategory)
		}

		// 分母是该方式的全部租赁，与阈值无关
		impact.Total++

		// 没有上一单的租赁永远不受影响
		if r.TimeDeltaWithPrevious == nil || *r.TimeDeltaWithPrevious >= thresholdMinutes {
			continue
		}

		impact.AffectedRentals = append(impact.AffectedRentals, r)
		if r.IsLate() {
			impact.ResolvedRentals = append(impact.ResolvedRentals, r)
		}
	}

	for _, impact := range []*models.ChannelImpact{&result.Connect, &result.Mobile} {
		impact.Affected = len(impact.AffectedRentals)
		impact.Resolved = len(impact.ResolvedRentals)
		impact.PercentageAffected = percentage(impact.Affected, impact.Total)
	}
	result.AffectedTotal = result.Connect.Affected + result.Mobile.Affected

	return result, nil
}

// AnalyzeLateness 统计还车迟到比例以及迟到租赁在各取车方式中的分布
func AnalyzeLateness(records []models.RentalRecord) (*models.LatenessResult, error) {
	result := &models.LatenessResult{}

	for _, r := range records {
		// 没有还车记录的租赁既不进分子也不进分母
		if r.DelayAtCheckout == nil {
			continue
		}
		result.WithDelay++

		if *r.DelayAtCheckout <= 0 {
			continue
		}
		result.PositiveDelay++

		switch r.CheckinType {
		case models.CheckinConnect:
			result.PositiveDelayConnect++
		case models.CheckinMobile:
			result.PositiveDelayMobile++
		default:
			return nil, fmt.Errorf("record %d checkin_type %q: %w", r.RentalID, r.CheckinType, ErrUnrecognizedCategory)
		}
	}

	result.PercentageDelayed = percentage(result.PositiveDelay, result.WithDelay)
	result.PercentageDelayedConnect = percentage(result.PositiveDelayConnect, result.PositiveDelay)
	result.PercentageDelayedMobile = percentage(result.PositiveDelayMobile, result.PositiveDelay)

	return result, nil
}

// SelectResolvedForChannel 返回指定取车方式下已解决的问题单数量
func SelectResolvedForChannel(result *models.AnalysisResult, channel models.CheckinType) (int, error) {
	impact, ok := result.Channel(channel)
	if !ok {
		return 0, fmt.Errorf("channel %q: %w", channel, ErrUnrecognizedCategory)
	}
	return impact.Resolved, nil
}
