package models

// ChannelImpact 单个取车方式在阈值下的影响
type ChannelImpact struct {
	Channel            CheckinType    `json:"channel"`
	Total              int            `json:"total"`               // 该方式全部租赁数（分母）
	Affected           int            `json:"affected"`            // 间隔低于阈值的租赁数
	PercentageAffected float64        `json:"percentage_affected"` // 0..100
	Resolved           int            `json:"resolved"`            // 受影响且上一单确实迟还
	AffectedRentals    []RentalRecord `json:"affected_rentals,omitempty"`
	ResolvedRentals    []RentalRecord `json:"resolved_rentals,omitempty"`
}

// AnalysisResult 阈值分析结果
type AnalysisResult struct {
	ThresholdMinutes int64         `json:"threshold_minutes"`
	Connect          ChannelImpact `json:"connect"`
	Mobile           ChannelImpact `json:"mobile"`
	AffectedTotal    int           `json:"affected_total"`
}

// Channel 按取车方式取结果
func (r *AnalysisResult) Channel(c CheckinType) (*ChannelImpact, bool) {
	switch c {
	case CheckinConnect:
		return &r.Connect, true
	case CheckinMobile:
		return &r.Mobile, true
	}
	return nil, false
}

// WithoutRentals 去掉明细行，用于接口返回
func (r AnalysisResult) WithoutRentals() AnalysisResult {
	r.Connect.AffectedRentals, r.Connect.ResolvedRentals = nil, nil
	r.Mobile.AffectedRentals, r.Mobile.ResolvedRentals = nil, nil
	return r
}

// LatenessResult 还车迟到统计（与阈值无关）
type LatenessResult struct {
	WithDelay                int     `json:"with_delay"`     // 有还车延误记录的租赁数
	PositiveDelay            int     `json:"positive_delay"` // 延误 > 0
	PositiveDelayConnect     int     `json:"positive_delay_connect"`
	PositiveDelayMobile      int     `json:"positive_delay_mobile"`
	PercentageDelayed        float64 `json:"percentage_delayed"`
	PercentageDelayedConnect float64 `json:"percentage_delayed_connect"`
	PercentageDelayedMobile  float64 `json:"percentage_delayed_mobile"`
}

// NextDriverImpact 对下一位司机的影响
type NextDriverImpact struct {
	TotalRentals               int     `json:"total_rentals"`
	OverlappingRentals         int     `json:"overlapping_rentals"`           // 与上一单间隔 < 0
	PercentageOverlapping      float64 `json:"percentage_overlapping"`        // 占全部租赁
	CancelledAfterLateCheckout int     `json:"cancelled_after_late_checkout"` // 取消 + 延误 > 0 + 有上一单
}

// StateShare 租赁状态占比
type StateShare struct {
	State      RentalState `json:"state"`
	Count      int         `json:"count"`
	Percentage float64     `json:"percentage"`
}

// StateDistribution 租赁状态分布
type StateDistribution struct {
	Total  int          `json:"total"`
	States []StateShare `json:"states"`
}

// SweepPoint 阈值扫描中的一个点
type SweepPoint struct {
	ThresholdMinutes          int64   `json:"threshold_minutes"`
	AffectedConnect           int     `json:"affected_connect"`
	AffectedMobile            int     `json:"affected_mobile"`
	PercentageAffectedConnect float64 `json:"percentage_affected_connect"`
	PercentageAffectedMobile  float64 `json:"percentage_affected_mobile"`
	ResolvedConnect           int     `json:"resolved_connect"`
	ResolvedMobile            int     `json:"resolved_mobile"`
}

// HistogramBin 直方图区间 [Lower, Upper)
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram 直方图
type Histogram struct {
	Field  string         `json:"field"`
	Values int            `json:"values"` // 参与统计的非空值数量
	Bins   []HistogramBin `json:"bins"`
}

// DelaySummary 还车延误概要
type DelaySummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}
