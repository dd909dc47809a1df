package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/langchou/rentgazer/internal/models"
)

// 直方图字段
const (
	FieldDelay     = "delay"
	FieldTimeDelta = "time_delta"
)

// 与看板一致的默认分箱数
const (
	DefaultDelayBins     = 100
	DefaultTimeDeltaBins = 30
)

// presentValues 取出非空值并升序排序
func presentValues(records []models.RentalRecord, field string) ([]float64, error) {
	values := make([]float64, 0, len(records))
	for _, r := range records {
		var v *int64
		switch field {
		case FieldDelay:
			v = r.DelayAtCheckout
		case FieldTimeDelta:
			v = r.TimeDeltaWithPrevious
		default:
			return nil, fmt.Errorf("unknown histogram field %q", field)
		}
		if v != nil {
			values = append(values, float64(*v))
		}
	}
	sort.Float64s(values)
	return values, nil
}

// Histogram 对字段的非空值做等宽分箱，区间为 [lower, upper)
func Histogram(records []models.RentalRecord, field string, bins int) (*models.Histogram, error) {
	if bins <= 0 {
		return nil, fmt.Errorf("histogram bins must be positive, got %d", bins)
	}

	values, err := presentValues(records, field)
	if err != nil {
		return nil, err
	}

	h := &models.Histogram{Field: field, Values: len(values)}
	if len(values) == 0 {
		return h, nil
	}

	lo, hi := floats.Min(values), floats.Max(values)
	if lo == hi {
		hi = lo + 1
	}
	dividers := floats.Span(make([]float64, bins+1), lo, hi)
	// 最后一个边界必须严格大于最大值
	dividers[bins] = math.Nextafter(dividers[bins], math.Inf(1))

	counts := stat.Histogram(nil, dividers, values, nil)
	h.Bins = make([]models.HistogramBin, bins)
	for i := range counts {
		h.Bins[i] = models.HistogramBin{
			Lower: dividers[i],
			Upper: dividers[i+1],
			Count: int(counts[i]),
		}
	}
	return h, nil
}

// SummarizeDelays 还车延误的均值、中位数与极值
func SummarizeDelays(records []models.RentalRecord) *models.DelaySummary {
	values, _ := presentValues(records, FieldDelay)

	s := &models.DelaySummary{Count: len(values)}
	if len(values) == 0 {
		return s
	}
	s.Mean = stat.Mean(values, nil)
	s.Median = stat.Quantile(0.5, stat.Empirical, values, nil)
	s.Min = values[0]
	s.Max = values[len(values)-1]
	return s
}
