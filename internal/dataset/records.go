package dataset

import (
	"strconv"

	"github.com/langchou/rentgazer/internal/models"
)

// Columns 导出时的列顺序，与原始数据表一致
var Columns = []string{
	ColRentalID,
	ColCarID,
	ColCheckinType,
	ColState,
	ColDelayAtCheckout,
	ColPreviousEndedRentalID,
	ColTimeDeltaWithPrevious,
}

// EncodeRows 将记录编码为带表头的字符串行，缺失值为空串
func EncodeRows(records []models.RentalRecord) [][]string {
	rows := make([][]string, 0, len(records)+1)
	header := make([]string, len(Columns))
	copy(header, Columns)
	rows = append(rows, header)

	for _, r := range records {
		rows = append(rows, []string{
			strconv.FormatInt(r.RentalID, 10),
			strconv.FormatInt(r.CarID, 10),
			string(r.CheckinType),
			string(r.State),
			formatNullable(r.DelayAtCheckout),
			formatNullable(r.PreviousEndedRentalID),
			formatNullable(r.TimeDeltaWithPrevious),
		})
	}
	return rows
}

func formatNullable(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

// FromRecords 由已解析的记录（例如数据库中的数据）构建快照
func (l *Loader) FromRecords(source string, records []models.RentalRecord) (*Snapshot, error) {
	return l.FromRows(source, EncodeRows(records))
}

// Preview 返回快照前 limit 条记录
func (s *Snapshot) Preview(limit int) []models.RentalRecord {
	if limit <= 0 || limit > len(s.Records) {
		limit = len(s.Records)
	}
	return s.Records[:limit]
}

// RawPreview 原始表格前 limit 行，包含被拒绝的行，缺失值为 nil
func (s *Snapshot) RawPreview(limit int) []map[string]interface{} {
	if s.Frame.Err != nil || s.Frame.Nrow() == 0 {
		return []map[string]interface{}{}
	}
	if limit <= 0 || limit > s.Frame.Nrow() {
		limit = s.Frame.Nrow()
	}
	idx := make([]int, limit)
	for i := range idx {
		idx[i] = i
	}
	return s.Frame.Subset(idx).Maps()
}

// Summary 快照概要
type Summary struct {
	Source   string          `json:"source"`
	Records  int             `json:"records"`
	Columns  []string        `json:"columns"`
	Rejected []CategoryError `json:"rejected,omitempty"`
	Channels map[string]int  `json:"channels"`
}

// Summarize 统计快照的行数、列名和各取车方式行数
func (s *Snapshot) Summarize() Summary {
	sum := Summary{
		Source:   s.Source,
		Records:  len(s.Records),
		Rejected: s.Rejected,
		Channels: make(map[string]int, len(models.Channels)),
	}
	if s.Frame.Err == nil && s.Frame.Nrow() > 0 {
		sum.Columns = s.Frame.Names()
	} else {
		sum.Columns = Columns
	}
	for _, c := range models.Channels {
		sum.Channels[string(c)] = 0
	}
	for _, r := range s.Records {
		sum.Channels[string(r.CheckinType)]++
	}
	return sum
}
