// Package dataset 负责加载还车延误数据表并维护不可变快照
package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/langchou/rentgazer/internal/analysis"
	"github.com/langchou/rentgazer/internal/models"
)

// 数据表列名
const (
	ColRentalID              = "rental_id"
	ColCarID                 = "car_id"
	ColCheckinType           = "checkin_type"
	ColState                 = "state"
	ColDelayAtCheckout       = "delay_at_checkout_in_minutes"
	ColPreviousEndedRentalID = "previous_ended_rental_id"
	ColTimeDeltaWithPrevious = "time_delta_with_previous_rental_in_minutes"
)

// RequiredColumns 分析必须的列
var RequiredColumns = []string{
	ColCheckinType,
	ColState,
	ColDelayAtCheckout,
	ColTimeDeltaWithPrevious,
	ColPreviousEndedRentalID,
}

// naValues 视为缺失的单元格取值
var naValues = []string{"", "NA", "NaN", "nan", "<nil>", "null", "NULL"}

var (
	// ErrUnsupportedFormat 不支持的文件格式
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	// ErrMissingColumn 缺少必须的列
	ErrMissingColumn = errors.New("missing required column")
)

// CategoryPolicy 遇到未知取车方式或状态时的处理策略
type CategoryPolicy string

const (
	// PolicyReject 丢弃该行并记录
	PolicyReject CategoryPolicy = "reject"
	// PolicyFail 整批加载失败
	PolicyFail CategoryPolicy = "fail"
)

// ParseCategoryPolicy 解析策略
func ParseCategoryPolicy(s string) (CategoryPolicy, error) {
	switch CategoryPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyReject, "":
		return PolicyReject, nil
	case PolicyFail:
		return PolicyFail, nil
	}
	return "", fmt.Errorf("unknown category policy %q", s)
}

// CategoryError 某一行的分类取值无法识别
type CategoryError struct {
	Row    int    `json:"row"` // 数据行号，从 1 开始，不含表头
	Column string `json:"column"`
	Value  string `json:"value"`
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("row %d column %s value %q: %s", e.Row, e.Column, e.Value, analysis.ErrUnrecognizedCategory)
}

func (e *CategoryError) Unwrap() error {
	return analysis.ErrUnrecognizedCategory
}

// Snapshot 一次加载得到的不可变数据快照
type Snapshot struct {
	Records  []models.RentalRecord
	Frame    dataframe.DataFrame
	Source   string
	LoadedAt time.Time
	Rejected []CategoryError
}

// Loader 数据表加载器
type Loader struct {
	Sheet    string
	Policy   CategoryPolicy
	Encoding string // csv 文件编码：utf-8（默认）或 gbk
}

// NewLoader 创建加载器
func NewLoader(sheet string, policy CategoryPolicy) *Loader {
	if policy == "" {
		policy = PolicyReject
	}
	return &Loader{Sheet: sheet, Policy: policy}
}

// LoadFile 按扩展名读取 xlsx 或 csv 文件
func (l *Loader) LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}

	var rows [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = l.readWorkbook(bytes.NewReader(data))
	case ".csv":
		var r io.Reader
		if r, err = l.decode(bytes.NewReader(data)); err == nil {
			rows, err = readCSV(r)
		}
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}

	return l.FromRows(path, rows)
}

// readWorkbook 读取工作表的原始单元格值，未指定工作表时读第一个
func (l *Loader) readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := l.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("get rows of %s: %w", sheet, err)
	}
	return padRows(rows), nil
}

// decode 按配置的编码转换为 UTF-8
func (l *Loader) decode(r io.Reader) (io.Reader, error) {
	switch strings.ToLower(l.Encoding) {
	case "", "utf-8", "utf8":
		return r, nil
	case "gbk", "gb2312":
		return transform.NewReader(r, simplifiedchinese.GBK.NewDecoder()), nil
	case "gb18030":
		return transform.NewReader(r, simplifiedchinese.GB18030.NewDecoder()), nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", l.Encoding)
}

// readCSV 通过 gota 解析 csv，再取回字符串记录统一处理
func readCSV(r io.Reader) ([][]string, error) {
	df := dataframe.ReadCSV(r,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(naValues),
	)
	if df.Err != nil {
		return nil, df.Err
	}
	return df.Records(), nil
}

// padRows GetRows 会截掉行尾空单元格，补齐到表头长度
func padRows(rows [][]string) [][]string {
	if len(rows) == 0 {
		return rows
	}
	width := len(rows[0])
	for i, row := range rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			rows[i] = padded
		} else if len(row) > width {
			rows[i] = row[:width]
		}
	}
	return rows
}

// FromRows 从带表头的字符串行构建快照
func (l *Loader) FromRows(source string, rows [][]string) (*Snapshot, error) {
	if len(rows) == 0 {
		return nil, errors.New("dataset has no header row")
	}
	rows = padRows(rows)
	for i, name := range rows[0] {
		rows[0][i] = strings.TrimSpace(name)
	}
	if err := checkColumns(rows[0]); err != nil {
		return nil, err
	}

	snap := &Snapshot{Source: source, LoadedAt: time.Now()}
	if len(rows) == 1 {
		snap.Records = []models.RentalRecord{}
		return snap, nil
	}

	df := dataframe.LoadRecords(rows,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(naValues),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("load records: %w", df.Err)
	}

	records, rejected, err := l.decodeFrame(df)
	if err != nil {
		return nil, err
	}
	snap.Records = records
	snap.Frame = df
	snap.Rejected = rejected
	return snap, nil
}

func checkColumns(header []string) error {
	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[name] = true
	}
	var missing []string
	for _, name := range RequiredColumns {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// decodeFrame 将数据框逐行转换为 RentalRecord
func (l *Loader) decodeFrame(df dataframe.DataFrame) ([]models.RentalRecord, []CategoryError, error) {
	names := make(map[string]bool)
	for _, n := range df.Names() {
		names[n] = true
	}
	col := func(name string) *series.Series {
		if !names[name] {
			return nil
		}
		s := df.Col(name)
		return &s
	}

	rentalIDs := col(ColRentalID)
	carIDs := col(ColCarID)
	checkins := col(ColCheckinType)
	states := col(ColState)
	delays := col(ColDelayAtCheckout)
	previous := col(ColPreviousEndedRentalID)
	deltas := col(ColTimeDeltaWithPrevious)

	records := make([]models.RentalRecord, 0, df.Nrow())
	var rejected []CategoryError

	for i := 0; i < df.Nrow(); i++ {
		row := i + 1
		r := models.RentalRecord{RentalID: int64(row)}

		var err error
		if rentalIDs != nil {
			if id, err := intCell(rentalIDs.Elem(i), row, ColRentalID); err != nil {
				return nil, nil, err
			} else if id != nil {
				r.RentalID = *id
			}
		}
		if carIDs != nil {
			if id, err := intCell(carIDs.Elem(i), row, ColCarID); err != nil {
				return nil, nil, err
			} else if id != nil {
				r.CarID = *id
			}
		}

		if r.DelayAtCheckout, err = intCell(delays.Elem(i), row, ColDelayAtCheckout); err != nil {
			return nil, nil, err
		}
		if r.PreviousEndedRentalID, err = intCell(previous.Elem(i), row, ColPreviousEndedRentalID); err != nil {
			return nil, nil, err
		}
		if r.TimeDeltaWithPrevious, err = intCell(deltas.Elem(i), row, ColTimeDeltaWithPrevious); err != nil {
			return nil, nil, err
		}

		var catErr *CategoryError
		checkin, err := models.ParseCheckinType(cellString(checkins.Elem(i)))
		if err != nil {
			catErr = &CategoryError{Row: row, Column: ColCheckinType, Value: cellString(checkins.Elem(i))}
		}
		st, err := models.ParseRentalState(cellString(states.Elem(i)))
		if err != nil && catErr == nil {
			catErr = &CategoryError{Row: row, Column: ColState, Value: cellString(states.Elem(i))}
		}
		if catErr != nil {
			if l.Policy == PolicyFail {
				return nil, nil, catErr
			}
			rejected = append(rejected, *catErr)
			continue
		}
		r.CheckinType = checkin
		r.State = st

		records = append(records, r)
	}

	return records, rejected, nil
}

func cellString(e series.Element) string {
	if e.IsNA() {
		return ""
	}
	return strings.TrimSpace(e.String())
}

// intCell 解析可空整数单元格，接受 "15.0" 这类整数值浮点写法
func intCell(e series.Element, row int, column string) (*int64, error) {
	if e.IsNA() {
		return nil, nil
	}
	s := strings.TrimSpace(e.String())
	if s == "" {
		return nil, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return nil, fmt.Errorf("row %d column %s: invalid integer %q", row, column, s)
	}
	if math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, fmt.Errorf("row %d column %s: non-integer value %q", row, column, s)
	}
	if f < -(1<<63) || f >= 1<<63 {
		return nil, fmt.Errorf("row %d column %s: integer out of range %q", row, column, s)
	}
	v := int64(f)
	return &v, nil
}
