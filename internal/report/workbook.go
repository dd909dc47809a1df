// Package report 将分析结果导出为 xlsx 工作簿
package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/langchou/rentgazer/internal/dataset"
	"github.com/langchou/rentgazer/internal/models"
)

// 工作表名称
const (
	SheetThreshold = "Threshold"
	SheetLateness  = "Lateness"
	SheetAffected  = "Affected"
)

// Builder 报表生成器，可并发使用
// cases.Caser 有内部状态，每次调用单独创建
type Builder struct {
	lang language.Tag
}

// NewBuilder 创建报表生成器，数字按 lang 的习惯格式化
func NewBuilder(lang language.Tag) *Builder {
	return &Builder{lang: lang}
}

// Percent 百分比文本，保留一位小数
func (b *Builder) Percent(v float64) string {
	return message.NewPrinter(b.lang).Sprintf("%.1f%%", v)
}

// Count 带千分位的计数文本
func (b *Builder) Count(n int) string {
	return message.NewPrinter(b.lang).Sprintf("%d", n)
}

// ChannelLabel 取车方式的展示名
func (b *Builder) ChannelLabel(c models.CheckinType) string {
	return cases.Title(b.lang).String(string(c))
}

// Build 生成包含阈值、迟还和受影响明细三个工作表的工作簿
func (b *Builder) Build(result *models.AnalysisResult, lateness *models.LatenessResult) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetThreshold); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetLateness, SheetAffected} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	if err := b.writeThreshold(f, result, bold); err != nil {
		return nil, err
	}
	if err := b.writeLateness(f, lateness, bold); err != nil {
		return nil, err
	}
	if err := b.writeAffected(f, result, bold); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

func (b *Builder) writeThreshold(f *excelize.File, result *models.AnalysisResult, bold int) error {
	rows := [][]interface{}{
		{"Threshold (minutes)", result.ThresholdMinutes},
		{},
		{"Channel", "Total", "Affected", "Affected %", "Resolved"},
	}
	for _, c := range models.Channels {
		impact, _ := result.Channel(c)
		rows = append(rows, []interface{}{
			b.ChannelLabel(c),
			impact.Total,
			impact.Affected,
			b.Percent(impact.PercentageAffected),
			impact.Resolved,
		})
	}
	rows = append(rows, []interface{}{"All", result.Connect.Total + result.Mobile.Total, result.AffectedTotal, "",
		result.Connect.Resolved + result.Mobile.Resolved})

	if err := writeRows(f, SheetThreshold, rows); err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetThreshold, 3, 3, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	return f.SetColWidth(SheetThreshold, "A", "A", 22)
}

func (b *Builder) writeLateness(f *excelize.File, lateness *models.LatenessResult, bold int) error {
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Rentals with recorded checkout", b.Count(lateness.WithDelay)},
		{"Late checkouts", b.Count(lateness.PositiveDelay)},
		{"Late checkouts %", b.Percent(lateness.PercentageDelayed)},
		{b.ChannelLabel(models.CheckinConnect) + " share of late", b.Percent(lateness.PercentageDelayedConnect)},
		{b.ChannelLabel(models.CheckinMobile) + " share of late", b.Percent(lateness.PercentageDelayedMobile)},
	}
	if err := writeRows(f, SheetLateness, rows); err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetLateness, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	return f.SetColWidth(SheetLateness, "A", "A", 32)
}

func (b *Builder) writeAffected(f *excelize.File, result *models.AnalysisResult, bold int) error {
	var affected []models.RentalRecord
	affected = append(affected, result.Connect.AffectedRentals...)
	affected = append(affected, result.Mobile.AffectedRentals...)

	header := make([]interface{}, 0, len(dataset.Columns)+1)
	for _, name := range dataset.Columns {
		header = append(header, name)
	}
	header = append(header, "resolved")

	rows := make([][]interface{}, 0, len(affected)+1)
	rows = append(rows, header)
	for _, r := range affected {
		rows = append(rows, []interface{}{
			r.RentalID,
			r.CarID,
			string(r.CheckinType),
			string(r.State),
			cellInt(r.DelayAtCheckout),
			cellInt(r.PreviousEndedRentalID),
			cellInt(r.TimeDeltaWithPrevious),
			r.IsLate(),
		})
	}

	if err := writeRows(f, SheetAffected, rows); err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetAffected, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	return nil
}

// cellInt 缺失值写成空单元格
func cellInt(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// writeRows 从 A1 开始逐行写入
func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
