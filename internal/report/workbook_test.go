package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"

	"github.com/langchou/rentgazer/internal/analysis"
	"github.com/langchou/rentgazer/internal/models"
)

func sampleRecords() []models.RentalRecord {
	p := models.Int64Ptr
	return []models.RentalRecord{
		{RentalID: 1, CarID: 1, CheckinType: models.CheckinConnect, State: models.StateEnded,
			DelayAtCheckout: p(15), PreviousEndedRentalID: p(100), TimeDeltaWithPrevious: p(-10)},
		{RentalID: 2, CarID: 2, CheckinType: models.CheckinMobile, State: models.StateEnded,
			DelayAtCheckout: p(0), PreviousEndedRentalID: p(101), TimeDeltaWithPrevious: p(5)},
		{RentalID: 3, CarID: 3, CheckinType: models.CheckinConnect, State: models.StateEnded,
			PreviousEndedRentalID: p(102), TimeDeltaWithPrevious: p(40)},
	}
}

func TestBuilderFormatting(t *testing.T) {
	b := NewBuilder(language.English)
	assert.Equal(t, "50.0%", b.Percent(50))
	assert.Equal(t, "33.3%", b.Percent(100.0/3))
	assert.Equal(t, "12,345", b.Count(12345))
	assert.Equal(t, "Connect", b.ChannelLabel(models.CheckinConnect))
	assert.Equal(t, "Mobile", b.ChannelLabel(models.CheckinMobile))
}

func TestBuild(t *testing.T) {
	records := sampleRecords()
	result, err := analysis.AnalyzeThreshold(records, 20)
	require.NoError(t, err)
	lateness, err := analysis.AnalyzeLateness(records)
	require.NoError(t, err)

	buf, err := NewBuilder(language.English).Build(result, lateness)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetThreshold, SheetLateness, SheetAffected}, f.GetSheetList())

	rows, err := f.GetRows(SheetThreshold)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 6)
	assert.Equal(t, []string{"Threshold (minutes)", "20"}, rows[0])
	assert.Equal(t, []string{"Channel", "Total", "Affected", "Affected %", "Resolved"}, rows[2])
	assert.Equal(t, []string{"Connect", "2", "1", "50.0%", "1"}, rows[3])
	assert.Equal(t, []string{"Mobile", "1", "1", "100.0%", "0"}, rows[4])
	assert.Equal(t, []string{"All", "3", "2", "", "1"}, rows[5])

	rows, err = f.GetRows(SheetLateness)
	require.NoError(t, err)
	assert.Equal(t, []string{"Late checkouts %", "50.0%"}, rows[3])

	rows, err = f.GetRows(SheetAffected)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "resolved", rows[0][len(rows[0])-1])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "TRUE", rows[1][len(rows[1])-1])
	assert.Equal(t, "2", rows[2][0])
	assert.Equal(t, "FALSE", rows[2][len(rows[2])-1])
	assert.Equal(t, []string{"2", "2", "mobile", "ended", "0", "101", "5", "FALSE"}, rows[2])

	// 编号、延迟和间隔写成数值单元格
	for _, cell := range []string{"A2", "B2", "E2", "F2", "G2"} {
		typ, err := f.GetCellType(SheetAffected, cell)
		require.NoError(t, err)
		assert.NotEqual(t, excelize.CellTypeSharedString, typ, cell)
		assert.NotEqual(t, excelize.CellTypeInlineString, typ, cell)
	}
	typ, err := f.GetCellType(SheetAffected, "C2")
	require.NoError(t, err)
	assert.Equal(t, excelize.CellTypeSharedString, typ)
}

func TestBuildEmpty(t *testing.T) {
	result, err := analysis.AnalyzeThreshold(nil, 0)
	require.NoError(t, err)
	lateness, err := analysis.AnalyzeLateness(nil)
	require.NoError(t, err)

	buf, err := NewBuilder(language.English).Build(result, lateness)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetAffected)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rows, err = f.GetRows(SheetThreshold)
	require.NoError(t, err)
	assert.Equal(t, []string{"Connect", "0", "0", "0.0%", "0"}, rows[3])
}
