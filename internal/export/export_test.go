package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cxip/patent-pipeline/internal/record"
)

func TestBuildXLSX(t *testing.T) {
	recs := []record.Record{
		{
			PatentNo:        "CN1790643A",
			PatentType:      "发明申请",
			ApplicationDate: "20051216",
			Inventors:       "张三; 李四",
			Examiner:        "王五",
			Abstract:        "一种半导体器件。",
			FetchedAt:       time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
		},
		{PatentNo: "CN1770492A", PatentType: "实用新型"},
	}

	data, err := BuildXLSX(recs, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"Patents"}, f.GetSheetList())

	rows, err := f.GetRows("Patents")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "Patent No", rows[0][0])

	require.Equal(t, "CN1790643A", rows[1][0])
	require.Equal(t, "发明申请", rows[1][1])
	require.Equal(t, "20051216", rows[1][2])
	require.Equal(t, "王五", rows[1][6])
	require.Equal(t, "2026-08-31 12:00:00", rows[1][9])
	require.Equal(t, "CN1770492A", rows[2][0])
}

func TestBuildXLSXTruncatesLongText(t *testing.T) {
	recs := []record.Record{{
		PatentNo: "CN1790643A",
		Abstract: strings.Repeat("权", 500),
	}}

	data, err := BuildXLSX(recs, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	cell, err := f.GetCellValue("Patents", "H2")
	require.NoError(t, err)
	require.Equal(t, 400, len([]rune(cell)))
	require.True(t, strings.HasSuffix(cell, "…"))
}

func TestWriteXLSXEmptyDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patents.xlsx")
	require.NoError(t, WriteXLSX(path, nil, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Patents")
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}
