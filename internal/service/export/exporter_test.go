package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"mentionscope/internal/model"
)

func TestExportBytes(t *testing.T) {
	items := model.WorkingSet{
		{ID: "a", Label: "品牌词", Share: 70, Active: true},
		{ID: "b", Label: "竞品词", Share: 30, Active: true},
		{ID: "c", Label: "活动词", Share: 0, Active: false},
	}
	sources := map[string][]string{"a": {"twitter", "reddit"}}

	data, err := NewExporter().ExportBytes(items, 100, sources, time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	require.Equal(t, []string{"关键词", "状态", "份额(%)", "抓取来源"}, rows[0])
	require.Equal(t, []string{"品牌词", "启用", "70", "twitter, reddit"}, rows[1])
	require.Equal(t, "停用", rows[3][1])
	require.Equal(t, "合计", rows[4][0])
	require.Equal(t, "100", rows[4][2])
}
