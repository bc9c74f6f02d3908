package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"mentionscope/internal/model"
)

// SheetName 分配表名称
const SheetName = "分配"

// Exporter 分配方案 Excel 导出器
type Exporter struct{}

// NewExporter 创建导出器
func NewExporter() *Exporter {
	return &Exporter{}
}

// Export 导出工作集到 Excel
// sources 可为 nil；key 为关键词 id
func (e *Exporter) Export(items model.WorkingSet, total int, sources map[string][]string, at time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, err
	}

	// 设置表头
	headers := []string{"关键词", "状态", "份额(%)", "抓取来源"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(SheetName, cell, h)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	f.SetRowStyle(SheetName, 1, 1, headerStyle)

	// 写入数据
	for i, it := range items {
		row := i + 2
		status := "停用"
		if it.Active {
			status = "启用"
		}
		f.SetCellValue(SheetName, fmt.Sprintf("A%d", row), it.Label)
		f.SetCellValue(SheetName, fmt.Sprintf("B%d", row), status)
		f.SetCellValue(SheetName, fmt.Sprintf("C%d", row), it.Share)
		f.SetCellValue(SheetName, fmt.Sprintf("D%d", row), strings.Join(sources[it.ID], ", "))
	}

	// 合计行
	sumRow := len(items) + 2
	f.SetCellValue(SheetName, fmt.Sprintf("A%d", sumRow), "合计")
	f.SetCellValue(SheetName, fmt.Sprintf("C%d", sumRow), items.ActiveSum())
	f.SetCellValue(SheetName, fmt.Sprintf("D%d", sumRow), fmt.Sprintf("总量 %d，导出于 %s", total, at.Format("2006-01-02 15:04")))
	sumStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetRowStyle(SheetName, sumRow, sumRow, sumStyle)

	f.SetColWidth(SheetName, "A", "A", 30)
	f.SetColWidth(SheetName, "D", "D", 40)

	return f, nil
}

// ExportBytes 导出并序列化为 xlsx 字节
func (e *Exporter) ExportBytes(items model.WorkingSet, total int, sources map[string][]string, at time.Time) ([]byte, error) {
	f, err := e.Export(items, total, sources, at)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
