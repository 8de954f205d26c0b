package httpapi

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/ingest"
)

// capacityTemplateSheets 导入模板工作表及表头
// 表头用报表工具导出的原始写法，入库时会被规范化
var capacityTemplateSheets = []struct {
	Name    string
	Headers []string
}{
	{ingest.SheetStorageSystems, []string{
		"Name",
		"Usable Capacity (GiB)",
		"Available Capacity (GiB)",
		"Raw Capacity (GiB)",
		"Used Capacity (GiB)",
		"Compression Ratio",
		"Data Reduction Ratio",
		"Pool Count",
		"Volume Count",
		"Managed Disk Count",
		"Probe Time",
	}},
	{ingest.SheetStoragePools, []string{
		"Name",
		"Storage System",
		"Parent Pool",
		"Usable Capacity (GiB)",
		"Available Capacity (GiB)",
		"Recent Growth (GiB)",
		"Compressed",
		"Encrypted",
		"Report Date",
	}},
	{ingest.SheetCapacityVolumes, []string{
		"Name",
		"Pool",
		"Storage System",
		"Capacity (GiB)",
		"Used Capacity (GiB)",
		"Available Capacity (GiB)",
		"Compressed",
		"Thin Provisioned",
	}},
	{ingest.SheetCapacityHosts, []string{
		"Name",
		"Host Type",
		"SAN Capacity (GiB)",
		"Allocated Capacity (GiB)",
		"Available Capacity (GiB)",
		"Volume Count",
	}},
	{ingest.SheetCapacityDisks, []string{
		"Disk Name",
		"Storage System",
		"Pool Name",
		"Capacity (GiB)",
		"Available Capacity (GiB)",
		"Used Capacity (GiB)",
		"Status",
		"Vendor",
		"Model",
		"Speed (RPM)",
	}},
	{ingest.SheetDepartments, []string{
		"Name",
		"Used Capacity (GiB)",
		"Provisioned Capacity (GiB)",
		"Volume Count",
	}},
}

// GenerateCapacityImportTemplate 生成容量周报导入模板（六张空表，只有表头）
func GenerateCapacityImportTemplate() ([]byte, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, sheet := range capacityTemplateSheets {
		index, err := f.NewSheet(sheet.Name)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet.Name, err)
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}

		for col, header := range sheet.Headers {
			cell, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheet.Name, cell, header); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
			}
			if err := f.SetCellStyle(sheet.Name, cell, cell, headerStyle); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set header style: %w", err)
			}
			colName, err := excelize.ColumnNumberToName(col + 1)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert column number: %w", err)
			}
			if err := f.SetColWidth(sheet.Name, colName, colName, 22); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set column width: %w", err)
			}
		}

		// 冻结表头
		if err := f.SetPanes(sheet.Name, &excelize.Panes{
			Freeze:      true,
			Split:       false,
			XSplit:      0,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to freeze panes: %w", err)
		}
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return buf.Bytes(), nil
}
