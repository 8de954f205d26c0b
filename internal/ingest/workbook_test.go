package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook 在内存生成一份 xlsx，首行是表头
func buildWorkbook(t *testing.T, sheets map[string][][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			for j, cell := range row {
				ref, err := excelize.CoordinatesToCellName(j+1, i+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(name, ref, cell))
			}
		}
	}
	f.DeleteSheet("Sheet1")
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return buf.Bytes()
}

// fullWorkbookSheets 六张必需表的最小可入库数据
func fullWorkbookSheets() map[string][][]string {
	return map[string][][]string{
		SheetStorageSystems: {
			{"Name", "Usable Capacity (GiB)", "Available Capacity (GiB)", "Compression Ratio"},
			{"FS92K_A1", "1000", "400", "2.2 : 1"},
		},
		SheetStoragePools: {
			{"Name", "Storage System", "Usable Capacity (GiB)", "Available Capacity (GiB)", "Recent Growth (GiB)"},
			{"Pool-1", "FS92K_A1", "100", "5", "1"},
		},
		SheetCapacityVolumes: {
			{"Name", "Pool", "Storage System", "Capacity (GiB)", "Used Capacity (GiB)", "Available Capacity (GiB)"},
			{"vol-1", "Pool-1", "FS92K_A1", "100", "40", "60"},
		},
		SheetCapacityHosts: {
			{"Name", "SAN Capacity (GiB)", "Allocated Capacity (GiB)", "Volume Count"},
			{"esx-01", "100", "80", "2"},
			{"esx-01", "50", "20", "1"},
		},
		SheetCapacityDisks: {
			{"Disk Name", "Storage System", "Pool Name", "Capacity (GiB)", "Available Capacity (GiB)"},
			{"mdisk0", "FS92K_A1", "Pool-1", "800", "300"},
		},
		SheetDepartments: {
			{"Name", "Used Capacity (GiB)", "Volume Count"},
			{"Radiology", "42", "5"},
		},
	}
}

func TestOpenWorkbookComplete(t *testing.T) {
	data := buildWorkbook(t, fullWorkbookSheets())

	tables, errs, ok := OpenWorkbook(data)
	require.True(t, ok, "errors: %v", errs)
	require.Len(t, tables, len(RequiredSheets))

	systems := tables[SheetStorageSystems]
	assert.Equal(t, []string{"Name", "Usable Capacity (GiB)", "Available Capacity (GiB)", "Compression Ratio"}, systems.Header)
	require.Len(t, systems.Rows, 1)
	assert.Equal(t, "FS92K_A1", systems.Rows[0][0])
}

func TestOpenWorkbookCaseInsensitiveSheetNames(t *testing.T) {
	sheets := map[string][][]string{}
	for name, rows := range fullWorkbookSheets() {
		sheets[strings.ToUpper(name)] = rows
	}
	data := buildWorkbook(t, sheets)

	tables, errs, ok := OpenWorkbook(data)
	require.True(t, ok, "errors: %v", errs)
	// 规范名为键
	assert.NotNil(t, tables[SheetStorageSystems])
}

func TestOpenWorkbookMissingSheets(t *testing.T) {
	sheets := fullWorkbookSheets()
	delete(sheets, SheetCapacityDisks)
	delete(sheets, SheetDepartments)
	data := buildWorkbook(t, sheets)

	tables, errs, ok := OpenWorkbook(data)
	assert.False(t, ok)
	require.Len(t, errs, 2)
	for _, e := range errs {
		assert.Equal(t, "required sheet is missing", e.Reason)
	}
	// 能读到的表仍然返回
	assert.NotNil(t, tables[SheetStorageSystems])
}

func TestOpenWorkbookGarbageFile(t *testing.T) {
	_, errs, ok := OpenWorkbook([]byte("not an xlsx"))
	assert.False(t, ok)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Reason, "failed to parse Excel file")
}
