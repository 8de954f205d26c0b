package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// 必需工作表（大小写不敏感匹配）
// 历史上的两张 inventory 表不再要求：数据与 capacity 表冗余
var RequiredSheets = []string{
	SheetStorageSystems,
	SheetStoragePools,
	SheetCapacityVolumes,
	SheetCapacityHosts,
	SheetCapacityDisks,
	SheetDepartments,
}

const (
	SheetStorageSystems  = "Storage_Systems"
	SheetStoragePools    = "Storage_Pools"
	SheetCapacityVolumes = "Capacity_Volumes"
	SheetCapacityHosts   = "Capacity_Hosts"
	SheetCapacityDisks   = "Capacity_Disks"
	SheetDepartments     = "Departments"
)

// ValidationError 结构化校验错误（缺表/读表失败）
type ValidationError struct {
	Sheet  string `json:"sheet"`
	Reason string `json:"reason"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("sheet %s: %s", e.Sheet, e.Reason)
}

// RawTable 一张工作表的原始数据（表头未规范化）
type RawTable struct {
	Sheet  string
	Header []string
	Rows   [][]string
}

// OpenWorkbook 打开上传的 xlsx 并校验必需工作表
// 缺表记结构化错误而不是中断；能读到的表照常返回，调用方在 ok=false 时
// 仍可从部分数据提取元信息（如 report date）
func OpenWorkbook(data []byte) (map[string]*RawTable, []ValidationError, bool) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, []ValidationError{{Sheet: "", Reason: fmt.Sprintf("failed to parse Excel file: %v", err)}}, false
	}
	defer f.Close()

	// 实际表名（大小写不敏感解析）
	actual := map[string]string{}
	for _, name := range f.GetSheetList() {
		actual[strings.ToLower(name)] = name
	}

	tables := map[string]*RawTable{}
	var errs []ValidationError
	for _, required := range RequiredSheets {
		name, ok := actual[strings.ToLower(required)]
		if !ok {
			errs = append(errs, ValidationError{Sheet: required, Reason: "required sheet is missing"})
			continue
		}
		rows, err := f.GetRows(name)
		if err != nil {
			errs = append(errs, ValidationError{Sheet: required, Reason: fmt.Sprintf("failed to read rows: %v", err)})
			continue
		}
		t := &RawTable{Sheet: required}
		if len(rows) > 0 {
			t.Header = rows[0]
			t.Rows = rows[1:]
		}
		tables[required] = t
	}

	return tables, errs, len(errs) == 0
}
