package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func testOptions() Options {
	return NewOptions([]string{"FS92K-A1"}, nil)
}

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"Usable Capacity (GiB)": "usable_capacity_gib",
		"Utilization %":         "utilization",
		"Speed (RPM)":           "speed_rpm",
		"Thin-Provisioned":      "thin_provisioned",
		"  Name  ":              "name",
		"R/W Ratio":             "r_w_ratio",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeHeader(in), "header %q", in)
	}
}

func TestTransformPoolsDerivedFields(t *testing.T) {
	raw := &RawTable{
		Sheet:  SheetStoragePools,
		Header: []string{"Name", "Storage System", "Usable Capacity (GiB)", "Available Capacity (GiB)", "Recent Growth (GiB)"},
		Rows: [][]string{
			{"Pool-1", "FS92K_A1", "100", "30", "2.5"},
		},
	}

	recs := TransformPools(raw, testDate, testOptions())
	require.Len(t, recs, 1)

	p := recs[0].Pool
	assert.Equal(t, "Pool-1", p.Name)
	// 系统名已规范化
	assert.Equal(t, "FS92K-A1", p.StorageSystemName)
	// used 与 utilization 永远重算
	assert.Equal(t, 70.0, p.UsedCapacityGiB)
	assert.Equal(t, 70.0, p.UtilizationPct)
	assert.Equal(t, 2.5, p.RecentGrowthGiB)
	assert.Equal(t, testDate, p.ReportDate)
}

func TestTransformPoolsZeroUsable(t *testing.T) {
	raw := &RawTable{
		Sheet:  SheetStoragePools,
		Header: []string{"Name", "Storage System", "Usable Capacity (GiB)", "Available Capacity (GiB)"},
		Rows:   [][]string{{"Empty-Pool", "FS92K_A1", "0", "0"}},
	}
	recs := TransformPools(raw, testDate, testOptions())
	require.Len(t, recs, 1)
	// usable 为 0 时 utilization 保持 0，不除零
	assert.Equal(t, 0.0, recs[0].Pool.UtilizationPct)
}

func TestTransformVolumesFlashSystemBranch(t *testing.T) {
	raw := &RawTable{
		Sheet:  SheetCapacityVolumes,
		Header: []string{"Name", "Pool", "Storage System", "Capacity (GiB)", "Used Capacity (GiB)", "Available Capacity (GiB)"},
		Rows: [][]string{
			{"vol-flash", "Pool-1", "FS92K_A1", "100", "40", "999"},
			{"vol-other", "Pool-2", "DS8900-1", "100", "40", "50"},
		},
	}

	recs := TransformVolumes(raw, testDate, testOptions())
	require.Len(t, recs, 2)

	// FlashSystem：源 available 不可信，available = provisioned - used
	flash := recs[0].Volume
	assert.Equal(t, 60.0, flash.AvailableCapacityGiB)
	assert.Equal(t, 0.0, flash.OverheadUsedCapacityGiB)

	// 其他系统：overhead = provisioned - used - available
	other := recs[1].Volume
	assert.Equal(t, 50.0, other.AvailableCapacityGiB)
	assert.Equal(t, 10.0, other.OverheadUsedCapacityGiB)
}

func TestTransformHostsKeepMeasuredZero(t *testing.T) {
	raw := &RawTable{
		Sheet:  SheetCapacityHosts,
		Header: []string{"Name", "SAN Capacity (GiB)", "Allocated Capacity (GiB)", "Available Capacity (GiB)", "Volume Count"},
		Rows: [][]string{
			{"host-a", "100", "-", "25", "3"},
		},
	}

	recs := TransformHosts(raw, testDate, testOptions())
	require.Len(t, recs, 1)

	h := recs[0].Host
	assert.True(t, h.SANCapacityGiB.Valid)
	assert.Equal(t, 100.0, h.SANCapacityGiB.Float64)
	// 占位符清洗成 0 并保持 0.0（归 NULL 只发生在聚合的零和上）
	assert.True(t, h.AllocatedCapacityGiB.Valid)
	assert.Equal(t, 0.0, h.AllocatedCapacityGiB.Float64)
	assert.True(t, h.AvailableCapacityGiB.Valid)
	assert.Equal(t, 25.0, h.AvailableCapacityGiB.Float64)
	assert.Equal(t, 3, h.VolumeCount)
}

func TestTransformDisksDerivedAndNullName(t *testing.T) {
	raw := &RawTable{
		Sheet:  SheetCapacityDisks,
		Header: []string{"Disk Name", "Storage System", "Pool Name", "Capacity (GiB)", "Available Capacity (GiB)"},
		Rows: [][]string{
			{"mdisk0", "FS92K_A1", "Pool-1", "800", "300"},
			{"-", "FS92K_A1", "Pool-1", "400", "100"},
			{"", "FS92K_A1", "Pool-1", "400", "100"},
		},
	}

	recs := TransformDisks(raw, testDate, testOptions())
	require.Len(t, recs, 3)

	named := recs[0].Disk
	assert.Equal(t, "mdisk0", named.Name.String)
	assert.Equal(t, 500.0, named.UsedCapacityGiB)

	// 占位符与空名都落 NULL，且互不共享 UniqueKey
	assert.False(t, recs[1].Disk.Name.Valid)
	assert.False(t, recs[2].Disk.Name.Valid)
	assert.NotEqual(t, recs[1].UniqueKey(), recs[2].UniqueKey())
}

func TestPrepareSkipsBlankRowsAndUnknownColumns(t *testing.T) {
	raw := &RawTable{
		Sheet:  SheetDepartments,
		Header: []string{"Name", "Used Capacity (GiB)", "Mystery Column"},
		Rows: [][]string{
			{"Radiology", "10", "ignored"},
			{"", "", ""},
			{"Cardiology", "20", ""},
		},
	}

	recs := TransformDepartments(raw, testDate, testOptions())
	require.Len(t, recs, 2)
	assert.Equal(t, "Radiology", recs[0].Department.Name)
	assert.Equal(t, "Cardiology", recs[1].Department.Name)
	// 原始行完整保留供审计
	assert.Equal(t, "ignored", recs[0].Raw["Mystery Column"])
}

func TestPrepareRowLevelReportDate(t *testing.T) {
	raw := &RawTable{
		Sheet:  SheetDepartments,
		Header: []string{"Name", "Report Date"},
		Rows: [][]string{
			{"Radiology", "2024-02-20"},
			{"Cardiology", "not a date"},
		},
	}

	recs := TransformDepartments(raw, testDate, testOptions())
	require.Len(t, recs, 2)
	// 行内日期优先
	assert.Equal(t, time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC), recs[0].Department.ReportDate)
	// 解析不了回填运行日期
	assert.Equal(t, testDate, recs[1].Department.ReportDate)
}

func TestTransformSystemsRatios(t *testing.T) {
	raw := &RawTable{
		Sheet:  SheetStorageSystems,
		Header: []string{"Name", "Usable Capacity (GiB)", "Compression Ratio", "Data Reduction Ratio", "Pool Count"},
		Rows: [][]string{
			{"FS92K_A1", "1,024.5", "2.2 : 1", "-", "4"},
		},
	}

	recs := TransformSystems(raw, testDate, testOptions())
	require.Len(t, recs, 1)

	s := recs[0].System
	assert.Equal(t, "FS92K-A1", s.Name)
	assert.Equal(t, 1024.5, s.UsableCapacityGiB)
	assert.Equal(t, 2.2, s.CompressionRatio)
	assert.Equal(t, 0.0, s.DataReductionRatio)
	assert.Equal(t, 4, s.PoolCount)
	assert.False(t, s.ProbeTime.Valid)
}
