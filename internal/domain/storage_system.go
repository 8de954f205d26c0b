package domain

import (
	"database/sql"
	"time"
)

// StorageSystem 存储系统领域模型（对应 storage_systems 表）
// 同一 report_date 下 name 唯一；入库后不可变（同键重复上传视为 duplicate，不做 update）
type StorageSystem struct {
	SystemID string `db:"system_id"`
	TenantID string `db:"tenant_id"` // NOT NULL
	UploadID string `db:"upload_id"` // 本次入库批次，用于管理员回滚删除

	ReportDate time.Time `db:"report_date"` // DATE，快照日期
	Name       string    `db:"name"`        // 规范化后的系统名

	// 容量（GiB）
	UsableCapacityGiB    float64 `db:"usable_capacity_gib"`
	AvailableCapacityGiB float64 `db:"available_capacity_gib"`
	RawCapacityGiB       float64 `db:"raw_capacity_gib"`
	UsedCapacityGiB      float64 `db:"used_capacity_gib"`

	// 压缩/缩减比（只保留分子，分母固定为 1）
	CompressionRatio   float64 `db:"compression_ratio"`
	DataReductionRatio float64 `db:"data_reduction_ratio"`

	// 计数
	PoolCount        int `db:"pool_count"`
	VolumeCount      int `db:"volume_count"`
	ManagedDiskCount int `db:"managed_disk_count"`

	ProbeTime sql.NullTime `db:"probe_time"` // nullable，采集时间
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (s *StorageSystem) ToJSON() map[string]any {
	m := map[string]any{
		"system_id":              s.SystemID,
		"tenant_id":              s.TenantID,
		"upload_id":              s.UploadID,
		"report_date":            s.ReportDate.Format("2006-01-02"),
		"name":                   s.Name,
		"usable_capacity_gib":    s.UsableCapacityGiB,
		"available_capacity_gib": s.AvailableCapacityGiB,
		"raw_capacity_gib":       s.RawCapacityGiB,
		"used_capacity_gib":      s.UsedCapacityGiB,
		"compression_ratio":      s.CompressionRatio,
		"data_reduction_ratio":   s.DataReductionRatio,
		"pool_count":             s.PoolCount,
		"volume_count":           s.VolumeCount,
		"managed_disk_count":     s.ManagedDiskCount,
	}
	if s.ProbeTime.Valid {
		m["probe_time"] = s.ProbeTime.Time.Format(time.RFC3339)
	} else {
		m["probe_time"] = nil
	}
	return m
}
