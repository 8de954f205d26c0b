package domain

import (
	"database/sql"
	"time"
)

// CapacityDisk 受管磁盘领域模型（对应 capacity_disks 表）
// name 可为 NULL；NULL 名互不碰撞（每行各自独立，不参与去重）
type CapacityDisk struct {
	DiskID   string `db:"disk_id"`
	TenantID string `db:"tenant_id"` // NOT NULL
	UploadID string `db:"upload_id"`

	ReportDate time.Time      `db:"report_date"`
	Name       sql.NullString `db:"name"` // nullable

	StorageSystemID   string `db:"storage_system_id"`
	StorageSystemName string `db:"storage_system_name"`
	Pool              string `db:"pool"`

	// 容量（GiB）
	CapacityGiB          float64 `db:"capacity_gib"`
	AvailableCapacityGiB float64 `db:"available_capacity_gib"`
	UsedCapacityGiB      float64 `db:"used_capacity_gib"` // derived: capacity - available

	Status   sql.NullString `db:"status"`
	Vendor   sql.NullString `db:"vendor"`
	Model    sql.NullString `db:"model"`
	SpeedRPM float64        `db:"speed_rpm"`
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (d *CapacityDisk) ToJSON() map[string]any {
	m := map[string]any{
		"disk_id":                d.DiskID,
		"tenant_id":              d.TenantID,
		"upload_id":              d.UploadID,
		"report_date":            d.ReportDate.Format("2006-01-02"),
		"storage_system_id":      d.StorageSystemID,
		"storage_system_name":    d.StorageSystemName,
		"pool":                   d.Pool,
		"capacity_gib":           d.CapacityGiB,
		"available_capacity_gib": d.AvailableCapacityGiB,
		"used_capacity_gib":      d.UsedCapacityGiB,
		"speed_rpm":              d.SpeedRPM,
	}
	for key, v := range map[string]sql.NullString{
		"name":   d.Name,
		"status": d.Status,
		"vendor": d.Vendor,
		"model":  d.Model,
	} {
		if v.Valid {
			m[key] = v.String
		} else {
			m[key] = nil
		}
	}
	return m
}
