package domain

import (
	"database/sql"
	"time"
)

// CapacityHost 主机容量领域模型（对应 capacity_hosts 表）
// 同一上传内同名主机的多行不是重复：是多条 LUN 映射测量值，容量字段求和聚合为一行
// 容量字段用 NullFloat64：聚合后总和为 0 记为 NULL（区分"无数据"与"实测为 0"）
type CapacityHost struct {
	HostID   string `db:"host_id"`
	TenantID string `db:"tenant_id"` // NOT NULL
	UploadID string `db:"upload_id"`

	ReportDate time.Time `db:"report_date"`
	Name       string    `db:"name"`

	HostType sql.NullString `db:"host_type"` // nullable

	// 容量（GiB），聚合时求和
	SANCapacityGiB       sql.NullFloat64 `db:"san_capacity_gib"`
	AllocatedCapacityGiB sql.NullFloat64 `db:"allocated_capacity_gib"`
	AvailableCapacityGiB sql.NullFloat64 `db:"available_capacity_gib"`

	VolumeCount int `db:"volume_count"`
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (h *CapacityHost) ToJSON() map[string]any {
	m := map[string]any{
		"host_id":      h.HostID,
		"tenant_id":    h.TenantID,
		"upload_id":    h.UploadID,
		"report_date":  h.ReportDate.Format("2006-01-02"),
		"name":         h.Name,
		"volume_count": h.VolumeCount,
	}
	if h.HostType.Valid {
		m["host_type"] = h.HostType.String
	} else {
		m["host_type"] = nil
	}
	for key, v := range map[string]sql.NullFloat64{
		"san_capacity_gib":       h.SANCapacityGiB,
		"allocated_capacity_gib": h.AllocatedCapacityGiB,
		"available_capacity_gib": h.AvailableCapacityGiB,
	} {
		if v.Valid {
			m[key] = v.Float64
		} else {
			m[key] = nil
		}
	}
	return m
}
