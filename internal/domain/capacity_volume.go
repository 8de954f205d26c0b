package domain

import "time"

// CapacityVolume 容量卷领域模型（对应 capacity_volumes 表）
// 最细粒度容量单元，归属一个池和一个系统（外键只解析到系统）
// FlashSystem 类系统：available = provisioned - used（源数据不可信，强制重算）
// 其他系统：overhead_used = provisioned - used - available
type CapacityVolume struct {
	VolumeID string `db:"volume_id"`
	TenantID string `db:"tenant_id"` // NOT NULL
	UploadID string `db:"upload_id"`

	ReportDate time.Time `db:"report_date"`

	// 源表的 name/pool 列重命名而来，避免与其他实体歧义
	VolumeName string `db:"volume_name"`
	PoolName   string `db:"pool_name"`

	StorageSystemID   string `db:"storage_system_id"`
	StorageSystemName string `db:"storage_system_name"`

	// 容量（GiB）
	ProvisionedCapacityGiB  float64 `db:"provisioned_capacity_gib"`
	UsedCapacityGiB         float64 `db:"used_capacity_gib"`
	AvailableCapacityGiB    float64 `db:"available_capacity_gib"`
	OverheadUsedCapacityGiB float64 `db:"overhead_used_capacity_gib"` // derived，非 FlashSystem 类才有

	Compressed      bool `db:"compressed"`
	ThinProvisioned bool `db:"thin_provisioned"`
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (v *CapacityVolume) ToJSON() map[string]any {
	return map[string]any{
		"volume_id":                  v.VolumeID,
		"tenant_id":                  v.TenantID,
		"upload_id":                  v.UploadID,
		"report_date":                v.ReportDate.Format("2006-01-02"),
		"volume_name":                v.VolumeName,
		"pool_name":                  v.PoolName,
		"storage_system_id":          v.StorageSystemID,
		"storage_system_name":        v.StorageSystemName,
		"provisioned_capacity_gib":   v.ProvisionedCapacityGiB,
		"used_capacity_gib":          v.UsedCapacityGiB,
		"available_capacity_gib":     v.AvailableCapacityGiB,
		"overhead_used_capacity_gib": v.OverheadUsedCapacityGiB,
		"compressed":                 v.Compressed,
		"thin_provisioned":           v.ThinProvisioned,
	}
}
