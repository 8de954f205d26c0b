package domain

import (
	"database/sql"
	"time"
)

// StoragePool 存储池领域模型（对应 storage_pools 表）
// 归属唯一 StorageSystem（按同批次/同 report_date 的系统名解析外键）
// used_capacity_gib 与 utilization_pct 为派生字段，不信任源数据
type StoragePool struct {
	PoolID   string `db:"pool_id"`
	TenantID string `db:"tenant_id"` // NOT NULL
	UploadID string `db:"upload_id"`

	ReportDate time.Time `db:"report_date"`
	Name       string    `db:"name"`

	// 外键：归属存储系统
	StorageSystemID   string `db:"storage_system_id"`
	StorageSystemName string `db:"storage_system_name"`

	// 父池（按名引用，层级结构，不做外键约束）
	ParentPool sql.NullString `db:"parent_pool"`

	// 容量（GiB）
	UsableCapacityGiB    float64 `db:"usable_capacity_gib"`
	AvailableCapacityGiB float64 `db:"available_capacity_gib"`
	UsedCapacityGiB      float64 `db:"used_capacity_gib"` // derived: usable - available
	UtilizationPct       float64 `db:"utilization_pct"`   // derived: used/usable*100

	// 近期日增长（GiB/天），用于 days-to-full 估算
	RecentGrowthGiB float64 `db:"recent_growth_gib"`

	Compressed bool `db:"compressed"`
	Encrypted  bool `db:"encrypted"`
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (p *StoragePool) ToJSON() map[string]any {
	m := map[string]any{
		"pool_id":                p.PoolID,
		"tenant_id":              p.TenantID,
		"upload_id":              p.UploadID,
		"report_date":            p.ReportDate.Format("2006-01-02"),
		"name":                   p.Name,
		"storage_system_id":      p.StorageSystemID,
		"storage_system_name":    p.StorageSystemName,
		"usable_capacity_gib":    p.UsableCapacityGiB,
		"available_capacity_gib": p.AvailableCapacityGiB,
		"used_capacity_gib":      p.UsedCapacityGiB,
		"utilization_pct":        p.UtilizationPct,
		"recent_growth_gib":      p.RecentGrowthGiB,
		"compressed":             p.Compressed,
		"encrypted":              p.Encrypted,
	}
	if p.ParentPool.Valid {
		m["parent_pool"] = p.ParentPool.String
	} else {
		m["parent_pool"] = nil
	}
	return m
}
