package domain

import (
	"database/sql"
	"time"
)

// 报警级别（利用率阈值映射，见 alerting 包）
const (
	AlertSeverityWarning   = "warning"
	AlertSeverityCritical  = "critical"
	AlertSeverityEmergency = "emergency"
)

// Alert 容量报警领域模型（对应 capacity_alerts 表）
// 系统生成，非用户录入；入库时若同 pool+system 已有未确认报警则抑制（防止重复上传产生报警风暴）
// 只通过确认操作变更，不自动删除
type Alert struct {
	AlertID  string `db:"alert_id"`
	TenantID string `db:"tenant_id"` // NOT NULL

	ReportDate        time.Time `db:"report_date"`
	PoolName          string    `db:"pool_name"`
	StorageSystemName string    `db:"storage_system_name"`

	UtilizationPct float64 `db:"utilization_pct"` // 检测时刻的利用率
	Severity       string  `db:"severity"`
	Message        string  `db:"message"`
	DaysToFull     int     `db:"days_to_full"` // 预计满载天数

	Acknowledged   bool           `db:"acknowledged"`
	AcknowledgedBy sql.NullString `db:"acknowledged_by"`
	AcknowledgedAt sql.NullTime   `db:"acknowledged_at"`

	CreatedAt time.Time `db:"created_at"`
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (a *Alert) ToJSON() map[string]any {
	m := map[string]any{
		"alert_id":            a.AlertID,
		"tenant_id":           a.TenantID,
		"report_date":         a.ReportDate.Format("2006-01-02"),
		"pool_name":           a.PoolName,
		"storage_system_name": a.StorageSystemName,
		"utilization_pct":     a.UtilizationPct,
		"severity":            a.Severity,
		"message":             a.Message,
		"days_to_full":        a.DaysToFull,
		"acknowledged":        a.Acknowledged,
		"created_at":          a.CreatedAt.Format(time.RFC3339),
	}
	if a.AcknowledgedBy.Valid {
		m["acknowledged_by"] = a.AcknowledgedBy.String
	} else {
		m["acknowledged_by"] = nil
	}
	if a.AcknowledgedAt.Valid {
		m["acknowledged_at"] = a.AcknowledgedAt.Time.Format(time.RFC3339)
	} else {
		m["acknowledged_at"] = nil
	}
	return m
}
