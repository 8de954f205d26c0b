package domain

import "time"

// Department 部门容量汇总领域模型（对应 departments 表）
type Department struct {
	DepartmentID string `db:"department_id"`
	TenantID     string `db:"tenant_id"` // NOT NULL
	UploadID     string `db:"upload_id"`

	ReportDate time.Time `db:"report_date"`
	Name       string    `db:"name"`

	UsedCapacityGiB        float64 `db:"used_capacity_gib"`
	ProvisionedCapacityGiB float64 `db:"provisioned_capacity_gib"`
	VolumeCount            int     `db:"volume_count"`
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (d *Department) ToJSON() map[string]any {
	return map[string]any{
		"department_id":            d.DepartmentID,
		"tenant_id":                d.TenantID,
		"upload_id":                d.UploadID,
		"report_date":              d.ReportDate.Format("2006-01-02"),
		"name":                     d.Name,
		"used_capacity_gib":        d.UsedCapacityGiB,
		"provisioned_capacity_gib": d.ProvisionedCapacityGiB,
		"volume_count":             d.VolumeCount,
	}
}
