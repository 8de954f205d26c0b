package domain

import (
	"database/sql"
	"encoding/json"
	"time"
)

// 上传批次终态
const (
	UploadStatusProcessing = "processing"
	UploadStatusSuccess    = "success"
	UploadStatusPartial    = "partial"
	UploadStatusFailed     = "failed"
	UploadStatusDeleted    = "deleted"
)

// UploadLog 上传批次审计记录（对应 upload_logs 表）
// 每次入库一条：开始时创建，结束时落终态与统计
// statistics 为 JSONB，保存每张表的统计与所有被过滤/跳过/聚合行的完整原始数据
type UploadLog struct {
	UploadID string `db:"upload_id"`
	TenantID string `db:"tenant_id"` // NOT NULL

	ReportDate time.Time `db:"report_date"`
	FileName   string    `db:"file_name"`
	Status     string    `db:"status"`

	TotalRows       int `db:"total_rows"`
	TotalAdded      int `db:"total_added"`
	TotalDuplicates int `db:"total_duplicates"`
	TotalFiltered   int `db:"total_filtered"`

	DurationMs int64 `db:"duration_ms"`

	Statistics sql.NullString `db:"statistics"` // nullable, JSONB
	Error      sql.NullString `db:"error"`      // nullable，failed 时的失败原因

	CreatedAt   time.Time    `db:"created_at"`
	FinalizedAt sql.NullTime `db:"finalized_at"`
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (u *UploadLog) ToJSON() map[string]any {
	m := map[string]any{
		"upload_id":        u.UploadID,
		"tenant_id":        u.TenantID,
		"report_date":      u.ReportDate.Format("2006-01-02"),
		"file_name":        u.FileName,
		"status":           u.Status,
		"total_rows":       u.TotalRows,
		"total_added":      u.TotalAdded,
		"total_duplicates": u.TotalDuplicates,
		"total_filtered":   u.TotalFiltered,
		"duration_ms":      u.DurationMs,
		"created_at":       u.CreatedAt.Format(time.RFC3339),
	}
	if u.Statistics.Valid {
		// 尝试解析JSON，如果失败则返回字符串
		var stats any
		if err := json.Unmarshal([]byte(u.Statistics.String), &stats); err == nil {
			m["statistics"] = stats
		} else {
			m["statistics"] = u.Statistics.String
		}
	} else {
		m["statistics"] = nil
	}
	if u.Error.Valid {
		m["error"] = u.Error.String
	} else {
		m["error"] = nil
	}
	if u.FinalizedAt.Valid {
		m["finalized_at"] = u.FinalizedAt.Time.Format(time.RFC3339)
	} else {
		m["finalized_at"] = nil
	}
	return m
}
