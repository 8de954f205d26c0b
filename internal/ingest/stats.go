package ingest

import (
	"time"

	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/domain"
)

// 审计原因（完整原始行随原因一起保存，供运维排查，不是日志副产品）
const (
	ReasonWithinFileDuplicate = "within_file_duplicate"
	ReasonAlreadyExistsInDB   = "already_exists_in_db"
)

// AuditEntry 一条被过滤/跳过/聚合的记录：原因 + 完整原始行
type AuditEntry struct {
	Reason string            `json:"reason"`
	Row    map[string]string `json:"row"`
	Count  int               `json:"count,omitempty"` // 聚合时的原始成员数
}

// SheetStats 单张工作表的入库统计
type SheetStats struct {
	Sheet             string       `json:"sheet"`
	Original          int          `json:"original"`         // 源行数
	AfterProcessing   int          `json:"after_processing"` // 清洗后行数
	Filtered          int          `json:"filtered"`         // 外键无法解析被排除
	FilteredRecords   []AuditEntry `json:"filtered_records,omitempty"`
	Duplicates        int          `json:"duplicates"` // 批内重复 + 库内已存在
	DuplicateRecords  []AuditEntry `json:"duplicate_records,omitempty"`
	Skipped           int          `json:"skipped"` // 单条插入失败被跳过
	SkippedRecords    []AuditEntry `json:"skipped_records,omitempty"`
	Aggregated        int          `json:"aggregated"` // 聚合折叠掉的行数（host）
	AggregatedRecords []AuditEntry `json:"aggregated_records,omitempty"`
	Added             int          `json:"added"`
}

// RunReport 一次入库的结构化结果（调用方拿到的永远是它，不是裸异常）
type RunReport struct {
	UploadID        string            `json:"upload_id"`
	TenantID        string            `json:"tenant_id"`
	ReportDate      string            `json:"report_date"`
	Status          string            `json:"status"`
	TotalRows       int               `json:"total_rows"`
	TotalAdded      int               `json:"total_added"`
	TotalDuplicates int               `json:"total_duplicates"`
	TotalFiltered   int               `json:"total_filtered"`
	AlertsCreated   int               `json:"alerts_created"`
	DurationMs      int64             `json:"duration_ms"`
	Sheets          []*SheetStats     `json:"sheets,omitempty"`
	ValidationErrs  []ValidationError `json:"validation_errors,omitempty"`
	Error           string            `json:"error,omitempty"`

	// NewAlerts 本次运行真正入库的告警（被抑制的不在内），供外推使用
	NewAlerts []domain.Alert `json:"-"`

	startedAt time.Time
}

func (r *RunReport) addSheet(s *SheetStats) {
	r.Sheets = append(r.Sheets, s)
	r.TotalRows += s.Original
	r.TotalAdded += s.Added
	r.TotalDuplicates += s.Duplicates
	r.TotalFiltered += s.Filtered
}
