package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/domain"
)

// IngestTx 一次入库运行的事务作用域
// 所有实体插入、报警插入和审计记录一起提交，或在不可恢复错误时一起回滚
type IngestTx interface {
	CreateUploadLog(ctx context.Context, log *domain.UploadLog) error
	FinalizeUploadLog(ctx context.Context, log *domain.UploadLog) error

	InsertStorageSystem(ctx context.Context, s *domain.StorageSystem) error
	StorageSystemExists(ctx context.Context, tenantID string, reportDate time.Time, name string) (bool, error)
	SystemIDByName(ctx context.Context, tenantID string, reportDate time.Time, name string) (string, bool, error)

	InsertStoragePool(ctx context.Context, p *domain.StoragePool) error
	StoragePoolExists(ctx context.Context, tenantID string, reportDate time.Time, name, systemName string) (bool, error)

	InsertCapacityVolume(ctx context.Context, v *domain.CapacityVolume) error
	CapacityVolumeExists(ctx context.Context, tenantID string, reportDate time.Time, volumeName, systemName, poolName string) (bool, error)

	InsertCapacityHost(ctx context.Context, h *domain.CapacityHost) error
	CapacityHostExists(ctx context.Context, tenantID string, reportDate time.Time, name string) (bool, error)

	InsertCapacityDisk(ctx context.Context, d *domain.CapacityDisk) error
	CapacityDiskExists(ctx context.Context, tenantID string, reportDate time.Time, name sql.NullString, systemName, pool string) (bool, error)

	InsertDepartment(ctx context.Context, d *domain.Department) error
	DepartmentExists(ctx context.Context, tenantID string, reportDate time.Time, name string) (bool, error)

	InsertAlert(ctx context.Context, a *domain.Alert) error
	UnacknowledgedAlertExists(ctx context.Context, tenantID, poolName, systemName string) (bool, error)

	Commit() error
	Rollback() error
}

// AlertFilters 报警查询过滤条件
type AlertFilters struct {
	Status     string // "active"（未确认）| "acknowledged" | ""（全部）
	Severity   string
	ReportDate *time.Time
}

// Overview 租户容量总览（dashboard 读路径）
type Overview struct {
	ReportDate        time.Time `json:"-"`
	SystemCount       int       `json:"system_count"`
	PoolCount         int       `json:"pool_count"`
	UsableCapacityGiB float64   `json:"usable_capacity_gib"`
	UsedCapacityGiB   float64   `json:"used_capacity_gib"`
	UtilizationPct    float64   `json:"utilization_pct"`
	ActiveAlerts      int       `json:"active_alerts"`
}

// CapacityStore 容量数据存储
type CapacityStore interface {
	Begin(ctx context.Context) (IngestTx, error)

	// WriteFailedUploadLog 在运行事务回滚之后单独提交最小失败审计记录
	WriteFailedUploadLog(ctx context.Context, log *domain.UploadLog) error

	GetUploadLog(ctx context.Context, tenantID, uploadID string) (*domain.UploadLog, error)
	ListUploadLogs(ctx context.Context, tenantID string, page, size int) ([]*domain.UploadLog, int, error)

	// DeleteUploadRun 管理员回滚：按 upload_id 删实体行（子表先于父表），
	// 然后把审计记录标记为 deleted
	DeleteUploadRun(ctx context.Context, tenantID, uploadID string) error

	ListAlerts(ctx context.Context, tenantID string, filters AlertFilters, page, size int) ([]*domain.Alert, int, error)
	AcknowledgeAlert(ctx context.Context, tenantID, alertID, acknowledgedBy string) error

	LatestReportDate(ctx context.Context, tenantID string) (time.Time, bool, error)
	CapacityOverview(ctx context.Context, tenantID string, reportDate time.Time) (*Overview, error)
}
