package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/domain"
)

// PostgresCapacityStore 容量数据存储实现（强类型）
type PostgresCapacityStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresCapacityStore 创建容量存储
func NewPostgresCapacityStore(db *sql.DB, logger *zap.Logger) *PostgresCapacityStore {
	return &PostgresCapacityStore{db: db, logger: logger}
}

// Begin 开启一次入库运行的事务
func (s *PostgresCapacityStore) Begin(ctx context.Context) (IngestTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin ingest transaction: %w", err)
	}
	return &postgresIngestTx{tx: tx}, nil
}

// WriteFailedUploadLog 运行事务回滚后单独提交最小失败审计记录
func (s *PostgresCapacityStore) WriteFailedUploadLog(ctx context.Context, log *domain.UploadLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO upload_logs (
			upload_id, tenant_id, report_date, file_name, status,
			duration_ms, statistics, error, created_at, finalized_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP)
		ON CONFLICT (upload_id) DO UPDATE SET
			status = EXCLUDED.status,
			duration_ms = EXCLUDED.duration_ms,
			statistics = EXCLUDED.statistics,
			error = EXCLUDED.error,
			finalized_at = CURRENT_TIMESTAMP
	`,
		log.UploadID, log.TenantID, log.ReportDate, log.FileName, domain.UploadStatusFailed,
		log.DurationMs, nullStringToAny(log.Statistics), nullStringToAny(log.Error), log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write failed upload log: %w", err)
	}
	return nil
}

// postgresIngestTx 一次入库运行的事务作用域
type postgresIngestTx struct {
	tx  *sql.Tx
	seq int
}

func (t *postgresIngestTx) Commit() error   { return t.tx.Commit() }
func (t *postgresIngestTx) Rollback() error { return t.tx.Rollback() }

// execInsert 用 SAVEPOINT 包住单条插入
// Postgres 里语句失败会让整个事务进入 aborted 状态；单条约束冲突必须能
// 跳过该记录继续批次，所以每条插入独立 savepoint
func (t *postgresIngestTx) execInsert(ctx context.Context, query string, args ...any) error {
	t.seq++
	sp := fmt.Sprintf("sp_ins_%d", t.seq)
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
			return fmt.Errorf("savepoint rollback failed: %v (insert error: %w)", rbErr, err)
		}
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate key (%s)", pqErr.Constraint)
		}
		return err
	}
	if _, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+sp); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

func (t *postgresIngestTx) queryExists(ctx context.Context, query string, args ...any) (bool, error) {
	var exists bool
	if err := t.tx.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ============================================
// 审计记录
// ============================================

// CreateUploadLog 运行开始时创建审计记录（随运行事务提交/回滚）
func (t *postgresIngestTx) CreateUploadLog(ctx context.Context, log *domain.UploadLog) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO upload_logs (upload_id, tenant_id, report_date, file_name, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, log.UploadID, log.TenantID, log.ReportDate, log.FileName, log.Status, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create upload log: %w", err)
	}
	return nil
}

// FinalizeUploadLog 运行结束落终态与统计
func (t *postgresIngestTx) FinalizeUploadLog(ctx context.Context, log *domain.UploadLog) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE upload_logs SET
			status = $1,
			total_rows = $2,
			total_added = $3,
			total_duplicates = $4,
			total_filtered = $5,
			duration_ms = $6,
			statistics = $7,
			finalized_at = $8
		WHERE upload_id = $9 AND tenant_id = $10
	`,
		log.Status, log.TotalRows, log.TotalAdded, log.TotalDuplicates, log.TotalFiltered,
		log.DurationMs, nullStringToAny(log.Statistics), log.FinalizedAt, log.UploadID, log.TenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize upload log: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("upload log not found: upload_id=%s", log.UploadID)
	}
	return nil
}

// ============================================
// 实体插入与去重查询
// ============================================

func (t *postgresIngestTx) InsertStorageSystem(ctx context.Context, s *domain.StorageSystem) error {
	return t.execInsert(ctx, `
		INSERT INTO storage_systems (
			system_id, tenant_id, upload_id, report_date, name,
			usable_capacity_gib, available_capacity_gib, raw_capacity_gib, used_capacity_gib,
			compression_ratio, data_reduction_ratio,
			pool_count, volume_count, managed_disk_count, probe_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		s.SystemID, s.TenantID, s.UploadID, s.ReportDate, s.Name,
		s.UsableCapacityGiB, s.AvailableCapacityGiB, s.RawCapacityGiB, s.UsedCapacityGiB,
		s.CompressionRatio, s.DataReductionRatio,
		s.PoolCount, s.VolumeCount, s.ManagedDiskCount, s.ProbeTime,
	)
}

func (t *postgresIngestTx) StorageSystemExists(ctx context.Context, tenantID string, reportDate time.Time, name string) (bool, error) {
	return t.queryExists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM storage_systems
			WHERE tenant_id = $1 AND report_date = $2 AND name = $3
		)
	`, tenantID, reportDate, name)
}

func (t *postgresIngestTx) SystemIDByName(ctx context.Context, tenantID string, reportDate time.Time, name string) (string, bool, error) {
	var id string
	err := t.tx.QueryRowContext(ctx, `
		SELECT system_id::text FROM storage_systems
		WHERE tenant_id = $1 AND report_date = $2 AND name = $3
	`, tenantID, reportDate, name).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (t *postgresIngestTx) InsertStoragePool(ctx context.Context, p *domain.StoragePool) error {
	return t.execInsert(ctx, `
		INSERT INTO storage_pools (
			pool_id, tenant_id, upload_id, report_date, name,
			storage_system_id, storage_system_name, parent_pool,
			usable_capacity_gib, available_capacity_gib, used_capacity_gib, utilization_pct,
			recent_growth_gib, compressed, encrypted
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		p.PoolID, p.TenantID, p.UploadID, p.ReportDate, p.Name,
		p.StorageSystemID, p.StorageSystemName, nullStringToAny(p.ParentPool),
		p.UsableCapacityGiB, p.AvailableCapacityGiB, p.UsedCapacityGiB, p.UtilizationPct,
		p.RecentGrowthGiB, p.Compressed, p.Encrypted,
	)
}

func (t *postgresIngestTx) StoragePoolExists(ctx context.Context, tenantID string, reportDate time.Time, name, systemName string) (bool, error) {
	return t.queryExists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM storage_pools
			WHERE tenant_id = $1 AND report_date = $2 AND name = $3 AND storage_system_name = $4
		)
	`, tenantID, reportDate, name, systemName)
}

func (t *postgresIngestTx) InsertCapacityVolume(ctx context.Context, v *domain.CapacityVolume) error {
	return t.execInsert(ctx, `
		INSERT INTO capacity_volumes (
			volume_id, tenant_id, upload_id, report_date,
			volume_name, pool_name, storage_system_id, storage_system_name,
			provisioned_capacity_gib, used_capacity_gib, available_capacity_gib, overhead_used_capacity_gib,
			compressed, thin_provisioned
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		v.VolumeID, v.TenantID, v.UploadID, v.ReportDate,
		v.VolumeName, v.PoolName, v.StorageSystemID, v.StorageSystemName,
		v.ProvisionedCapacityGiB, v.UsedCapacityGiB, v.AvailableCapacityGiB, v.OverheadUsedCapacityGiB,
		v.Compressed, v.ThinProvisioned,
	)
}

func (t *postgresIngestTx) CapacityVolumeExists(ctx context.Context, tenantID string, reportDate time.Time, volumeName, systemName, poolName string) (bool, error) {
	return t.queryExists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM capacity_volumes
			WHERE tenant_id = $1 AND report_date = $2 AND volume_name = $3
			  AND storage_system_name = $4 AND pool_name = $5
		)
	`, tenantID, reportDate, volumeName, systemName, poolName)
}

func (t *postgresIngestTx) InsertCapacityHost(ctx context.Context, h *domain.CapacityHost) error {
	return t.execInsert(ctx, `
		INSERT INTO capacity_hosts (
			host_id, tenant_id, upload_id, report_date, name, host_type,
			san_capacity_gib, allocated_capacity_gib, available_capacity_gib, volume_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		h.HostID, h.TenantID, h.UploadID, h.ReportDate, h.Name, nullStringToAny(h.HostType),
		h.SANCapacityGiB, h.AllocatedCapacityGiB, h.AvailableCapacityGiB, h.VolumeCount,
	)
}

func (t *postgresIngestTx) CapacityHostExists(ctx context.Context, tenantID string, reportDate time.Time, name string) (bool, error) {
	return t.queryExists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM capacity_hosts
			WHERE tenant_id = $1 AND report_date = $2 AND name = $3
		)
	`, tenantID, reportDate, name)
}

func (t *postgresIngestTx) InsertCapacityDisk(ctx context.Context, d *domain.CapacityDisk) error {
	return t.execInsert(ctx, `
		INSERT INTO capacity_disks (
			disk_id, tenant_id, upload_id, report_date, name,
			storage_system_id, storage_system_name, pool,
			capacity_gib, available_capacity_gib, used_capacity_gib,
			status, vendor, model, speed_rpm
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		d.DiskID, d.TenantID, d.UploadID, d.ReportDate, nullStringToAny(d.Name),
		d.StorageSystemID, d.StorageSystemName, d.Pool,
		d.CapacityGiB, d.AvailableCapacityGiB, d.UsedCapacityGiB,
		nullStringToAny(d.Status), nullStringToAny(d.Vendor), nullStringToAny(d.Model), d.SpeedRPM,
	)
}

// CapacityDiskExists name 为 NULL 的磁盘互不碰撞（调用方已短路，此处只查非空名）
func (t *postgresIngestTx) CapacityDiskExists(ctx context.Context, tenantID string, reportDate time.Time, name sql.NullString, systemName, pool string) (bool, error) {
	if !name.Valid {
		return false, nil
	}
	return t.queryExists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM capacity_disks
			WHERE tenant_id = $1 AND report_date = $2 AND name = $3
			  AND storage_system_name = $4 AND pool = $5
		)
	`, tenantID, reportDate, name.String, systemName, pool)
}

func (t *postgresIngestTx) InsertDepartment(ctx context.Context, d *domain.Department) error {
	return t.execInsert(ctx, `
		INSERT INTO departments (
			department_id, tenant_id, upload_id, report_date, name,
			used_capacity_gib, provisioned_capacity_gib, volume_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		d.DepartmentID, d.TenantID, d.UploadID, d.ReportDate, d.Name,
		d.UsedCapacityGiB, d.ProvisionedCapacityGiB, d.VolumeCount,
	)
}

func (t *postgresIngestTx) DepartmentExists(ctx context.Context, tenantID string, reportDate time.Time, name string) (bool, error) {
	return t.queryExists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM departments
			WHERE tenant_id = $1 AND report_date = $2 AND name = $3
		)
	`, tenantID, reportDate, name)
}

// ============================================
// 报警
// ============================================

func (t *postgresIngestTx) InsertAlert(ctx context.Context, a *domain.Alert) error {
	return t.execInsert(ctx, `
		INSERT INTO capacity_alerts (
			alert_id, tenant_id, report_date, pool_name, storage_system_name,
			utilization_pct, severity, message, days_to_full, acknowledged, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, $10)
	`,
		a.AlertID, a.TenantID, a.ReportDate, a.PoolName, a.StorageSystemName,
		a.UtilizationPct, a.Severity, a.Message, a.DaysToFull, a.CreatedAt,
	)
}

// UnacknowledgedAlertExists 同 pool+system 是否已有未确认报警（报警风暴抑制）
func (t *postgresIngestTx) UnacknowledgedAlertExists(ctx context.Context, tenantID, poolName, systemName string) (bool, error) {
	return t.queryExists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM capacity_alerts
			WHERE tenant_id = $1 AND pool_name = $2 AND storage_system_name = $3
			  AND acknowledged = false
		)
	`, tenantID, poolName, systemName)
}

// nullStringToAny sql.NullString 转 SQL 参数
func nullStringToAny(v sql.NullString) any {
	if v.Valid {
		return v.String
	}
	return nil
}
