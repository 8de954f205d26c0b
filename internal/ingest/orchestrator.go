package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/alerting"
	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/domain"
	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/repository"
)

// Orchestrator 入库编排器
// validating -> processing（固定表顺序）-> finalizing -> success|partial|failed
// 单事务：所有实体插入、报警插入、审计终态一起提交或一起回滚
type Orchestrator struct {
	store  repository.CapacityStore
	alerts *alerting.Generator
	opts   Options
	logger *zap.Logger
}

func NewOrchestrator(store repository.CapacityStore, alerts *alerting.Generator, opts Options, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{store: store, alerts: alerts, opts: opts, logger: logger}
}

// Run 执行一次入库。调用方永远拿到结构化 RunReport，行级/引用级错误
// 已在统计里吸收；返回的 error 仅表示运行级失败（此时 report.Status=failed）
func (o *Orchestrator) Run(ctx context.Context, tenantID, fileName string, file []byte, reportDate time.Time) (report *RunReport, err error) {
	reportDate = dateOnly(reportDate)
	report = &RunReport{
		UploadID:   uuid.New().String(),
		TenantID:   tenantID,
		ReportDate: reportDate.Format("2006-01-02"),
		Status:     domain.UploadStatusProcessing,
		startedAt:  time.Now(),
	}

	// validating
	tables, verrs, ok := OpenWorkbook(file)
	if !ok {
		report.ValidationErrs = verrs
		return o.fail(ctx, report, fileName, reportDate, fmt.Errorf("workbook validation failed: %d error(s)", len(verrs)))
	}

	tx, err := o.store.Begin(ctx)
	if err != nil {
		return o.fail(ctx, report, fileName, reportDate, fmt.Errorf("failed to begin ingest transaction: %w", err))
	}

	// 不可恢复错误（含 panic）：整体回滚，只留最小失败审计记录
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			report, err = o.fail(ctx, report, fileName, reportDate, fmt.Errorf("panic during ingest: %v", p))
		}
	}()

	if err := tx.CreateUploadLog(ctx, &domain.UploadLog{
		UploadID:   report.UploadID,
		TenantID:   tenantID,
		ReportDate: reportDate,
		FileName:   fileName,
		Status:     domain.UploadStatusProcessing,
		CreatedAt:  report.startedAt,
	}); err != nil {
		_ = tx.Rollback()
		return o.fail(ctx, report, fileName, reportDate, fmt.Errorf("failed to create upload log: %w", err))
	}

	// processing：Storage_Systems 必须先行，后续表的外键都解析到它建立的身份
	resolver := NewSystemResolver(func(ctx context.Context, name string) (string, bool, error) {
		return tx.SystemIDByName(ctx, tenantID, reportDate, name)
	})

	acceptedPools, err := o.processSheets(ctx, tx, tables, resolver, tenantID, report, reportDate)
	if err != nil {
		_ = tx.Rollback()
		return o.fail(ctx, report, fileName, reportDate, err)
	}

	// finalizing：对新入库的池跑报警评估；同 pool+system 已有未确认报警则抑制
	for _, alert := range o.alerts.Evaluate(tenantID, reportDate, acceptedPools) {
		outstanding, err := tx.UnacknowledgedAlertExists(ctx, tenantID, alert.PoolName, alert.StorageSystemName)
		if err != nil {
			_ = tx.Rollback()
			return o.fail(ctx, report, fileName, reportDate, fmt.Errorf("alert suppression check failed: %w", err))
		}
		if outstanding {
			continue
		}
		alert.AlertID = uuid.New().String()
		if err := tx.InsertAlert(ctx, &alert); err != nil {
			_ = tx.Rollback()
			return o.fail(ctx, report, fileName, reportDate, fmt.Errorf("failed to insert alert: %w", err))
		}
		report.AlertsCreated++
		report.NewAlerts = append(report.NewAlerts, alert)
	}

	report.Status = domain.UploadStatusSuccess
	if report.TotalFiltered > 0 || o.totalSkipped(report) > 0 {
		report.Status = domain.UploadStatusPartial
	}
	report.DurationMs = time.Since(report.startedAt).Milliseconds()

	statsJSON, err := json.Marshal(report.Sheets)
	if err != nil {
		_ = tx.Rollback()
		return o.fail(ctx, report, fileName, reportDate, fmt.Errorf("failed to serialize statistics: %w", err))
	}
	if err := tx.FinalizeUploadLog(ctx, &domain.UploadLog{
		UploadID:        report.UploadID,
		TenantID:        tenantID,
		Status:          report.Status,
		TotalRows:       report.TotalRows,
		TotalAdded:      report.TotalAdded,
		TotalDuplicates: report.TotalDuplicates,
		TotalFiltered:   report.TotalFiltered,
		DurationMs:      report.DurationMs,
		Statistics:      sql.NullString{String: string(statsJSON), Valid: true},
		FinalizedAt:     sql.NullTime{Time: time.Now(), Valid: true},
	}); err != nil {
		_ = tx.Rollback()
		return o.fail(ctx, report, fileName, reportDate, fmt.Errorf("failed to finalize upload log: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return o.fail(ctx, report, fileName, reportDate, fmt.Errorf("failed to commit ingest transaction: %w", err))
	}

	o.logger.Info("Ingest run committed",
		zap.String("upload_id", report.UploadID),
		zap.String("tenant_id", tenantID),
		zap.String("status", report.Status),
		zap.Int("added", report.TotalAdded),
		zap.Int("duplicates", report.TotalDuplicates),
		zap.Int("filtered", report.TotalFiltered),
		zap.Int("alerts_created", report.AlertsCreated),
	)
	return report, nil
}

// processSheets 按依赖顺序处理六张表，返回本次接受入库的池（供报警评估）
func (o *Orchestrator) processSheets(
	ctx context.Context,
	tx repository.IngestTx,
	tables map[string]*RawTable,
	resolver *SystemResolver,
	tenantID string,
	report *RunReport,
	reportDate time.Time,
) ([]domain.StoragePool, error) {
	// Storage_Systems
	{
		raw := tables[SheetStorageSystems]
		recs := TransformSystems(raw, reportDate, o.opts)
		st := &SheetStats{Sheet: SheetStorageSystems, Original: len(raw.Rows), AfterProcessing: len(recs)}
		err := insertDeduped(ctx, recs,
			func(r SystemRecord) map[string]string { return r.Raw },
			func(ctx context.Context, r SystemRecord) (bool, error) {
				return tx.StorageSystemExists(ctx, tenantID, r.System.ReportDate, r.System.Name)
			},
			func(ctx context.Context, r SystemRecord) error {
				r.System.SystemID = uuid.New().String()
				r.System.TenantID = tenantID
				r.System.UploadID = report.UploadID
				if err := tx.InsertStorageSystem(ctx, &r.System); err != nil {
					return err
				}
				resolver.Register(r.System.Name, r.System.SystemID)
				return nil
			},
			st,
		)
		if err != nil {
			return nil, err
		}
		report.addSheet(st)
	}

	// Storage_Pools
	var acceptedPools []domain.StoragePool
	{
		raw := tables[SheetStoragePools]
		recs := TransformPools(raw, reportDate, o.opts)
		st := &SheetStats{Sheet: SheetStoragePools, Original: len(raw.Rows), AfterProcessing: len(recs)}
		resolved, err := filterResolved(ctx, resolver, recs,
			func(r PoolRecord) string { return r.Pool.StorageSystemName },
			func(r *PoolRecord, id string) { r.Pool.StorageSystemID = id },
			func(r PoolRecord) map[string]string { return r.Raw },
			st,
		)
		if err != nil {
			return nil, err
		}
		err = insertDeduped(ctx, resolved,
			func(r PoolRecord) map[string]string { return r.Raw },
			func(ctx context.Context, r PoolRecord) (bool, error) {
				return tx.StoragePoolExists(ctx, tenantID, r.Pool.ReportDate, r.Pool.Name, r.Pool.StorageSystemName)
			},
			func(ctx context.Context, r PoolRecord) error {
				r.Pool.PoolID = uuid.New().String()
				r.Pool.TenantID = tenantID
				r.Pool.UploadID = report.UploadID
				if err := tx.InsertStoragePool(ctx, &r.Pool); err != nil {
					return err
				}
				acceptedPools = append(acceptedPools, r.Pool)
				return nil
			},
			st,
		)
		if err != nil {
			return nil, err
		}
		report.addSheet(st)
	}

	// Capacity_Volumes
	{
		raw := tables[SheetCapacityVolumes]
		recs := TransformVolumes(raw, reportDate, o.opts)
		st := &SheetStats{Sheet: SheetCapacityVolumes, Original: len(raw.Rows), AfterProcessing: len(recs)}
		resolved, err := filterResolved(ctx, resolver, recs,
			func(r VolumeRecord) string { return r.Volume.StorageSystemName },
			func(r *VolumeRecord, id string) { r.Volume.StorageSystemID = id },
			func(r VolumeRecord) map[string]string { return r.Raw },
			st,
		)
		if err != nil {
			return nil, err
		}
		err = insertDeduped(ctx, resolved,
			func(r VolumeRecord) map[string]string { return r.Raw },
			func(ctx context.Context, r VolumeRecord) (bool, error) {
				v := r.Volume
				return tx.CapacityVolumeExists(ctx, tenantID, v.ReportDate, v.VolumeName, v.StorageSystemName, v.PoolName)
			},
			func(ctx context.Context, r VolumeRecord) error {
				r.Volume.VolumeID = uuid.New().String()
				r.Volume.TenantID = tenantID
				r.Volume.UploadID = report.UploadID
				return tx.InsertCapacityVolume(ctx, &r.Volume)
			},
			st,
		)
		if err != nil {
			return nil, err
		}
		report.addSheet(st)
	}

	// Capacity_Hosts：批内同名行先聚合（求和），再走常规去重
	{
		raw := tables[SheetCapacityHosts]
		recs := TransformHosts(raw, reportDate, o.opts)
		st := &SheetStats{Sheet: SheetCapacityHosts, Original: len(raw.Rows), AfterProcessing: len(recs)}
		aggregated, audit := AggregateHosts(recs)
		st.Aggregated = len(recs) - len(aggregated)
		st.AggregatedRecords = audit
		err := insertDeduped(ctx, aggregated,
			func(r HostRecord) map[string]string { return r.Raw },
			func(ctx context.Context, r HostRecord) (bool, error) {
				return tx.CapacityHostExists(ctx, tenantID, r.Host.ReportDate, r.Host.Name)
			},
			func(ctx context.Context, r HostRecord) error {
				r.Host.HostID = uuid.New().String()
				r.Host.TenantID = tenantID
				r.Host.UploadID = report.UploadID
				return tx.InsertCapacityHost(ctx, &r.Host)
			},
			st,
		)
		if err != nil {
			return nil, err
		}
		report.addSheet(st)
	}

	// Capacity_Disks
	{
		raw := tables[SheetCapacityDisks]
		recs := TransformDisks(raw, reportDate, o.opts)
		st := &SheetStats{Sheet: SheetCapacityDisks, Original: len(raw.Rows), AfterProcessing: len(recs)}
		resolved, err := filterResolved(ctx, resolver, recs,
			func(r DiskRecord) string { return r.Disk.StorageSystemName },
			func(r *DiskRecord, id string) { r.Disk.StorageSystemID = id },
			func(r DiskRecord) map[string]string { return r.Raw },
			st,
		)
		if err != nil {
			return nil, err
		}
		err = insertDeduped(ctx, resolved,
			func(r DiskRecord) map[string]string { return r.Raw },
			func(ctx context.Context, r DiskRecord) (bool, error) {
				d := r.Disk
				// NULL 名磁盘互不碰撞，不查库
				if !d.Name.Valid {
					return false, nil
				}
				return tx.CapacityDiskExists(ctx, tenantID, d.ReportDate, d.Name, d.StorageSystemName, d.Pool)
			},
			func(ctx context.Context, r DiskRecord) error {
				r.Disk.DiskID = uuid.New().String()
				r.Disk.TenantID = tenantID
				r.Disk.UploadID = report.UploadID
				return tx.InsertCapacityDisk(ctx, &r.Disk)
			},
			st,
		)
		if err != nil {
			return nil, err
		}
		report.addSheet(st)
	}

	// Departments
	{
		raw := tables[SheetDepartments]
		recs := TransformDepartments(raw, reportDate, o.opts)
		st := &SheetStats{Sheet: SheetDepartments, Original: len(raw.Rows), AfterProcessing: len(recs)}
		err := insertDeduped(ctx, recs,
			func(r DepartmentRecord) map[string]string { return r.Raw },
			func(ctx context.Context, r DepartmentRecord) (bool, error) {
				return tx.DepartmentExists(ctx, tenantID, r.Department.ReportDate, r.Department.Name)
			},
			func(ctx context.Context, r DepartmentRecord) error {
				r.Department.DepartmentID = uuid.New().String()
				r.Department.TenantID = tenantID
				r.Department.UploadID = report.UploadID
				return tx.InsertDepartment(ctx, &r.Department)
			},
			st,
		)
		if err != nil {
			return nil, err
		}
		report.addSheet(st)
	}

	return acceptedPools, nil
}

// fail 运行级失败：单独提交最小失败审计记录（运行事务已回滚）
func (o *Orchestrator) fail(ctx context.Context, report *RunReport, fileName string, reportDate time.Time, cause error) (*RunReport, error) {
	report.Status = domain.UploadStatusFailed
	report.Error = cause.Error()
	report.DurationMs = time.Since(report.startedAt).Milliseconds()

	log := &domain.UploadLog{
		UploadID:   report.UploadID,
		TenantID:   report.TenantID,
		ReportDate: reportDate,
		FileName:   fileName,
		Status:     domain.UploadStatusFailed,
		DurationMs: report.DurationMs,
		Error:      sql.NullString{String: cause.Error(), Valid: true},
		CreatedAt:  report.startedAt,
	}
	if len(report.ValidationErrs) > 0 {
		if detail, err := json.Marshal(report.ValidationErrs); err == nil {
			log.Statistics = sql.NullString{String: string(detail), Valid: true}
		}
	}
	if err := o.store.WriteFailedUploadLog(ctx, log); err != nil {
		o.logger.Error("Failed to write failure audit record",
			zap.String("upload_id", report.UploadID),
			zap.Error(err),
		)
	}

	o.logger.Error("Ingest run failed",
		zap.String("upload_id", report.UploadID),
		zap.String("tenant_id", report.TenantID),
		zap.Error(cause),
	)
	return report, cause
}

func (o *Orchestrator) totalSkipped(report *RunReport) int {
	total := 0
	for _, s := range report.Sheets {
		total += s.Skipped
	}
	return total
}
