package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/domain"
)

func setupMockCapacityStore(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresCapacityStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresCapacityStore(db, zap.NewNop())
}

var mockDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// ============================================
// 入库事务
// ============================================

func TestIngestTxInsertWithSavepoint(t *testing.T) {
	db, mock, store := setupMockCapacityStore(t)
	defer db.Close()

	ctx := context.Background()
	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT sp_ins_1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO departments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("RELEASE SAVEPOINT sp_ins_1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	err = tx.InsertDepartment(ctx, &domain.Department{
		DepartmentID: uuid.New().String(),
		TenantID:     uuid.New().String(),
		UploadID:     uuid.New().String(),
		ReportDate:   mockDate,
		Name:         "Radiology",
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestTxInsertConstraintViolationRollsBackToSavepoint(t *testing.T) {
	db, mock, store := setupMockCapacityStore(t)
	defer db.Close()

	ctx := context.Background()
	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT sp_ins_1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO departments").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_departments"})
	mock.ExpectExec("ROLLBACK TO SAVEPOINT sp_ins_1").WillReturnResult(sqlmock.NewResult(0, 0))
	// 事务仍可继续提交（savepoint 回滚后未 aborted）
	mock.ExpectCommit()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	err = tx.InsertDepartment(ctx, &domain.Department{
		DepartmentID: uuid.New().String(),
		ReportDate:   mockDate,
		Name:         "Radiology",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate key (uq_departments)")

	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestTxExistsQueries(t *testing.T) {
	db, mock, store := setupMockCapacityStore(t)
	defer db.Close()

	ctx := context.Background()
	tenantID := uuid.New().String()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(tenantID, mockDate, "FS92K-A1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	found, err := tx.StorageSystemExists(ctx, tenantID, mockDate, "FS92K-A1")
	require.NoError(t, err)
	assert.True(t, found)
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestTxDiskExistsNullNameShortCircuits(t *testing.T) {
	db, mock, store := setupMockCapacityStore(t)
	defer db.Close()

	ctx := context.Background()
	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	// NULL 名不查库
	found, err := tx.CapacityDiskExists(ctx, uuid.New().String(), mockDate, sql.NullString{}, "FS92K-A1", "Pool-1")
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// 审计记录
// ============================================

func TestGetUploadLogNotFound(t *testing.T) {
	db, mock, store := setupMockCapacityStore(t)
	defer db.Close()

	uploadID := uuid.New().String()
	tenantID := uuid.New().String()
	mock.ExpectQuery("SELECT").WithArgs(uploadID, tenantID).WillReturnError(sql.ErrNoRows)

	log, err := store.GetUploadLog(context.Background(), tenantID, uploadID)
	assert.Error(t, err)
	assert.Nil(t, log)
	assert.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListUploadLogs(t *testing.T) {
	db, mock, store := setupMockCapacityStore(t)
	defer db.Close()

	tenantID := uuid.New().String()
	uploadID := uuid.New().String()

	mock.ExpectQuery("SELECT COUNT").WithArgs(tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT").WithArgs(tenantID, 50, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"upload_id", "tenant_id", "report_date", "file_name", "status",
			"total_rows", "total_added", "total_duplicates", "total_filtered",
			"duration_ms", "statistics", "error", "created_at", "finalized_at",
		}).AddRow(
			uploadID, tenantID, mockDate, "weekly.xlsx", domain.UploadStatusSuccess,
			10, 8, 2, 0,
			120, `[{"sheet":"Storage_Systems"}]`, nil, time.Now(), time.Now(),
		))

	logs, total, err := store.ListUploadLogs(context.Background(), tenantID, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, logs, 1)
	assert.Equal(t, uploadID, logs[0].UploadID)
	assert.Equal(t, domain.UploadStatusSuccess, logs[0].Status)
	assert.True(t, logs[0].Statistics.Valid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUploadRunChildTablesFirst(t *testing.T) {
	db, mock, store := setupMockCapacityStore(t)
	defer db.Close()

	tenantID := uuid.New().String()
	uploadID := uuid.New().String()

	mock.ExpectQuery("SELECT status FROM upload_logs").WithArgs(uploadID, tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(domain.UploadStatusSuccess))

	mock.ExpectBegin()
	// 子表先于父表
	for _, table := range []string{
		"capacity_volumes", "capacity_disks", "capacity_hosts", "departments",
		"storage_pools", "storage_systems",
	} {
		mock.ExpectExec("DELETE FROM "+table).WithArgs(uploadID, tenantID).
			WillReturnResult(sqlmock.NewResult(0, 2))
	}
	mock.ExpectExec("UPDATE upload_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.DeleteUploadRun(context.Background(), tenantID, uploadID))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUploadRunAlreadyDeleted(t *testing.T) {
	db, mock, store := setupMockCapacityStore(t)
	defer db.Close()

	tenantID := uuid.New().String()
	uploadID := uuid.New().String()

	mock.ExpectQuery("SELECT status FROM upload_logs").WithArgs(uploadID, tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(domain.UploadStatusDeleted))

	err := store.DeleteUploadRun(context.Background(), tenantID, uploadID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already deleted")
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// 报警
// ============================================

func TestListAlertsFilters(t *testing.T) {
	db, mock, store := setupMockCapacityStore(t)
	defer db.Close()

	tenantID := uuid.New().String()
	alertID := uuid.New().String()

	mock.ExpectQuery("SELECT COUNT").WithArgs(tenantID, domain.AlertSeverityCritical).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT").WithArgs(tenantID, domain.AlertSeverityCritical, 50, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"alert_id", "tenant_id", "report_date", "pool_name", "storage_system_name",
			"utilization_pct", "severity", "message", "days_to_full",
			"acknowledged", "acknowledged_by", "acknowledged_at", "created_at",
		}).AddRow(
			alertID, tenantID, mockDate, "Pool-1", "FS92K-A1",
			98.5, domain.AlertSeverityCritical, "Pool is nearly full", 2,
			false, nil, nil, time.Now(),
		))

	alerts, total, err := store.ListAlerts(context.Background(), tenantID, AlertFilters{
		Status:   "active",
		Severity: domain.AlertSeverityCritical,
	}, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, alerts, 1)
	assert.Equal(t, alertID, alerts[0].AlertID)
	assert.False(t, alerts[0].Acknowledged)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcknowledgeAlert(t *testing.T) {
	db, mock, store := setupMockCapacityStore(t)
	defer db.Close()

	tenantID := uuid.New().String()
	alertID := uuid.New().String()

	mock.ExpectExec("UPDATE capacity_alerts").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.AcknowledgeAlert(context.Background(), tenantID, alertID, "ops-admin"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcknowledgeAlertAlreadyAcknowledged(t *testing.T) {
	db, mock, store := setupMockCapacityStore(t)
	defer db.Close()

	tenantID := uuid.New().String()
	alertID := uuid.New().String()

	mock.ExpectExec("UPDATE capacity_alerts").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT acknowledged FROM capacity_alerts").WithArgs(alertID, tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"acknowledged"}).AddRow(true))

	err := store.AcknowledgeAlert(context.Background(), tenantID, alertID, "ops-admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already acknowledged")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcknowledgeAlertNotFound(t *testing.T) {
	db, mock, store := setupMockCapacityStore(t)
	defer db.Close()

	tenantID := uuid.New().String()
	alertID := uuid.New().String()

	mock.ExpectExec("UPDATE capacity_alerts").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT acknowledged FROM capacity_alerts").WithArgs(alertID, tenantID).
		WillReturnError(sql.ErrNoRows)

	err := store.AcknowledgeAlert(context.Background(), tenantID, alertID, "ops-admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// 总览
// ============================================

func TestLatestReportDateNoData(t *testing.T) {
	db, mock, store := setupMockCapacityStore(t)
	defer db.Close()

	tenantID := uuid.New().String()
	mock.ExpectQuery("SELECT MAX").WithArgs(tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	_, ok, err := store.LatestReportDate(context.Background(), tenantID)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCapacityOverview(t *testing.T) {
	db, mock, store := setupMockCapacityStore(t)
	defer db.Close()

	tenantID := uuid.New().String()
	mock.ExpectQuery("SELECT").WithArgs(tenantID, mockDate).
		WillReturnRows(sqlmock.NewRows([]string{"systems", "pools", "usable", "used"}).
			AddRow(2, 5, 1000.0, 600.0))
	mock.ExpectQuery("SELECT COUNT").WithArgs(tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	o, err := store.CapacityOverview(context.Background(), tenantID, mockDate)
	require.NoError(t, err)
	assert.Equal(t, 2, o.SystemCount)
	assert.Equal(t, 5, o.PoolCount)
	assert.Equal(t, 60.0, o.UtilizationPct)
	assert.Equal(t, 3, o.ActiveAlerts)
	require.NoError(t, mock.ExpectationsWereMet())
}
