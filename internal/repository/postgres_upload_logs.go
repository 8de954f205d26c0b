package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/domain"
)

const uploadLogColumns = `
	upload_id::text, tenant_id::text, report_date, file_name, status,
	total_rows, total_added, total_duplicates, total_filtered,
	duration_ms, statistics, error, created_at, finalized_at
`

func scanUploadLog(row interface{ Scan(...any) error }) (*domain.UploadLog, error) {
	var u domain.UploadLog
	err := row.Scan(
		&u.UploadID, &u.TenantID, &u.ReportDate, &u.FileName, &u.Status,
		&u.TotalRows, &u.TotalAdded, &u.TotalDuplicates, &u.TotalFiltered,
		&u.DurationMs, &u.Statistics, &u.Error, &u.CreatedAt, &u.FinalizedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUploadLog 查询单条审计记录（需验证 tenant_id）
func (s *PostgresCapacityStore) GetUploadLog(ctx context.Context, tenantID, uploadID string) (*domain.UploadLog, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	u, err := scanUploadLog(s.db.QueryRowContext(ctx, `
		SELECT `+uploadLogColumns+`
		FROM upload_logs
		WHERE upload_id = $1 AND tenant_id = $2
	`, uploadID, tenantID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("upload log not found: upload_id=%s", uploadID)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListUploadLogs 查询审计记录列表（按创建时间倒序）
func (s *PostgresCapacityStore) ListUploadLogs(ctx context.Context, tenantID string, page, size int) ([]*domain.UploadLog, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM upload_logs WHERE tenant_id = $1`, tenantID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	offset := (page - 1) * size

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+uploadLogColumns+`
		FROM upload_logs
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, tenantID, size, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*domain.UploadLog{}
	for rows.Next() {
		u, err := scanUploadLog(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// DeleteUploadRun 管理员回滚一次入库
// 按 upload_id 删实体行，子表先于父表（volumes/disks/hosts/pools 先于 systems），
// 然后把审计记录标记为 deleted
func (s *PostgresCapacityStore) DeleteUploadRun(ctx context.Context, tenantID, uploadID string) error {
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT status FROM upload_logs
		WHERE upload_id = $1 AND tenant_id = $2
	`, uploadID, tenantID).Scan(&status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("upload log not found: upload_id=%s", uploadID)
	}
	if err != nil {
		return fmt.Errorf("failed to query upload log: %w", err)
	}
	if status == domain.UploadStatusDeleted {
		return fmt.Errorf("upload run already deleted: upload_id=%s", uploadID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 子表先删
	for _, table := range []string{
		"capacity_volumes", "capacity_disks", "capacity_hosts", "departments",
		"storage_pools", "storage_systems",
	} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE upload_id = $1 AND tenant_id = $2`, table),
			uploadID, tenantID,
		); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE upload_logs SET status = $1, finalized_at = $2
		WHERE upload_id = $3 AND tenant_id = $4
	`, domain.UploadStatusDeleted, time.Now(), uploadID, tenantID); err != nil {
		return fmt.Errorf("failed to mark upload log deleted: %w", err)
	}

	return tx.Commit()
}
