package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/domain"
)

// ListAlerts 查询报警列表
func (s *PostgresCapacityStore) ListAlerts(ctx context.Context, tenantID string, filters AlertFilters, page, size int) ([]*domain.Alert, int, error) {
	if tenantID == "" {
		return nil, 0, fmt.Errorf("tenant_id is required")
	}

	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argN := 2

	// Status filter
	switch filters.Status {
	case "active":
		where = append(where, "acknowledged = false")
	case "acknowledged":
		where = append(where, "acknowledged = true")
	}

	// Severity filter
	if filters.Severity != "" {
		where = append(where, fmt.Sprintf("severity = $%d", argN))
		args = append(args, filters.Severity)
		argN++
	}

	// Report date filter
	if filters.ReportDate != nil {
		where = append(where, fmt.Sprintf("report_date = $%d", argN))
		args = append(args, *filters.ReportDate)
		argN++
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM capacity_alerts `+whereClause, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 100
	}
	offset := (page - 1) * size
	args = append(args, size, offset)

	query := fmt.Sprintf(`
		SELECT
			alert_id::text, tenant_id::text, report_date, pool_name, storage_system_name,
			utilization_pct, severity, message, days_to_full,
			acknowledged, acknowledged_by, acknowledged_at, created_at
		FROM capacity_alerts
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argN, argN+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*domain.Alert{}
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(
			&a.AlertID, &a.TenantID, &a.ReportDate, &a.PoolName, &a.StorageSystemName,
			&a.UtilizationPct, &a.Severity, &a.Message, &a.DaysToFull,
			&a.Acknowledged, &a.AcknowledgedBy, &a.AcknowledgedAt, &a.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, &a)
	}
	return out, total, rows.Err()
}

// AcknowledgeAlert 确认报警（确认后同 pool+system 的新报警不再被抑制）
func (s *PostgresCapacityStore) AcknowledgeAlert(ctx context.Context, tenantID, alertID, acknowledgedBy string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if alertID == "" {
		return fmt.Errorf("alert_id is required")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE capacity_alerts SET
			acknowledged = true,
			acknowledged_by = $1,
			acknowledged_at = $2
		WHERE alert_id = $3 AND tenant_id = $4 AND acknowledged = false
	`, acknowledgedBy, time.Now(), alertID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// 区分"不存在"与"已确认"
		var acknowledged bool
		err := s.db.QueryRowContext(ctx, `
			SELECT acknowledged FROM capacity_alerts
			WHERE alert_id = $1 AND tenant_id = $2
		`, alertID, tenantID).Scan(&acknowledged)
		if err == sql.ErrNoRows {
			return fmt.Errorf("alert not found: alert_id=%s", alertID)
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("alert already acknowledged: alert_id=%s", alertID)
	}
	return nil
}
