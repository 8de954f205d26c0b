package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LatestReportDate 租户最近一次有数据的快照日期
func (s *PostgresCapacityStore) LatestReportDate(ctx context.Context, tenantID string) (time.Time, bool, error) {
	// MAX 在无数据时返回 NULL
	var date sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(report_date) FROM storage_systems WHERE tenant_id = $1
	`, tenantID).Scan(&date)
	if err != nil {
		return time.Time{}, false, err
	}
	if !date.Valid {
		return time.Time{}, false, nil
	}
	return date.Time, true, nil
}

// CapacityOverview 租户在指定快照日期的容量总览（池口径，单一路径聚合）
func (s *PostgresCapacityStore) CapacityOverview(ctx context.Context, tenantID string, reportDate time.Time) (*Overview, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}

	o := &Overview{ReportDate: reportDate}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(DISTINCT storage_system_name),
			COUNT(*),
			COALESCE(SUM(usable_capacity_gib), 0),
			COALESCE(SUM(used_capacity_gib), 0)
		FROM storage_pools
		WHERE tenant_id = $1 AND report_date = $2
	`, tenantID, reportDate).Scan(&o.SystemCount, &o.PoolCount, &o.UsableCapacityGiB, &o.UsedCapacityGiB)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate pools: %w", err)
	}
	if o.UsableCapacityGiB > 0 {
		o.UtilizationPct = o.UsedCapacityGiB / o.UsableCapacityGiB * 100
	}

	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM capacity_alerts
		WHERE tenant_id = $1 AND acknowledged = false
	`, tenantID).Scan(&o.ActiveAlerts); err != nil {
		return nil, fmt.Errorf("failed to count active alerts: %w", err)
	}

	return o, nil
}
