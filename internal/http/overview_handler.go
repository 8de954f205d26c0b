package httpapi

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/service"
)

// OverviewHandler 容量总览 Handler（dashboard 首屏读路径）
type OverviewHandler struct {
	capacityService service.CapacityService
	logger          *zap.Logger
}

// NewOverviewHandler 创建总览 Handler
func NewOverviewHandler(capacityService service.CapacityService, logger *zap.Logger) *OverviewHandler {
	return &OverviewHandler{
		capacityService: capacityService,
		logger:          logger,
	}
}

// GetOverview 最新报告日期的租户容量总览
func (h *OverviewHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant := tenantID(r)
	if tenant == "" {
		writeJSON(w, http.StatusOK, Fail("tenant_id is required"))
		return
	}

	overview, err := h.capacityService.Overview(ctx, tenant)
	if err != nil {
		h.logger.Error("GetOverview failed", zap.String("tenant_id", tenant), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to get overview: %v", err)))
		return
	}

	out := map[string]any{
		"system_count":        overview.SystemCount,
		"pool_count":          overview.PoolCount,
		"usable_capacity_gib": overview.UsableCapacityGiB,
		"used_capacity_gib":   overview.UsedCapacityGiB,
		"utilization_pct":     overview.UtilizationPct,
		"active_alerts":       overview.ActiveAlerts,
	}
	if !overview.ReportDate.IsZero() {
		out["report_date"] = overview.ReportDate.Format("2006-01-02")
	}

	writeJSON(w, http.StatusOK, Ok(out))
}
