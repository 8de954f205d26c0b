package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/service"
)

// AlertHandler 容量告警 Handler
type AlertHandler struct {
	capacityService service.CapacityService
	logger          *zap.Logger
}

// NewAlertHandler 创建告警 Handler
func NewAlertHandler(capacityService service.CapacityService, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{
		capacityService: capacityService,
		logger:          logger,
	}
}

// ListAlerts 告警列表（status/severity/report_date 过滤）
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant := tenantID(r)
	if tenant == "" {
		writeJSON(w, http.StatusOK, Fail("tenant_id is required"))
		return
	}

	req := service.ListAlertsRequest{
		TenantID: tenant,
		Status:   r.URL.Query().Get("status"),
		Severity: r.URL.Query().Get("severity"),
		Page:     parseInt(r.URL.Query().Get("page"), 1),
		Size:     parseInt(r.URL.Query().Get("size"), 50),
	}
	if v := r.URL.Query().Get("report_date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("invalid report_date %q, expected YYYY-MM-DD", v)))
			return
		}
		req.ReportDate = &parsed
	}

	resp, err := h.capacityService.ListAlerts(ctx, req)
	if err != nil {
		h.logger.Error("ListAlerts failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to list alerts: %v", err)))
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}

// AcknowledgeAlert 确认告警（解除同池抑制）
func (h *AlertHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request, alertID string) {
	ctx := r.Context()

	tenant := tenantID(r)
	if tenant == "" {
		writeJSON(w, http.StatusOK, Fail("tenant_id is required"))
		return
	}

	var payload struct {
		AcknowledgedBy string `json:"acknowledged_by"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	if payload.AcknowledgedBy == "" {
		writeJSON(w, http.StatusOK, Fail("acknowledged_by is required"))
		return
	}

	if err := h.capacityService.AcknowledgeAlert(ctx, tenant, alertID, payload.AcknowledgedBy); err != nil {
		h.logger.Error("AcknowledgeAlert failed", zap.String("alert_id", alertID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to acknowledge alert: %v", err)))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"success":  true,
		"alert_id": alertID,
	}))
}
