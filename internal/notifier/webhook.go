package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/domain"
)

// AlertPayload 告警外推载荷
type AlertPayload struct {
	TenantID          string  `json:"tenant_id"`
	ReportDate        string  `json:"report_date"`
	PoolName          string  `json:"pool_name"`
	StorageSystemName string  `json:"storage_system_name"`
	Severity          string  `json:"severity"`
	UtilizationPct    float64 `json:"utilization_pct"`
	DaysToFull        int     `json:"days_to_full"`
	Message           string  `json:"message"`
}

// WebhookNotifier 容量告警 Webhook 推送客户端
// 告警入库后异步推送到运维侧接收端；推送失败只记日志，不影响入库结果
type WebhookNotifier struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewWebhookNotifier 创建 Webhook 推送客户端
func NewWebhookNotifier(webhookURL string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WebhookNotifier{
		httpClient: client,
		url:        webhookURL,
		logger:     logger,
	}
}

// NotifyAlerts 推送一次入库运行产生的新告警
func (n *WebhookNotifier) NotifyAlerts(ctx context.Context, alerts []domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	payloads := make([]AlertPayload, 0, len(alerts))
	for _, a := range alerts {
		payloads = append(payloads, AlertPayload{
			TenantID:          a.TenantID,
			ReportDate:        a.ReportDate.Format("2006-01-02"),
			PoolName:          a.PoolName,
			StorageSystemName: a.StorageSystemName,
			Severity:          a.Severity,
			UtilizationPct:    a.UtilizationPct,
			DaysToFull:        a.DaysToFull,
			Message:           a.Message,
		})
	}

	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]any{"alerts": payloads}).
		Post(n.url)
	if err != nil {
		n.logger.Error("Webhook notify failed",
			zap.Error(err),
			zap.Int("alert_count", len(alerts)),
		)
		return fmt.Errorf("failed to post alert webhook: %w", err)
	}
	if resp.StatusCode() >= 300 {
		n.logger.Error("Webhook endpoint returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.Int("alert_count", len(alerts)),
		)
		return fmt.Errorf("alert webhook rejected: status %d", resp.StatusCode())
	}

	n.logger.Info("Pushed capacity alerts to webhook",
		zap.Int("alert_count", len(alerts)),
	)
	return nil
}
