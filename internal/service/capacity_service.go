package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/domain"
	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/ingest"
	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/repository"
	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/store"
)

// 总览缓存 TTL；入库和删除会主动失效，这里只兜底
const overviewCacheTTL = 5 * time.Minute

// alertNotifier 告警外推接口（用于测试和可选关闭）
type alertNotifier interface {
	NotifyAlerts(ctx context.Context, alerts []domain.Alert) error
}

// CapacityService 容量数据服务接口
type CapacityService interface {
	// UploadWorkbook 入库一份容量周报表格
	UploadWorkbook(ctx context.Context, req UploadWorkbookRequest) (*ingest.RunReport, error)

	// GetUpload 获取单次入库的审计记录
	GetUpload(ctx context.Context, tenantID, uploadID string) (*domain.UploadLog, error)

	// ListUploads 获取入库历史
	ListUploads(ctx context.Context, req ListUploadsRequest) (*ListUploadsResponse, error)

	// DeleteUploadRun 管理员回滚一次入库
	DeleteUploadRun(ctx context.Context, tenantID, uploadID string) error

	// ListAlerts 获取容量告警列表
	ListAlerts(ctx context.Context, req ListAlertsRequest) (*ListAlertsResponse, error)

	// AcknowledgeAlert 确认告警
	AcknowledgeAlert(ctx context.Context, tenantID, alertID, acknowledgedBy string) error

	// Overview 租户容量总览（最新报告日期）
	Overview(ctx context.Context, tenantID string) (*repository.Overview, error)
}

type capacityService struct {
	orchestrator *ingest.Orchestrator
	capStore     repository.CapacityStore
	kv           store.KV // 可为 nil（DB-less 本地联测）
	notifier     alertNotifier
	logger       *zap.Logger
}

// NewCapacityService 创建 CapacityService 实例
// notifier 可为 nil（外推未启用）
func NewCapacityService(
	orchestrator *ingest.Orchestrator,
	capStore repository.CapacityStore,
	kv store.KV,
	notifier alertNotifier,
	logger *zap.Logger,
) CapacityService {
	return &capacityService{
		orchestrator: orchestrator,
		capStore:     capStore,
		kv:           kv,
		notifier:     notifier,
		logger:       logger,
	}
}

// ============================================
// Request/Response DTOs
// ============================================

// UploadWorkbookRequest 表格入库请求
type UploadWorkbookRequest struct {
	TenantID   string    // 必填
	FileName   string    // 原始文件名（审计用）
	File       []byte    // xlsx 内容
	ReportDate time.Time // 报告日期（文件级，行内日期优先）
}

// ListUploadsRequest 入库历史请求
type ListUploadsRequest struct {
	TenantID string
	Page     int // 默认 1
	Size     int // 默认 50
}

// ListUploadsResponse 入库历史响应
type ListUploadsResponse struct {
	Items []map[string]any `json:"items"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
}

// ListAlertsRequest 告警列表请求
type ListAlertsRequest struct {
	TenantID   string
	Status     string // "active" | "acknowledged" | ""
	Severity   string
	ReportDate *time.Time
	Page       int
	Size       int
}

// ListAlertsResponse 告警列表响应
type ListAlertsResponse struct {
	Items []map[string]any `json:"items"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
}

// ============================================
// 实现
// ============================================

func (s *capacityService) UploadWorkbook(ctx context.Context, req UploadWorkbookRequest) (*ingest.RunReport, error) {
	if req.TenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if len(req.File) == 0 {
		return nil, fmt.Errorf("file is empty")
	}

	report, err := s.orchestrator.Run(ctx, req.TenantID, req.FileName, req.File, req.ReportDate)
	if err != nil {
		return report, err
	}

	s.invalidateOverview(ctx, req.TenantID)
	s.cacheLastRun(ctx, req.TenantID, report)

	// 告警外推失败不影响入库结果
	if s.notifier != nil && len(report.NewAlerts) > 0 {
		if err := s.notifier.NotifyAlerts(ctx, report.NewAlerts); err != nil {
			s.logger.Warn("Alert webhook push failed",
				zap.String("tenant_id", req.TenantID),
				zap.String("upload_id", report.UploadID),
				zap.Error(err),
			)
		}
	}
	return report, nil
}

func (s *capacityService) GetUpload(ctx context.Context, tenantID, uploadID string) (*domain.UploadLog, error) {
	if tenantID == "" || uploadID == "" {
		return nil, fmt.Errorf("tenant_id and upload_id are required")
	}
	return s.capStore.GetUploadLog(ctx, tenantID, uploadID)
}

func (s *capacityService) ListUploads(ctx context.Context, req ListUploadsRequest) (*ListUploadsResponse, error) {
	if req.TenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Size <= 0 {
		req.Size = 50
	}
	logs, total, err := s.capStore.ListUploadLogs(ctx, req.TenantID, req.Page, req.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to list upload logs: %w", err)
	}
	items := make([]map[string]any, 0, len(logs))
	for _, log := range logs {
		items = append(items, log.ToJSON())
	}
	return &ListUploadsResponse{Items: items, Total: total, Page: req.Page, Size: req.Size}, nil
}

func (s *capacityService) DeleteUploadRun(ctx context.Context, tenantID, uploadID string) error {
	if tenantID == "" || uploadID == "" {
		return fmt.Errorf("tenant_id and upload_id are required")
	}
	if err := s.capStore.DeleteUploadRun(ctx, tenantID, uploadID); err != nil {
		return err
	}
	s.invalidateOverview(ctx, tenantID)
	s.logger.Info("Upload run deleted",
		zap.String("tenant_id", tenantID),
		zap.String("upload_id", uploadID),
	)
	return nil
}

func (s *capacityService) ListAlerts(ctx context.Context, req ListAlertsRequest) (*ListAlertsResponse, error) {
	if req.TenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Size <= 0 {
		req.Size = 50
	}
	filters := repository.AlertFilters{
		Status:     req.Status,
		Severity:   req.Severity,
		ReportDate: req.ReportDate,
	}
	alerts, total, err := s.capStore.ListAlerts(ctx, req.TenantID, filters, req.Page, req.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	items := make([]map[string]any, 0, len(alerts))
	for _, a := range alerts {
		items = append(items, a.ToJSON())
	}
	return &ListAlertsResponse{Items: items, Total: total, Page: req.Page, Size: req.Size}, nil
}

func (s *capacityService) AcknowledgeAlert(ctx context.Context, tenantID, alertID, acknowledgedBy string) error {
	if tenantID == "" || alertID == "" {
		return fmt.Errorf("tenant_id and alert_id are required")
	}
	if acknowledgedBy == "" {
		return fmt.Errorf("acknowledged_by is required")
	}
	return s.capStore.AcknowledgeAlert(ctx, tenantID, alertID, acknowledgedBy)
}

func (s *capacityService) Overview(ctx context.Context, tenantID string) (*repository.Overview, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}

	if s.kv != nil {
		if cached, err := s.kv.Get(ctx, store.OverviewKey(tenantID)); err == nil {
			var o repository.Overview
			if err := json.Unmarshal([]byte(cached), &o); err == nil {
				return &o, nil
			}
		} else if err != store.ErrMiss {
			s.logger.Warn("Overview cache read failed", zap.Error(err))
		}
	}

	latest, ok, err := s.capStore.LatestReportDate(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve latest report date: %w", err)
	}
	if !ok {
		// 无数据：空总览，不是错误
		return &repository.Overview{}, nil
	}
	o, err := s.capStore.CapacityOverview(ctx, tenantID, latest)
	if err != nil {
		return nil, fmt.Errorf("failed to compute capacity overview: %w", err)
	}

	if s.kv != nil {
		if data, err := json.Marshal(o); err == nil {
			if err := s.kv.Set(ctx, store.OverviewKey(tenantID), string(data), overviewCacheTTL); err != nil {
				s.logger.Warn("Overview cache write failed", zap.Error(err))
			}
		}
	}
	return o, nil
}

func (s *capacityService) invalidateOverview(ctx context.Context, tenantID string) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Del(ctx, store.OverviewKey(tenantID)); err != nil {
		s.logger.Warn("Overview cache invalidation failed",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
	}
}

func (s *capacityService) cacheLastRun(ctx context.Context, tenantID string, report *ingest.RunReport) {
	if s.kv == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.kv.Set(ctx, store.LastRunKey(tenantID), string(data), 24*time.Hour); err != nil {
		s.logger.Warn("Last run cache write failed",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
	}
}
