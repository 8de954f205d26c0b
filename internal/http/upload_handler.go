package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/ingest"
	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/service"
)

// UploadHandler 容量报表入库 Handler
type UploadHandler struct {
	capacityService service.CapacityService
	logger          *zap.Logger
}

// NewUploadHandler 创建入库 Handler
func NewUploadHandler(capacityService service.CapacityService, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		capacityService: capacityService,
		logger:          logger,
	}
}

// UploadWorkbook 入库一份容量周报表格（multipart：file + 可选 report_date）
func (h *UploadHandler) UploadWorkbook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant := tenantID(r)
	if tenant == "" {
		writeJSON(w, http.StatusOK, Fail("tenant_id is required"))
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max
		writeJSON(w, http.StatusOK, Fail("failed to parse form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("file not found in request"))
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("failed to read file"))
		return
	}

	// 文件级报告日期：行内 report_date 优先于它，见入库逻辑
	reportDate := time.Now().UTC().Truncate(24 * time.Hour)
	if v := r.FormValue("report_date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("invalid report_date %q, expected YYYY-MM-DD", v)))
			return
		}
		reportDate = parsed
	}

	report, err := h.capacityService.UploadWorkbook(ctx, service.UploadWorkbookRequest{
		TenantID:   tenant,
		FileName:   header.Filename,
		File:       fileBytes,
		ReportDate: reportDate,
	})
	if err != nil {
		h.logger.Error("UploadWorkbook failed",
			zap.String("tenant_id", tenant),
			zap.String("file_name", header.Filename),
			zap.Error(err),
		)
		// 失败也返回结构化运行结果（含校验错误明细）
		writeJSON(w, http.StatusOK, Result[*ingest.RunReport]{
			Code:    ResultError,
			Type:    "error",
			Message: err.Error(),
			Result:  report,
		})
		return
	}

	writeJSON(w, http.StatusOK, Ok(report))
}

// ListUploads 入库历史列表
func (h *UploadHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant := tenantID(r)
	if tenant == "" {
		writeJSON(w, http.StatusOK, Fail("tenant_id is required"))
		return
	}

	resp, err := h.capacityService.ListUploads(ctx, service.ListUploadsRequest{
		TenantID: tenant,
		Page:     parseInt(r.URL.Query().Get("page"), 1),
		Size:     parseInt(r.URL.Query().Get("size"), 50),
	})
	if err != nil {
		h.logger.Error("ListUploads failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to list uploads: %v", err)))
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}

// GetUpload 单次入库详情（含逐表统计与审计记录）
func (h *UploadHandler) GetUpload(w http.ResponseWriter, r *http.Request, uploadID string) {
	ctx := r.Context()

	tenant := tenantID(r)
	if tenant == "" {
		writeJSON(w, http.StatusOK, Fail("tenant_id is required"))
		return
	}

	log, err := h.capacityService.GetUpload(ctx, tenant, uploadID)
	if err != nil {
		h.logger.Error("GetUpload failed", zap.String("upload_id", uploadID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to get upload: %v", err)))
		return
	}

	writeJSON(w, http.StatusOK, Ok(log.ToJSON()))
}

// DeleteUpload 管理员回滚一次入库
func (h *UploadHandler) DeleteUpload(w http.ResponseWriter, r *http.Request, uploadID string) {
	ctx := r.Context()

	tenant := tenantID(r)
	if tenant == "" {
		writeJSON(w, http.StatusOK, Fail("tenant_id is required"))
		return
	}

	if err := h.capacityService.DeleteUploadRun(ctx, tenant, uploadID); err != nil {
		h.logger.Error("DeleteUpload failed", zap.String("upload_id", uploadID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to delete upload run: %v", err)))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"success":   true,
		"upload_id": uploadID,
	}))
}

// GetImportTemplate 下载容量周报导入模板
func (h *UploadHandler) GetImportTemplate(w http.ResponseWriter, r *http.Request) {
	excelData, err := GenerateCapacityImportTemplate()
	if err != nil {
		h.logger.Error("GenerateCapacityImportTemplate failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to generate template: %v", err)))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=capacity-import-template.xlsx")
	w.WriteHeader(http.StatusOK)
	w.Write(excelData)
}
