package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/alerting"
	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/ingest"
	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/repository"
	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/service"
)

const apiBase = "/data/api/v1/capacity"
const apiTenant = "33333333-3333-3333-3333-333333333333"

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	capStore := repository.NewMemoryCapacityStore()
	gen := alerting.NewGenerator(alerting.DefaultThresholds(), zap.NewNop())
	orch := ingest.NewOrchestrator(capStore, gen, ingest.NewOptions([]string{"FS92K-A1"}, nil), zap.NewNop())
	svc := service.NewCapacityService(orch, capStore, nil, nil, zap.NewNop())

	router := NewRouter(zap.NewNop())
	router.RegisterCapacityRoutes(
		NewUploadHandler(svc, zap.NewNop()),
		NewAlertHandler(svc, zap.NewNop()),
		NewOverviewHandler(svc, zap.NewNop()),
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func workbookBytes(t *testing.T, sheets map[string][][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			for j, cell := range row {
				ref, err := excelize.CoordinatesToCellName(j+1, i+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(name, ref, cell))
			}
		}
	}
	f.DeleteSheet("Sheet1")
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return buf.Bytes()
}

func fullReportSheets() map[string][][]string {
	return map[string][][]string{
		ingest.SheetStorageSystems: {
			{"Name", "Usable Capacity (GiB)", "Available Capacity (GiB)"},
			{"FS92K_A1", "1000", "400"},
		},
		ingest.SheetStoragePools: {
			{"Name", "Storage System", "Usable Capacity (GiB)", "Available Capacity (GiB)", "Recent Growth (GiB)"},
			{"Pool-1", "FS92K_A1", "100", "5", "1"},
		},
		ingest.SheetCapacityVolumes: {
			{"Name", "Pool", "Storage System", "Capacity (GiB)", "Used Capacity (GiB)", "Available Capacity (GiB)"},
			{"vol-1", "Pool-1", "FS92K_A1", "100", "40", "60"},
		},
		ingest.SheetCapacityHosts: {
			{"Name", "SAN Capacity (GiB)", "Allocated Capacity (GiB)", "Volume Count"},
			{"esx-01", "100", "80", "2"},
		},
		ingest.SheetCapacityDisks: {
			{"Disk Name", "Storage System", "Pool Name", "Capacity (GiB)", "Available Capacity (GiB)"},
			{"mdisk0", "FS92K_A1", "Pool-1", "800", "300"},
		},
		ingest.SheetDepartments: {
			{"Name", "Used Capacity (GiB)", "Volume Count"},
			{"Radiology", "42", "5"},
		},
	}
}

func postWorkbook(t *testing.T, srv *httptest.Server, tenant string, data []byte) *Result[json.RawMessage] {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "weekly.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("report_date", "2024-03-01"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequestWithContext(context.Background(),
		http.MethodPost, srv.URL+apiBase+"/uploads", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if tenant != "" {
		req.Header.Set("X-Tenant-ID", tenant)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out Result[json.RawMessage]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return &out
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out any) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(),
		http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("X-Tenant-ID", apiTenant)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestUploadEndpointSuccess(t *testing.T) {
	srv := setupTestServer(t)

	out := postWorkbook(t, srv, apiTenant, workbookBytes(t, fullReportSheets()))
	assert.Equal(t, ResultSuccess, out.Code)

	var report map[string]any
	require.NoError(t, json.Unmarshal(out.Result, &report))
	assert.Equal(t, "success", report["status"])
	assert.NotEmpty(t, report["upload_id"])
}

func TestUploadEndpointMissingTenant(t *testing.T) {
	srv := setupTestServer(t)

	out := postWorkbook(t, srv, "", workbookBytes(t, fullReportSheets()))
	assert.Equal(t, ResultError, out.Code)
	assert.Contains(t, out.Message, "tenant_id is required")
}

func TestUploadEndpointValidationFailureReturnsReport(t *testing.T) {
	srv := setupTestServer(t)

	sheets := fullReportSheets()
	delete(sheets, ingest.SheetDepartments)
	out := postWorkbook(t, srv, apiTenant, workbookBytes(t, sheets))
	assert.Equal(t, ResultError, out.Code)

	// 失败也带结构化运行结果（校验错误明细）
	var report map[string]any
	require.NoError(t, json.Unmarshal(out.Result, &report))
	assert.Equal(t, "failed", report["status"])
	errs, _ := report["validation_errors"].([]any)
	assert.NotEmpty(t, errs)
}

func TestAlertAcknowledgeFlow(t *testing.T) {
	srv := setupTestServer(t)
	postWorkbook(t, srv, apiTenant, workbookBytes(t, fullReportSheets()))

	var listOut Result[service.ListAlertsResponse]
	getJSON(t, srv, apiBase+"/alerts?status=active", &listOut)
	require.Equal(t, ResultSuccess, listOut.Code)
	require.Equal(t, 1, listOut.Result.Total)
	alertID, _ := listOut.Result.Items[0]["alert_id"].(string)
	require.NotEmpty(t, alertID)

	body := strings.NewReader(`{"acknowledged_by":"ops-admin"}`)
	req, err := http.NewRequestWithContext(context.Background(),
		http.MethodPost, srv.URL+apiBase+"/alerts/"+alertID+"/acknowledge", body)
	require.NoError(t, err)
	req.Header.Set("X-Tenant-ID", apiTenant)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var ackOut Result[json.RawMessage]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ackOut))
	assert.Equal(t, ResultSuccess, ackOut.Code)

	getJSON(t, srv, apiBase+"/alerts?status=active", &listOut)
	assert.Equal(t, 0, listOut.Result.Total)
}

func TestOverviewEndpoint(t *testing.T) {
	srv := setupTestServer(t)
	postWorkbook(t, srv, apiTenant, workbookBytes(t, fullReportSheets()))

	var out Result[map[string]any]
	getJSON(t, srv, apiBase+"/overview", &out)
	require.Equal(t, ResultSuccess, out.Code)
	assert.Equal(t, 1.0, out.Result["pool_count"])
	assert.Equal(t, 95.0, out.Result["utilization_pct"])
}

func TestUploadListAndDelete(t *testing.T) {
	srv := setupTestServer(t)
	up := postWorkbook(t, srv, apiTenant, workbookBytes(t, fullReportSheets()))
	var report map[string]any
	require.NoError(t, json.Unmarshal(up.Result, &report))
	uploadID, _ := report["upload_id"].(string)
	require.NotEmpty(t, uploadID)

	var listOut Result[service.ListUploadsResponse]
	getJSON(t, srv, apiBase+"/uploads", &listOut)
	require.Equal(t, 1, listOut.Result.Total)

	req, err := http.NewRequestWithContext(context.Background(),
		http.MethodDelete, srv.URL+apiBase+"/uploads/"+uploadID, nil)
	require.NoError(t, err)
	req.Header.Set("X-Tenant-ID", apiTenant)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var delOut Result[json.RawMessage]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&delOut))
	assert.Equal(t, ResultSuccess, delOut.Code)

	// 总览清零
	var overview Result[map[string]any]
	getJSON(t, srv, apiBase+"/overview", &overview)
	assert.Equal(t, 0.0, overview.Result["pool_count"])
}

func TestImportTemplateDownload(t *testing.T) {
	srv := setupTestServer(t)

	resp, err := http.Get(srv.URL + apiBase + "/import-template")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "capacity-import-template.xlsx")

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), ingest.SheetStorageSystems)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := setupTestServer(t)

	req, err := http.NewRequestWithContext(context.Background(),
		http.MethodDelete, srv.URL+apiBase+"/alerts", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
