package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（用于 pprof 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterCapacityRoutes 注册容量报表路由
func (r *Router) RegisterCapacityRoutes(u *UploadHandler, a *AlertHandler, o *OverviewHandler) {
	// uploads（入库 + 历史列表）
	r.Handle("/data/api/v1/capacity/uploads", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPost:
			u.UploadWorkbook(w, req)
		case http.MethodGet:
			u.ListUploads(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	// uploads/{id}（详情 + 回滚删除）
	r.Handle("/data/api/v1/capacity/uploads/", func(w http.ResponseWriter, req *http.Request) {
		id := strings.TrimPrefix(req.URL.Path, "/data/api/v1/capacity/uploads/")
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch req.Method {
		case http.MethodGet:
			u.GetUpload(w, req, id)
		case http.MethodDelete:
			u.DeleteUpload(w, req, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	// 导入模板下载
	r.Handle("/data/api/v1/capacity/import-template", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		u.GetImportTemplate(w, req)
	})

	// alerts
	r.Handle("/data/api/v1/capacity/alerts", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		a.ListAlerts(w, req)
	})

	// alerts/{id}/acknowledge
	r.Handle("/data/api/v1/capacity/alerts/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/data/api/v1/capacity/alerts/")
		id, ok := strings.CutSuffix(rest, "/acknowledge")
		if !ok || id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		a.AcknowledgeAlert(w, req, id)
	})

	// overview（dashboard 读路径）
	r.Handle("/data/api/v1/capacity/overview", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		o.GetOverview(w, req)
	})
}
