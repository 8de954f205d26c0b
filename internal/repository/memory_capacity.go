package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/domain"
)

// MemoryCapacityStore 内存版容量存储
// DB 未就绪时的本地联测回退，也是管线测试的替身；语义与 Postgres 版对齐：
// 事务内的插入先缓冲，Commit 才可见，Rollback 整体丢弃
type MemoryCapacityStore struct {
	mu sync.Mutex

	systems     map[string]*domain.StorageSystem
	pools       map[string]*domain.StoragePool
	volumes     map[string]*domain.CapacityVolume
	hosts       map[string]*domain.CapacityHost
	disks       []*domain.CapacityDisk // NULL 名互不碰撞，直接列表存放
	diskKeys    map[string]bool
	departments map[string]*domain.Department
	alerts      map[string]*domain.Alert
	logs        map[string]*domain.UploadLog
}

func NewMemoryCapacityStore() *MemoryCapacityStore {
	return &MemoryCapacityStore{
		systems:     map[string]*domain.StorageSystem{},
		pools:       map[string]*domain.StoragePool{},
		volumes:     map[string]*domain.CapacityVolume{},
		hosts:       map[string]*domain.CapacityHost{},
		diskKeys:    map[string]bool{},
		departments: map[string]*domain.Department{},
		alerts:      map[string]*domain.Alert{},
		logs:        map[string]*domain.UploadLog{},
	}
}

func memKey(parts ...string) string {
	return strings.Join(parts, "|")
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func (s *MemoryCapacityStore) Begin(ctx context.Context) (IngestTx, error) {
	return &memoryIngestTx{store: s}, nil
}

func (s *MemoryCapacityStore) WriteFailedUploadLog(ctx context.Context, log *domain.UploadLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *log
	cp.Status = domain.UploadStatusFailed
	cp.FinalizedAt = sql.NullTime{Time: time.Now(), Valid: true}
	s.logs[log.UploadID] = &cp
	return nil
}

// memoryIngestTx 缓冲事务：apply 函数列表在 Commit 时一次性套用
type memoryIngestTx struct {
	store   *MemoryCapacityStore
	pending []func(*MemoryCapacityStore)
	done    bool
}

func (t *memoryIngestTx) Commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	for _, apply := range t.pending {
		apply(t.store)
	}
	t.done = true
	return nil
}

func (t *memoryIngestTx) Rollback() error {
	t.pending = nil
	t.done = true
	return nil
}

func (t *memoryIngestTx) CreateUploadLog(ctx context.Context, log *domain.UploadLog) error {
	cp := *log
	t.pending = append(t.pending, func(s *MemoryCapacityStore) {
		s.logs[cp.UploadID] = &cp
	})
	return nil
}

func (t *memoryIngestTx) FinalizeUploadLog(ctx context.Context, log *domain.UploadLog) error {
	cp := *log
	t.pending = append(t.pending, func(s *MemoryCapacityStore) {
		existing, ok := s.logs[cp.UploadID]
		if !ok {
			return
		}
		existing.Status = cp.Status
		existing.TotalRows = cp.TotalRows
		existing.TotalAdded = cp.TotalAdded
		existing.TotalDuplicates = cp.TotalDuplicates
		existing.TotalFiltered = cp.TotalFiltered
		existing.DurationMs = cp.DurationMs
		existing.Statistics = cp.Statistics
		existing.FinalizedAt = cp.FinalizedAt
	})
	return nil
}

func (t *memoryIngestTx) InsertStorageSystem(ctx context.Context, v *domain.StorageSystem) error {
	cp := *v
	t.pending = append(t.pending, func(s *MemoryCapacityStore) {
		s.systems[memKey(cp.TenantID, dateKey(cp.ReportDate), cp.Name)] = &cp
	})
	return nil
}

func (t *memoryIngestTx) StorageSystemExists(ctx context.Context, tenantID string, reportDate time.Time, name string) (bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	_, ok := t.store.systems[memKey(tenantID, dateKey(reportDate), name)]
	return ok, nil
}

func (t *memoryIngestTx) SystemIDByName(ctx context.Context, tenantID string, reportDate time.Time, name string) (string, bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if sys, ok := t.store.systems[memKey(tenantID, dateKey(reportDate), name)]; ok {
		return sys.SystemID, true, nil
	}
	return "", false, nil
}

func (t *memoryIngestTx) InsertStoragePool(ctx context.Context, v *domain.StoragePool) error {
	cp := *v
	t.pending = append(t.pending, func(s *MemoryCapacityStore) {
		s.pools[memKey(cp.TenantID, dateKey(cp.ReportDate), cp.Name, cp.StorageSystemName)] = &cp
	})
	return nil
}

func (t *memoryIngestTx) StoragePoolExists(ctx context.Context, tenantID string, reportDate time.Time, name, systemName string) (bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	_, ok := t.store.pools[memKey(tenantID, dateKey(reportDate), name, systemName)]
	return ok, nil
}

func (t *memoryIngestTx) InsertCapacityVolume(ctx context.Context, v *domain.CapacityVolume) error {
	cp := *v
	t.pending = append(t.pending, func(s *MemoryCapacityStore) {
		s.volumes[memKey(cp.TenantID, dateKey(cp.ReportDate), cp.VolumeName, cp.StorageSystemName, cp.PoolName)] = &cp
	})
	return nil
}

func (t *memoryIngestTx) CapacityVolumeExists(ctx context.Context, tenantID string, reportDate time.Time, volumeName, systemName, poolName string) (bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	_, ok := t.store.volumes[memKey(tenantID, dateKey(reportDate), volumeName, systemName, poolName)]
	return ok, nil
}

func (t *memoryIngestTx) InsertCapacityHost(ctx context.Context, v *domain.CapacityHost) error {
	cp := *v
	t.pending = append(t.pending, func(s *MemoryCapacityStore) {
		s.hosts[memKey(cp.TenantID, dateKey(cp.ReportDate), cp.Name)] = &cp
	})
	return nil
}

func (t *memoryIngestTx) CapacityHostExists(ctx context.Context, tenantID string, reportDate time.Time, name string) (bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	_, ok := t.store.hosts[memKey(tenantID, dateKey(reportDate), name)]
	return ok, nil
}

func (t *memoryIngestTx) InsertCapacityDisk(ctx context.Context, v *domain.CapacityDisk) error {
	cp := *v
	t.pending = append(t.pending, func(s *MemoryCapacityStore) {
		s.disks = append(s.disks, &cp)
		if cp.Name.Valid {
			s.diskKeys[memKey(cp.TenantID, dateKey(cp.ReportDate), cp.Name.String, cp.StorageSystemName, cp.Pool)] = true
		}
	})
	return nil
}

func (t *memoryIngestTx) CapacityDiskExists(ctx context.Context, tenantID string, reportDate time.Time, name sql.NullString, systemName, pool string) (bool, error) {
	if !name.Valid {
		return false, nil
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.diskKeys[memKey(tenantID, dateKey(reportDate), name.String, systemName, pool)], nil
}

func (t *memoryIngestTx) InsertDepartment(ctx context.Context, v *domain.Department) error {
	cp := *v
	t.pending = append(t.pending, func(s *MemoryCapacityStore) {
		s.departments[memKey(cp.TenantID, dateKey(cp.ReportDate), cp.Name)] = &cp
	})
	return nil
}

func (t *memoryIngestTx) DepartmentExists(ctx context.Context, tenantID string, reportDate time.Time, name string) (bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	_, ok := t.store.departments[memKey(tenantID, dateKey(reportDate), name)]
	return ok, nil
}

func (t *memoryIngestTx) InsertAlert(ctx context.Context, a *domain.Alert) error {
	cp := *a
	t.pending = append(t.pending, func(s *MemoryCapacityStore) {
		s.alerts[cp.AlertID] = &cp
	})
	return nil
}

func (t *memoryIngestTx) UnacknowledgedAlertExists(ctx context.Context, tenantID, poolName, systemName string) (bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, a := range t.store.alerts {
		if a.TenantID == tenantID && a.PoolName == poolName && a.StorageSystemName == systemName && !a.Acknowledged {
			return true, nil
		}
	}
	return false, nil
}

// ============================================
// 查询与管理操作
// ============================================

func (s *MemoryCapacityStore) GetUploadLog(ctx context.Context, tenantID, uploadID string) (*domain.UploadLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, ok := s.logs[uploadID]
	if !ok || log.TenantID != tenantID {
		return nil, fmt.Errorf("upload log not found: upload_id=%s", uploadID)
	}
	cp := *log
	return &cp, nil
}

func (s *MemoryCapacityStore) ListUploadLogs(ctx context.Context, tenantID string, page, size int) ([]*domain.UploadLog, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.UploadLog
	for _, log := range s.logs {
		if log.TenantID == tenantID {
			cp := *log
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (s *MemoryCapacityStore) DeleteUploadRun(ctx context.Context, tenantID, uploadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, ok := s.logs[uploadID]
	if !ok || log.TenantID != tenantID {
		return fmt.Errorf("upload log not found: upload_id=%s", uploadID)
	}
	if log.Status == domain.UploadStatusDeleted {
		return fmt.Errorf("upload run already deleted: upload_id=%s", uploadID)
	}

	for key, v := range s.volumes {
		if v.UploadID == uploadID {
			delete(s.volumes, key)
		}
	}
	kept := s.disks[:0]
	for _, d := range s.disks {
		if d.UploadID == uploadID {
			if d.Name.Valid {
				delete(s.diskKeys, memKey(d.TenantID, dateKey(d.ReportDate), d.Name.String, d.StorageSystemName, d.Pool))
			}
			continue
		}
		kept = append(kept, d)
	}
	s.disks = kept
	for key, h := range s.hosts {
		if h.UploadID == uploadID {
			delete(s.hosts, key)
		}
	}
	for key, d := range s.departments {
		if d.UploadID == uploadID {
			delete(s.departments, key)
		}
	}
	for key, p := range s.pools {
		if p.UploadID == uploadID {
			delete(s.pools, key)
		}
	}
	for key, sys := range s.systems {
		if sys.UploadID == uploadID {
			delete(s.systems, key)
		}
	}

	log.Status = domain.UploadStatusDeleted
	log.FinalizedAt = sql.NullTime{Time: time.Now(), Valid: true}
	return nil
}

func (s *MemoryCapacityStore) ListAlerts(ctx context.Context, tenantID string, filters AlertFilters, page, size int) ([]*domain.Alert, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Alert
	for _, a := range s.alerts {
		if a.TenantID != tenantID {
			continue
		}
		if filters.Status == "active" && a.Acknowledged {
			continue
		}
		if filters.Status == "acknowledged" && !a.Acknowledged {
			continue
		}
		if filters.Severity != "" && a.Severity != filters.Severity {
			continue
		}
		if filters.ReportDate != nil && !a.ReportDate.Equal(*filters.ReportDate) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, len(out), nil
}

func (s *MemoryCapacityStore) AcknowledgeAlert(ctx context.Context, tenantID, alertID, acknowledgedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[alertID]
	if !ok || a.TenantID != tenantID {
		return fmt.Errorf("alert not found: alert_id=%s", alertID)
	}
	if a.Acknowledged {
		return fmt.Errorf("alert already acknowledged: alert_id=%s", alertID)
	}
	a.Acknowledged = true
	a.AcknowledgedBy = sql.NullString{String: acknowledgedBy, Valid: true}
	a.AcknowledgedAt = sql.NullTime{Time: time.Now(), Valid: true}
	return nil
}

func (s *MemoryCapacityStore) LatestReportDate(ctx context.Context, tenantID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest time.Time
	found := false
	for _, sys := range s.systems {
		if sys.TenantID == tenantID && sys.ReportDate.After(latest) {
			latest = sys.ReportDate
			found = true
		}
	}
	return latest, found, nil
}

func (s *MemoryCapacityStore) CapacityOverview(ctx context.Context, tenantID string, reportDate time.Time) (*Overview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := &Overview{ReportDate: reportDate}
	systems := map[string]bool{}
	for _, p := range s.pools {
		if p.TenantID != tenantID || !p.ReportDate.Equal(reportDate) {
			continue
		}
		systems[p.StorageSystemName] = true
		o.PoolCount++
		o.UsableCapacityGiB += p.UsableCapacityGiB
		o.UsedCapacityGiB += p.UsedCapacityGiB
	}
	o.SystemCount = len(systems)
	if o.UsableCapacityGiB > 0 {
		o.UtilizationPct = o.UsedCapacityGiB / o.UsableCapacityGiB * 100
	}
	for _, a := range s.alerts {
		if a.TenantID == tenantID && !a.Acknowledged {
			o.ActiveAlerts++
		}
	}
	return o, nil
}

// ============================================
// 测试辅助（计数断言用）
// ============================================

// Counts 各实体当前已提交行数
func (s *MemoryCapacityStore) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]int{
		"systems":     len(s.systems),
		"pools":       len(s.pools),
		"volumes":     len(s.volumes),
		"hosts":       len(s.hosts),
		"disks":       len(s.disks),
		"departments": len(s.departments),
		"alerts":      len(s.alerts),
		"logs":        len(s.logs),
	}
}

// HostByName 按键取已提交主机（测试断言聚合结果）
func (s *MemoryCapacityStore) HostByName(tenantID string, reportDate time.Time, name string) (*domain.CapacityHost, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hosts[memKey(tenantID, dateKey(reportDate), name)]
	if !ok {
		return nil, false
	}
	cp := *h
	return &cp, true
}

// PoolByName 按键取已提交存储池
func (s *MemoryCapacityStore) PoolByName(tenantID string, reportDate time.Time, name, systemName string) (*domain.StoragePool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[memKey(tenantID, dateKey(reportDate), name, systemName)]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}
