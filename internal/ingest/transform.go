package ingest

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/domain"
)

// Options 管线配置（显式传参，不放包级状态，多次入库互不污染）
type Options struct {
	Normalizer   *NameNormalizer
	FlashSystems map[string]bool // 卷派生字段走 FlashSystem 分支的系统名（规范化后）
}

func NewOptions(flashNames []string, corrections map[string]string) Options {
	flash := map[string]bool{}
	n := NewNameNormalizer(corrections)
	for _, name := range flashNames {
		flash[n.Normalize(name)] = true
	}
	return Options{Normalizer: n, FlashSystems: flash}
}

// normalizeHeader 规范化表头：小写、去空白，空格/横线/点/百分号/斜杠转下划线，
// 丢弃括号，重复下划线折叠
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	var b strings.Builder
	for _, r := range h {
		switch r {
		case ' ', '-', '.', '%', '/':
			b.WriteRune('_')
		case '(', ')':
			// drop
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	return strings.Trim(out, "_")
}

// row 清洗后的一行：typed values 往下游走，raw 只用于审计边界
type row struct {
	raw    map[string]string
	values map[string]any
}

// prepare 公共清洗段（§ Record Transformer 的 1-7 步，派生字段在各实体 builder 里做）
func prepare(raw *RawTable, schema entitySchema, reportDate time.Time, opts Options) []row {
	if raw == nil || len(raw.Header) == 0 {
		return nil
	}

	// 1. 表头规范化
	headers := make([]string, len(raw.Header))
	for i, h := range raw.Header {
		headers[i] = normalizeHeader(h)
	}

	// 2. 丢弃全空列（避免全 NULL 列触发类型错误）
	empty := make([]bool, len(headers))
	for i := range headers {
		empty[i] = true
	}
	for _, cells := range raw.Rows {
		for i := range headers {
			if i < len(cells) && strings.TrimSpace(cells[i]) != "" {
				empty[i] = false
			}
		}
	}

	date := dateOnly(reportDate)
	out := make([]row, 0, len(raw.Rows))
	for _, cells := range raw.Rows {
		// 全空行跳过
		blank := true
		for _, c := range cells {
			if strings.TrimSpace(c) != "" {
				blank = false
				break
			}
		}
		if blank {
			continue
		}

		r := row{raw: map[string]string{}, values: map[string]any{}}
		for i, h := range headers {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			r.raw[raw.Header[i]] = cell
			if empty[i] || h == "" {
				continue
			}

			// 3. 名字类列先规范化，再参与任何身份比较
			if nameLikeColumns[h] {
				cell = opts.Normalizer.Normalize(cell)
			}

			// 5. 实体相关列重命名
			attr := h
			if renamed, ok := schema.renames[h]; ok {
				attr = renamed
			}

			// 6. 未知列静默丢弃
			typ, ok := schema.attrs[attr]
			if !ok {
				continue
			}

			// 7. 按声明语义类型清洗
			switch typ {
			case attrNumeric:
				r.values[attr] = CleanNumeric(cell)
			case attrInt:
				r.values[attr] = int(CleanNumeric(cell))
			case attrRatio:
				r.values[attr] = CleanRatio(cell)
			case attrDateTime:
				r.values[attr] = CleanDateTime(cell)
			case attrBool:
				r.values[attr] = CleanBool(cell)
			default:
				if isNullIndicator(cell) {
					r.values[attr] = ""
				} else {
					r.values[attr] = strings.TrimSpace(cell)
				}
			}
		}

		// 4. report_date 解析：表自带日期列则用之，解析不了的行回填本次运行日期
		if t, ok := r.values["report_date"].(*time.Time); ok && t != nil {
			r.values["report_date"] = dateOnly(*t)
		} else {
			r.values["report_date"] = date
		}

		out = append(out, r)
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func getString(v map[string]any, key string) string {
	if s, ok := v[key].(string); ok {
		return s
	}
	return ""
}

func getFloat(v map[string]any, key string) float64 {
	if f, ok := v[key].(float64); ok {
		return f
	}
	return 0
}

func getInt(v map[string]any, key string) int {
	if i, ok := v[key].(int); ok {
		return i
	}
	return 0
}

func getBool(v map[string]any, key string) bool {
	if b, ok := v[key].(bool); ok {
		return b
	}
	return false
}

func getDate(v map[string]any, key string) time.Time {
	if t, ok := v[key].(time.Time); ok {
		return t
	}
	return time.Time{}
}

// ============================================
// 实体记录（typed 记录随管线流动，raw 行只进审计）
// ============================================

// SystemRecord 存储系统候选记录
type SystemRecord struct {
	Raw    map[string]string
	System domain.StorageSystem
}

func (r SystemRecord) UniqueKey() string {
	return r.System.ReportDate.Format("2006-01-02") + "|" + r.System.Name
}

// PoolRecord 存储池候选记录
type PoolRecord struct {
	Raw  map[string]string
	Pool domain.StoragePool
}

func (r PoolRecord) UniqueKey() string {
	return r.Pool.ReportDate.Format("2006-01-02") + "|" + r.Pool.Name + "|" + r.Pool.StorageSystemName
}

// VolumeRecord 容量卷候选记录
type VolumeRecord struct {
	Raw    map[string]string
	Volume domain.CapacityVolume
}

func (r VolumeRecord) UniqueKey() string {
	v := r.Volume
	return v.ReportDate.Format("2006-01-02") + "|" + v.VolumeName + "|" + v.StorageSystemName + "|" + v.PoolName
}

// HostRecord 主机容量候选记录
type HostRecord struct {
	Raw  map[string]string
	Host domain.CapacityHost
}

func (r HostRecord) UniqueKey() string {
	return r.Host.ReportDate.Format("2006-01-02") + "|" + r.Host.Name
}

// DiskRecord 受管磁盘候选记录
// NULL 名磁盘互不碰撞：rowSeq 保证每行键各自独立
type DiskRecord struct {
	Raw    map[string]string
	Disk   domain.CapacityDisk
	rowSeq int
}

func (r DiskRecord) UniqueKey() string {
	d := r.Disk
	name := d.Name.String
	if !d.Name.Valid {
		name = fmt.Sprintf("\x00unnamed-%d", r.rowSeq)
	}
	return d.ReportDate.Format("2006-01-02") + "|" + name + "|" + d.StorageSystemName + "|" + d.Pool
}

// DepartmentRecord 部门汇总候选记录
type DepartmentRecord struct {
	Raw        map[string]string
	Department domain.Department
}

func (r DepartmentRecord) UniqueKey() string {
	return r.Department.ReportDate.Format("2006-01-02") + "|" + r.Department.Name
}

// ============================================
// 各实体 Transform（含第 8 步派生字段）
// ============================================

// TransformSystems 存储系统表 -> 候选记录
func TransformSystems(raw *RawTable, reportDate time.Time, opts Options) []SystemRecord {
	rows := prepare(raw, systemSchema, reportDate, opts)
	out := make([]SystemRecord, 0, len(rows))
	for _, r := range rows {
		s := domain.StorageSystem{
			ReportDate:           getDate(r.values, "report_date"),
			Name:                 getString(r.values, "name"),
			UsableCapacityGiB:    getFloat(r.values, "usable_capacity_gib"),
			AvailableCapacityGiB: getFloat(r.values, "available_capacity_gib"),
			RawCapacityGiB:       getFloat(r.values, "raw_capacity_gib"),
			UsedCapacityGiB:      getFloat(r.values, "used_capacity_gib"),
			CompressionRatio:     getFloat(r.values, "compression_ratio"),
			DataReductionRatio:   getFloat(r.values, "data_reduction_ratio"),
			PoolCount:            getInt(r.values, "pool_count"),
			VolumeCount:          getInt(r.values, "volume_count"),
			ManagedDiskCount:     getInt(r.values, "managed_disk_count"),
		}
		if t, ok := r.values["probe_time"].(*time.Time); ok && t != nil {
			s.ProbeTime = sql.NullTime{Time: *t, Valid: true}
		}
		out = append(out, SystemRecord{Raw: r.raw, System: s})
	}
	return out
}

// TransformPools 存储池表 -> 候选记录
// used/utilization 永远重算，不信任源数据里的 used_capacity
func TransformPools(raw *RawTable, reportDate time.Time, opts Options) []PoolRecord {
	rows := prepare(raw, poolSchema, reportDate, opts)
	out := make([]PoolRecord, 0, len(rows))
	for _, r := range rows {
		p := domain.StoragePool{
			ReportDate:           getDate(r.values, "report_date"),
			Name:                 getString(r.values, "name"),
			StorageSystemName:    getString(r.values, "storage_system_name"),
			UsableCapacityGiB:    getFloat(r.values, "usable_capacity_gib"),
			AvailableCapacityGiB: getFloat(r.values, "available_capacity_gib"),
			RecentGrowthGiB:      getFloat(r.values, "recent_growth_gib"),
			Compressed:           getBool(r.values, "compressed"),
			Encrypted:            getBool(r.values, "encrypted"),
		}
		if parent := getString(r.values, "parent_pool"); parent != "" {
			p.ParentPool = sql.NullString{String: parent, Valid: true}
		}
		p.UsedCapacityGiB = p.UsableCapacityGiB - p.AvailableCapacityGiB
		if p.UsableCapacityGiB > 0 {
			p.UtilizationPct = p.UsedCapacityGiB / p.UsableCapacityGiB * 100
		}
		out = append(out, PoolRecord{Raw: r.raw, Pool: p})
	}
	return out
}

// TransformVolumes 容量卷表 -> 候选记录
// FlashSystem 类系统该 available 列不可信：available = provisioned - used
// 其他系统：overhead_used = provisioned - used - available，两条路径互斥
func TransformVolumes(raw *RawTable, reportDate time.Time, opts Options) []VolumeRecord {
	rows := prepare(raw, volumeSchema, reportDate, opts)
	out := make([]VolumeRecord, 0, len(rows))
	for _, r := range rows {
		v := domain.CapacityVolume{
			ReportDate:             getDate(r.values, "report_date"),
			VolumeName:             getString(r.values, "volume_name"),
			PoolName:               getString(r.values, "pool_name"),
			StorageSystemName:      getString(r.values, "storage_system_name"),
			ProvisionedCapacityGiB: getFloat(r.values, "provisioned_capacity_gib"),
			UsedCapacityGiB:        getFloat(r.values, "used_capacity_gib"),
			AvailableCapacityGiB:   getFloat(r.values, "available_capacity_gib"),
			Compressed:             getBool(r.values, "compressed"),
			ThinProvisioned:        getBool(r.values, "thin_provisioned"),
		}
		if opts.FlashSystems[v.StorageSystemName] {
			v.AvailableCapacityGiB = v.ProvisionedCapacityGiB - v.UsedCapacityGiB
		} else {
			v.OverheadUsedCapacityGiB = v.ProvisionedCapacityGiB - v.UsedCapacityGiB - v.AvailableCapacityGiB
		}
		out = append(out, VolumeRecord{Raw: r.raw, Volume: v})
	}
	return out
}

// TransformHosts 主机容量表 -> 候选记录（聚合在 Reconciler 做）
func TransformHosts(raw *RawTable, reportDate time.Time, opts Options) []HostRecord {
	rows := prepare(raw, hostSchema, reportDate, opts)
	out := make([]HostRecord, 0, len(rows))
	for _, r := range rows {
		h := domain.CapacityHost{
			ReportDate:  getDate(r.values, "report_date"),
			Name:        getString(r.values, "name"),
			VolumeCount: getInt(r.values, "volume_count"),
		}
		if ht := getString(r.values, "host_type"); ht != "" {
			h.HostType = sql.NullString{String: ht, Valid: true}
		}
		// 容量字段保持 0.0 而不是 NULL；只有聚合把零和折叠为 NULL
		h.SANCapacityGiB = sql.NullFloat64{Float64: getFloat(r.values, "san_capacity_gib"), Valid: true}
		h.AllocatedCapacityGiB = sql.NullFloat64{Float64: getFloat(r.values, "allocated_capacity_gib"), Valid: true}
		h.AvailableCapacityGiB = sql.NullFloat64{Float64: getFloat(r.values, "available_capacity_gib"), Valid: true}
		out = append(out, HostRecord{Raw: r.raw, Host: h})
	}
	return out
}

// TransformDisks 受管磁盘表 -> 候选记录
func TransformDisks(raw *RawTable, reportDate time.Time, opts Options) []DiskRecord {
	rows := prepare(raw, diskSchema, reportDate, opts)
	out := make([]DiskRecord, 0, len(rows))
	for i, r := range rows {
		d := domain.CapacityDisk{
			ReportDate:           getDate(r.values, "report_date"),
			StorageSystemName:    getString(r.values, "storage_system_name"),
			Pool:                 getString(r.values, "pool"),
			CapacityGiB:          getFloat(r.values, "capacity_gib"),
			AvailableCapacityGiB: getFloat(r.values, "available_capacity_gib"),
			SpeedRPM:             getFloat(r.values, "speed_rpm"),
		}
		if name := getString(r.values, "name"); name != "" {
			d.Name = sql.NullString{String: name, Valid: true}
		}
		for key, dst := range map[string]*sql.NullString{
			"status": &d.Status,
			"vendor": &d.Vendor,
			"model":  &d.Model,
		} {
			if s := getString(r.values, key); s != "" {
				*dst = sql.NullString{String: s, Valid: true}
			}
		}
		d.UsedCapacityGiB = d.CapacityGiB - d.AvailableCapacityGiB
		out = append(out, DiskRecord{Raw: r.raw, Disk: d, rowSeq: i})
	}
	return out
}

// TransformDepartments 部门汇总表 -> 候选记录
func TransformDepartments(raw *RawTable, reportDate time.Time, opts Options) []DepartmentRecord {
	rows := prepare(raw, departmentSchema, reportDate, opts)
	out := make([]DepartmentRecord, 0, len(rows))
	for _, r := range rows {
		d := domain.Department{
			ReportDate:             getDate(r.values, "report_date"),
			Name:                   getString(r.values, "name"),
			UsedCapacityGiB:        getFloat(r.values, "used_capacity_gib"),
			ProvisionedCapacityGiB: getFloat(r.values, "provisioned_capacity_gib"),
			VolumeCount:            getInt(r.values, "volume_count"),
		}
		out = append(out, DepartmentRecord{Raw: r.raw, Department: d})
	}
	return out
}
