package ingest

// 语义类型驱动列清洗（取代源系统按运行时 schema 反射决定清洗方式的做法：
// 每个实体一张静态属性表，构建一次反复使用）
type attrType int

const (
	attrString attrType = iota
	attrNumeric
	attrInt
	attrRatio
	attrDateTime
	attrBool
)

// entitySchema 实体的静态属性表
// renames: 实体相关列重命名（在表头规范化与名字规范化之后应用）
// attrs:   目标属性集；不在表里的列静默丢弃
type entitySchema struct {
	sheet   string
	renames map[string]string
	attrs   map[string]attrType
}

var systemSchema = entitySchema{
	sheet: SheetStorageSystems,
	renames: map[string]string{
		"system_name": "name",
	},
	attrs: map[string]attrType{
		"name":                   attrString,
		"usable_capacity_gib":    attrNumeric,
		"available_capacity_gib": attrNumeric,
		"raw_capacity_gib":       attrNumeric,
		"used_capacity_gib":      attrNumeric,
		"compression_ratio":      attrRatio,
		"data_reduction_ratio":   attrRatio,
		"pool_count":             attrInt,
		"volume_count":           attrInt,
		"managed_disk_count":     attrInt,
		"probe_time":             attrDateTime,
		"report_date":            attrDateTime,
	},
}

var poolSchema = entitySchema{
	sheet: SheetStoragePools,
	renames: map[string]string{
		"storage_system": "storage_system_name",
		"system_name":    "storage_system_name",
	},
	attrs: map[string]attrType{
		"name":                   attrString,
		"storage_system_name":    attrString,
		"parent_pool":            attrString,
		"usable_capacity_gib":    attrNumeric,
		"available_capacity_gib": attrNumeric,
		"used_capacity_gib":      attrNumeric,
		"recent_growth_gib":      attrNumeric,
		"compressed":             attrBool,
		"encrypted":              attrBool,
		"report_date":            attrDateTime,
	},
}

var volumeSchema = entitySchema{
	sheet: SheetCapacityVolumes,
	renames: map[string]string{
		// name/pool 重命名，避免与其他实体歧义；源容量列转为 provisioned
		"name":           "volume_name",
		"pool":           "pool_name",
		"storage_system": "storage_system_name",
		"system_name":    "storage_system_name",
		"capacity":       "provisioned_capacity_gib",
		"capacity_gib":   "provisioned_capacity_gib",
	},
	attrs: map[string]attrType{
		"volume_name":              attrString,
		"pool_name":                attrString,
		"storage_system_name":      attrString,
		"provisioned_capacity_gib": attrNumeric,
		"used_capacity_gib":        attrNumeric,
		"available_capacity_gib":   attrNumeric,
		"compressed":               attrBool,
		"thin_provisioned":         attrBool,
		"report_date":              attrDateTime,
	},
}

var hostSchema = entitySchema{
	sheet: SheetCapacityHosts,
	renames: map[string]string{
		"host":      "name",
		"host_name": "name",
	},
	attrs: map[string]attrType{
		"name":                   attrString,
		"host_type":              attrString,
		"san_capacity_gib":       attrNumeric,
		"allocated_capacity_gib": attrNumeric,
		"available_capacity_gib": attrNumeric,
		"volume_count":           attrInt,
		"report_date":            attrDateTime,
	},
}

var diskSchema = entitySchema{
	sheet: SheetCapacityDisks,
	renames: map[string]string{
		"disk_name":      "name",
		"pool_name":      "pool",
		"storage_system": "storage_system_name",
		"system_name":    "storage_system_name",
	},
	attrs: map[string]attrType{
		"name":                   attrString,
		"storage_system_name":    attrString,
		"pool":                   attrString,
		"capacity_gib":           attrNumeric,
		"available_capacity_gib": attrNumeric,
		"used_capacity_gib":      attrNumeric,
		"status":                 attrString,
		"vendor":                 attrString,
		"model":                  attrString,
		"speed_rpm":              attrNumeric,
		"report_date":            attrDateTime,
	},
}

var departmentSchema = entitySchema{
	sheet: SheetDepartments,
	renames: map[string]string{
		"department":      "name",
		"department_name": "name",
	},
	attrs: map[string]attrType{
		"name":                     attrString,
		"used_capacity_gib":        attrNumeric,
		"provisioned_capacity_gib": attrNumeric,
		"volume_count":             attrInt,
		"report_date":              attrDateTime,
	},
}
