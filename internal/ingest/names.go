package ingest

import "strings"

// 已知问题历史名 -> 当前规范名（改名过或导出格式变过的系统）
// 部署数据，可通过 NAME_CORRECTIONS 覆盖
var defaultNameCorrections = map[string]string{
	"FS92K_A1_OLD": "FS92K-A1",
	"SVC_CLUSTER9": "SVC-Cluster-9",
}

// NameNormalizer 存储系统标识规范化
// 同一物理系统在不同表/不同上传里的名字变体（下划线/连字符、历史别名）
// 必须在任何身份比较或外键解析之前归一，否则会分裂成两个身份
type NameNormalizer struct {
	corrections map[string]string
}

func NewNameNormalizer(corrections map[string]string) *NameNormalizer {
	if corrections == nil {
		corrections = defaultNameCorrections
	}
	return &NameNormalizer{corrections: corrections}
}

// Normalize 先查精确修正表，其余把所有下划线替换为连字符
// 幂等：Normalize(Normalize(x)) == Normalize(x)
func (n *NameNormalizer) Normalize(name string) string {
	name = strings.TrimSpace(name)
	if canonical, ok := n.corrections[name]; ok {
		return canonical
	}
	return strings.ReplaceAll(name, "_", "-")
}

// 名字类列：每张表做身份比较前都要过 NameNormalizer
var nameLikeColumns = map[string]bool{
	"name":                true,
	"storage_system_name": true,
	"storage_system":      true,
	"system_name":         true,
}
