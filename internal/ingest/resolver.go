package ingest

import (
	"context"
	"fmt"
)

// SystemResolver 把子实体（pool/volume/disk）挂到本批次建立的存储系统身份上
// 先查本批次内的 name->id 映射，批内没有再回查同 report_date 的已持久化系统
// （覆盖同一天分多次上传补充子行的场景）；仍解析不到的行排除出插入集，
// 带结构化原因与完整原始行进审计，绝不静默丢弃
type SystemResolver struct {
	inRun  map[string]string
	lookup func(ctx context.Context, name string) (string, bool, error)
}

func NewSystemResolver(lookup func(ctx context.Context, name string) (string, bool, error)) *SystemResolver {
	return &SystemResolver{inRun: map[string]string{}, lookup: lookup}
}

// Register 登记本批次内新建立的系统身份
func (r *SystemResolver) Register(name, systemID string) {
	r.inRun[name] = systemID
}

// Resolve 返回系统 id；查询错误上抛（不可恢复），查无此名返回 ok=false
func (r *SystemResolver) Resolve(ctx context.Context, name string) (string, bool, error) {
	if id, ok := r.inRun[name]; ok {
		return id, true, nil
	}
	if r.lookup == nil {
		return "", false, nil
	}
	id, ok, err := r.lookup(ctx, name)
	if err != nil {
		return "", false, fmt.Errorf("storage system lookup failed for %q: %w", name, err)
	}
	if ok {
		// 回查命中也进批内映射，同名后续行不再打库
		r.inRun[name] = id
	}
	return id, ok, nil
}

// filterResolved 泛型外键过滤：解析成功的记录写回 id 继续走管线，
// 失败的记录记 missing_storage_system 审计后排除
func filterResolved[T keyed](
	ctx context.Context,
	resolver *SystemResolver,
	recs []T,
	systemName func(T) string,
	setSystemID func(*T, string),
	rawOf func(T) map[string]string,
	st *SheetStats,
) ([]T, error) {
	out := recs[:0]
	for i := range recs {
		name := systemName(recs[i])
		id, ok, err := resolver.Resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			st.Filtered++
			st.FilteredRecords = append(st.FilteredRecords, AuditEntry{
				Reason: fmt.Sprintf("missing_storage_system: %s", name),
				Row:    rawOf(recs[i]),
			})
			continue
		}
		setSystemID(&recs[i], id)
		out = append(out, recs[i])
	}
	return out, nil
}
