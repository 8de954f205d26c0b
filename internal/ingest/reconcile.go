package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/domain"
)

// keyed 参与去重的候选记录
type keyed interface {
	UniqueKey() string
}

// AggregateHosts 主机实体的 aggregate-on-duplicate 策略
// 同一上传内同键多行折叠为一行：非数值属性取首个成员，容量字段跨成员求和，
// 总和为 0 记为 NULL（区分"无数据"与"实测为 0"）
// 首次出现的顺序决定输出顺序
func AggregateHosts(recs []HostRecord) ([]HostRecord, []AuditEntry) {
	groups := map[string]int{} // key -> index in out
	var out []HostRecord
	counts := map[string]int{}

	for _, rec := range recs {
		key := rec.UniqueKey()
		idx, seen := groups[key]
		if !seen {
			groups[key] = len(out)
			out = append(out, rec)
			counts[key] = 1
			continue
		}
		merged := &out[idx].Host
		merged.SANCapacityGiB = sumNullable(merged.SANCapacityGiB, rec.Host.SANCapacityGiB)
		merged.AllocatedCapacityGiB = sumNullable(merged.AllocatedCapacityGiB, rec.Host.AllocatedCapacityGiB)
		merged.AvailableCapacityGiB = sumNullable(merged.AvailableCapacityGiB, rec.Host.AvailableCapacityGiB)
		merged.VolumeCount += rec.Host.VolumeCount
		counts[key]++
	}

	var audit []AuditEntry
	for _, rec := range out {
		if n := counts[rec.UniqueKey()]; n > 1 {
			// 审计带合并后的行（求和结果），不是首个成员的原始行
			audit = append(audit, AuditEntry{
				Reason: fmt.Sprintf("aggregated_%d_duplicates", n),
				Row:    mergedHostRow(rec.Host),
				Count:  n,
			})
		}
	}
	return out, audit
}

func mergedHostRow(h domain.CapacityHost) map[string]string {
	row := map[string]string{
		"name":         h.Name,
		"volume_count": strconv.Itoa(h.VolumeCount),
	}
	if h.HostType.Valid {
		row["host_type"] = h.HostType.String
	}
	for field, v := range map[string]sql.NullFloat64{
		"san_capacity_gib":       h.SANCapacityGiB,
		"allocated_capacity_gib": h.AllocatedCapacityGiB,
		"available_capacity_gib": h.AvailableCapacityGiB,
	} {
		if v.Valid {
			row[field] = strconv.FormatFloat(v.Float64, 'f', -1, 64)
		}
	}
	return row
}

func sumNullable(a, b sql.NullFloat64) sql.NullFloat64 {
	sum := 0.0
	if a.Valid {
		sum += a.Float64
	}
	if b.Valid {
		sum += b.Float64
	}
	if sum <= 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: sum, Valid: true}
}

// insertDeduped 其余实体的 skip-on-duplicate 策略（批内先见者胜）
//   - 批内同键：跳过，记 within_file_duplicate
//   - 库内已有同键：跳过，记 already_exists_in_db
//   - 单条插入失败（如约束冲突）：跳过，记 insert_error: <detail>，不中断批次
//
// exists/insert 的查询错误视为不可恢复，原样上抛由编排器整体回滚
func insertDeduped[T keyed](
	ctx context.Context,
	recs []T,
	rawOf func(T) map[string]string,
	exists func(context.Context, T) (bool, error),
	insert func(context.Context, T) error,
	st *SheetStats,
) error {
	seen := map[string]bool{}
	for _, rec := range recs {
		key := rec.UniqueKey()

		if seen[key] {
			st.Duplicates++
			st.DuplicateRecords = append(st.DuplicateRecords, AuditEntry{
				Reason: ReasonWithinFileDuplicate,
				Row:    rawOf(rec),
			})
			continue
		}

		found, err := exists(ctx, rec)
		if err != nil {
			return fmt.Errorf("duplicate lookup failed for key %q: %w", key, err)
		}
		// 库内已有的键不记入 seen：同键的每一行都报 already_exists_in_db，
		// within_file_duplicate 只在本批成功插入过之后出现
		if found {
			st.Duplicates++
			st.DuplicateRecords = append(st.DuplicateRecords, AuditEntry{
				Reason: ReasonAlreadyExistsInDB,
				Row:    rawOf(rec),
			})
			continue
		}

		if err := insert(ctx, rec); err != nil {
			st.Skipped++
			st.SkippedRecords = append(st.SkippedRecords, AuditEntry{
				Reason: fmt.Sprintf("insert_error: %v", err),
				Row:    rawOf(rec),
			})
			continue
		}

		seen[key] = true
		st.Added++
	}
	return nil
}
