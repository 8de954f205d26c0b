package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// 源表里表示"无值"的占位符（大小写不敏感）
var nullIndicators = map[string]bool{
	"":     true,
	"-":    true,
	"n/a":  true,
	"#n/a": true,
	"null": true,
	"none": true,
}

func isNullIndicator(s string) bool {
	return nullIndicators[strings.ToLower(strings.TrimSpace(s))]
}

// CleanNumeric 清洗数值单元格
// 数值字段永不为 NULL：缺失/不可解析一律归 0.0（"记录为零"与"缺失"的区分由
// host 聚合等上层逻辑负责），下游容量运算依赖这一约定
func CleanNumeric(v any) float64 {
	switch val := v.(type) {
	case nil:
		return 0
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		if isNullIndicator(val) {
			return 0
		}
		s := strings.ReplaceAll(strings.TrimSpace(val), ",", "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// CleanRatio 清洗比率单元格（"1.3 : 1" 形式）
// 只取分子；分母默认恒为 1，不做校验直接丢弃
func CleanRatio(v any) float64 {
	s, ok := v.(string)
	if !ok {
		return CleanNumeric(v)
	}
	if isNullIndicator(s) {
		return 0
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	return CleanNumeric(s)
}

// CleanDateTime 清洗日期时间单元格
// 已结构化的时间原样通过；自由文本（如 "Jul 13, 2021, 08:34:13"）走通用解析
// 与数值字段不同：不可解析返回 nil（真 NULL）
func CleanDateTime(v any) *time.Time {
	switch val := v.(type) {
	case time.Time:
		return &val
	case *time.Time:
		return val
	case string:
		if isNullIndicator(val) {
			return nil
		}
		t, err := dateparse.ParseAny(strings.TrimSpace(val))
		if err != nil {
			return nil
		}
		return &t
	default:
		return nil
	}
}

// CleanBool 清洗布尔单元格（"Yes"/"No" 映射）
func CleanBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(strings.TrimSpace(val), "yes")
	default:
		return false
	}
}
