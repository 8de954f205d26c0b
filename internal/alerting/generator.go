package alerting

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/domain"
)

// Thresholds 利用率 -> 报警级别阈值
type Thresholds struct {
	WarningPct   float64
	CriticalPct  float64
	EmergencyPct float64
}

// DefaultThresholds >=100 emergency, >=98 critical, >=90 warning
func DefaultThresholds() Thresholds {
	return Thresholds{WarningPct: 90, CriticalPct: 98, EmergencyPct: 100}
}

// growthTier 基线日增长率表：利用率越高，假定日增长越大
type growthTier struct {
	aboveUtilizationPct float64
	dailyGrowthPct      float64
}

var baselineGrowthTiers = []growthTier{
	{aboveUtilizationPct: 95, dailyGrowthPct: 2.0},
	{aboveUtilizationPct: 80, dailyGrowthPct: 1.5},
}

// 低利用率池的基线日增长率（%/天）
const normalDailyGrowthPct = 1.0

// 实际增长率换算的下限（%/天），防止除数异常
const minDailyGrowthPct = 0.1

// Generator 扫描新入库的存储池，按利用率阈值生成报警候选
// 抑制逻辑（同 pool+system 已有未确认报警则不落库）由编排器在事务内做，
// 这里只负责纯评估
type Generator struct {
	thresholds Thresholds
	logger     *zap.Logger
}

func NewGenerator(thresholds Thresholds, logger *zap.Logger) *Generator {
	return &Generator{thresholds: thresholds, logger: logger}
}

// Evaluate 返回报警候选列表（utilization 未知的池不参与）
func (g *Generator) Evaluate(tenantID string, reportDate time.Time, pools []domain.StoragePool) []domain.Alert {
	var alerts []domain.Alert
	for _, pool := range pools {
		severity := g.severity(pool.UtilizationPct)
		if severity == "" {
			continue
		}

		days := g.daysToFull(pool)
		alerts = append(alerts, domain.Alert{
			TenantID:          tenantID,
			ReportDate:        reportDate,
			PoolName:          pool.Name,
			StorageSystemName: pool.StorageSystemName,
			UtilizationPct:    pool.UtilizationPct,
			Severity:          severity,
			DaysToFull:        days,
			Message: fmt.Sprintf("Pool %s on %s is at %.1f%% utilization (estimated %d days to full)",
				pool.Name, pool.StorageSystemName, pool.UtilizationPct, days),
			CreatedAt: time.Now(),
		})

		g.logger.Info("Pool utilization alert raised",
			zap.String("pool", pool.Name),
			zap.String("storage_system", pool.StorageSystemName),
			zap.Float64("utilization_pct", pool.UtilizationPct),
			zap.String("severity", severity),
		)
	}
	return alerts
}

func (g *Generator) severity(utilizationPct float64) string {
	switch {
	case utilizationPct >= g.thresholds.EmergencyPct:
		return domain.AlertSeverityEmergency
	case utilizationPct >= g.thresholds.CriticalPct:
		return domain.AlertSeverityCritical
	case utilizationPct >= g.thresholds.WarningPct:
		return domain.AlertSeverityWarning
	default:
		return ""
	}
}

// daysToFull 估算满载天数
// 基线：按当前利用率查三档日增长表；池带有实测近期增长时用实测值覆盖，
// 换算成总容量百分比并下限 0.1%/天；结果向下取整且不小于 0
func (g *Generator) daysToFull(pool domain.StoragePool) int {
	growthPct := normalDailyGrowthPct
	for _, tier := range baselineGrowthTiers {
		if pool.UtilizationPct > tier.aboveUtilizationPct {
			growthPct = tier.dailyGrowthPct
			break
		}
	}

	if pool.RecentGrowthGiB > 0 && pool.UsableCapacityGiB > 0 {
		actual := pool.RecentGrowthGiB / pool.UsableCapacityGiB * 100
		if actual < minDailyGrowthPct {
			actual = minDailyGrowthPct
		}
		growthPct = actual
	}

	if growthPct <= 0 {
		return 0
	}
	days := int((100 - pool.UtilizationPct) / growthPct)
	if days < 0 {
		days = 0
	}
	return days
}
