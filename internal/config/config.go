package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// DSN 获取数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// Config san-dashboard（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  DatabaseConfig
	Redis     struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Ingest   IngestConfig
	Alert    AlertConfig
	Notifier NotifierConfig
}

// IngestConfig 入库管线配置
// FlashSystem 名单与历史名字修正表是部署数据，不是通用逻辑，放配置注入
type IngestConfig struct {
	FlashSystemNames []string          // 卷派生字段走 FlashSystem 分支的系统名（规范化后）
	NameCorrections  map[string]string // 历史问题名 -> 当前规范名
}

// AlertConfig 容量报警配置
type AlertConfig struct {
	WarningPct   float64 // >= 告警
	CriticalPct  float64 // >= 严重
	EmergencyPct float64 // >= 紧急
}

// NotifierConfig 报警外发（邮件协作方 webhook）配置
type NotifierConfig struct {
	Enabled    bool
	WebhookURL string
	TimeoutSec int
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to true for local dev: if DB is unavailable, san-dashboard falls back to the in-memory store.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "san_dashboard")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0
	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// 入库管线配置
	cfg.Ingest.FlashSystemNames = parseList(getEnv("FLASHSYSTEM_NAMES", "FS92K-A1,FS9200-01,FS9500-DR"))
	cfg.Ingest.NameCorrections = parsePairs(getEnv("NAME_CORRECTIONS", "FS92K_A1_OLD=FS92K-A1,SVC_CLUSTER9=SVC-Cluster-9"))

	// 报警阈值
	cfg.Alert.WarningPct = parseFloat(getEnv("ALERT_WARNING_PCT", "90"), 90)
	cfg.Alert.CriticalPct = parseFloat(getEnv("ALERT_CRITICAL_PCT", "98"), 98)
	cfg.Alert.EmergencyPct = parseFloat(getEnv("ALERT_EMERGENCY_PCT", "100"), 100)

	// 报警外发（默认禁用）
	cfg.Notifier.Enabled = getEnv("ALERT_WEBHOOK_ENABLED", "false") == "true"
	cfg.Notifier.WebhookURL = getEnv("ALERT_WEBHOOK_URL", "")
	cfg.Notifier.TimeoutSec = parseInt(getEnv("ALERT_WEBHOOK_TIMEOUT", "10"), 10)

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

// parseList 解析逗号分隔列表（空项丢弃）
func parseList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parsePairs 解析 "OLD=NEW,OLD2=NEW2" 形式的映射
func parsePairs(s string) map[string]string {
	out := map[string]string{}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		kv := strings.SplitN(item, "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			continue
		}
		out[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return out
}
