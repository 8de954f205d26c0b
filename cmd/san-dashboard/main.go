package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/alerting"
	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/config"
	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/database"
	httpapi "github.com/neilpandey27-web/SAN-Dashboard-v3/internal/http"
	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/ingest"
	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/logger"
	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/notifier"
	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/repository"
	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/service"
	"github.com/neilpandey27-web/SAN-Dashboard-v3/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "san-dashboard")
	if err != nil {
		log, _ = zap.NewProduction()
	}
	defer log.Sync()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	var kv store.KV
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		// Redis 不可用：总览直接走 DB，不缓存
		log.Warn("Redis unavailable, overview cache disabled", zap.Error(err))
	} else {
		kv = store.NewRedisKV(redisClient)
	}

	// DB 未就绪：回退内存存储支持本地联测
	var db *sql.DB
	var capStore repository.CapacityStore
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			capStore = repository.NewPostgresCapacityStore(db, log)
			log.Info("DB enabled for san-dashboard")
		} else {
			log.Warn("DB enabled but connection failed, falling back to in-memory store", zap.Error(err))
		}
	}
	if capStore == nil {
		capStore = repository.NewMemoryCapacityStore()
	}

	generator := alerting.NewGenerator(alerting.Thresholds{
		WarningPct:   cfg.Alert.WarningPct,
		CriticalPct:  cfg.Alert.CriticalPct,
		EmergencyPct: cfg.Alert.EmergencyPct,
	}, log)
	opts := ingest.NewOptions(cfg.Ingest.FlashSystemNames, cfg.Ingest.NameCorrections)
	orchestrator := ingest.NewOrchestrator(capStore, generator, opts, log)

	var webhook *notifier.WebhookNotifier
	capSvc := service.NewCapacityService(orchestrator, capStore, kv, nil, log)
	if cfg.Notifier.Enabled && cfg.Notifier.WebhookURL != "" {
		webhook = notifier.NewWebhookNotifier(cfg.Notifier.WebhookURL, time.Duration(cfg.Notifier.TimeoutSec)*time.Second, log)
		capSvc = service.NewCapacityService(orchestrator, capStore, kv, webhook, log)
	}

	router := httpapi.NewRouter(log)
	router.RegisterCapacityRoutes(
		httpapi.NewUploadHandler(capSvc, log),
		httpapi.NewAlertHandler(capSvc, log),
		httpapi.NewOverviewHandler(capSvc, log),
	)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = redisClient.Close()
	if db != nil {
		_ = db.Close()
	}
}
