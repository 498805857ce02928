package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/integra-gate/internal/audit"
	"github.com/xela07ax/integra-gate/internal/camera"
	"github.com/xela07ax/integra-gate/internal/engine"
	"github.com/xela07ax/integra-gate/internal/face"
	"github.com/xela07ax/integra-gate/internal/infra"
	"github.com/xela07ax/integra-gate/internal/infra/auth"
	"github.com/xela07ax/integra-gate/internal/plate"
	"github.com/xela07ax/integra-gate/internal/registry"
	"github.com/xela07ax/integra-gate/internal/repository/postgres"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Контекст для управления жизненным циклом фоновых горутин
	// При завершении main() или срабатывании SIGTERM, cancel() остановит слушателей
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Инфраструктура и ресурсы
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pool, err := postgres.NewPool(appCtx, cfg.Database)
	if err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	defer pool.Close()

	auditRepo := postgres.NewAuditRepo(pool)
	identityRepo := postgres.NewIdentityRepo(pool)
	vehicleRepo := postgres.NewVehicleRepo(pool)

	// 3. Журнал попыток: пакетная асинхронная запись в Postgres
	trail := audit.NewTrail(auditRepo, cfg.Audit.BufferSize, cfg.Audit.BatchSize, cfg.Audit.FlushInterval, logger)
	trail.Start()
	defer trail.Stop()

	// Метрики
	reg := prometheus.NewRegistry()
	metrics := engine.NewMetrics(reg)

	// Периодически снимаем заполненность буфера журнала
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-appCtx.Done():
				return
			case <-ticker.C:
				metrics.AuditBufferFill.Set(float64(trail.BufferFill()))
			}
		}
	}()

	// 4. Горячий реестр транспорта: холодная загрузка, прогрев Redis,
	// слушатель сигналов от консоли
	vehicles := registry.NewVehicleRegistry(vehicleRepo, logger)
	if err := vehicles.Refresh(appCtx); err != nil {
		logger.Fatal("failed to load vehicle registry", zap.Error(err))
	}
	if err := vehicles.Warmup(appCtx, rdb); err != nil {
		logger.Warn("vehicle set warmup failed", zap.Error(err))
	}
	go vehicles.ListenSignals(appCtx, rdb)

	// 5. Проверка номера: vision-вендор за слоем надежности + кэш извлечений
	extractor := plate.NewVisionExtractor(cfg.Plate.APIEndpoint, cfg.Plate.APIKey, nil)
	safeExtractor := engine.NewReliability(extractor, cfg.Plate, metrics)
	plateCache := plate.NewCache(cfg.Plate.CacheTimeout, rdb, logger)
	plateVerifier := plate.NewVerifier(safeExtractor, plateCache, vehicles, logger)

	// 6. Проверка лиц: CV-sidecar + пороговая политика
	recognizer := face.NewRemoteRecognizer(cfg.Recognition.ServiceURL, cfg.Recognition.ServiceTimeout)
	unknownSink, err := face.NewDirUnknownSink(cfg.Recognition.UnknownFacesDir)
	if err != nil {
		logger.Fatal("failed to prepare unknown faces dir", zap.Error(err))
	}
	faceVerifier := face.NewVerifier(
		recognizer, recognizer, identityRepo, unknownSink,
		cfg.Recognition.ConfidenceThreshold, cfg.Recognition.PoorMatchThreshold,
		logger,
	)

	// 7. Core: трекер сессий + решающее ядро + живой цикл с камерой
	tracker := engine.NewTracker(logger)
	gate := engine.NewGate(faceVerifier, plateVerifier, tracker, trail, metrics, logger)

	source := camera.NewHTTPSource(cfg.Camera.SnapshotURL, cfg.Camera.Timeout)
	monitor := engine.NewMonitor(gate, source, cfg.Monitoring.FrameInterval, logger)

	// 8. HTTP Server: защищенный периметр + /metrics
	publicKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("failed to parse auth public key", zap.Error(err))
	}
	validator := auth.NewBaseValidator(publicKey)

	api := engine.NewAPI(gate, monitor, cfg.Monitoring.DefaultDuration, logger)

	mux := http.NewServeMux()
	api.Routes(mux)

	// Цепочка защиты: Trace -> Auth -> Handlers
	protected := engine.TracingMiddleware(
		auth.NewMiddleware(validator, logger)(mux),
	)

	rootMux := http.NewServeMux()
	rootMux.Handle("/v1/", protected)
	rootMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	rootMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     rootMux,
		ReadTimeout: cfg.Server.ReadTimeout,
		// POST /v1/monitor держит соединение на всю сессию мониторинга
		WriteTimeout: cfg.Monitoring.DefaultDuration + cfg.Server.WriteTimeout,
	}

	// 9. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("gate engine started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop // Ждем сигнал
	logger.Info("gate engine stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	// cancel() глушит слушателей, trail.Stop() в defer дочитает буфер
	logger.Info("gate engine exited properly")
}
