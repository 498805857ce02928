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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/integra-gate/internal/console/handler"
	"github.com/xela07ax/integra-gate/internal/console/server"
	"github.com/xela07ax/integra-gate/internal/console/service"
	"github.com/xela07ax/integra-gate/internal/face"
	"github.com/xela07ax/integra-gate/internal/infra"
	"github.com/xela07ax/integra-gate/internal/infra/auth"
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

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Инициализация ресурсов
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
	operatorRepo := postgres.NewOperatorRepo(pool)

	// 3. RSA ключи: подпись токенов закрытым, проверка — открытым
	publicKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("failed to parse auth public key", zap.Error(err))
	}
	privateKey, err := auth.ParseRSAPrivateKey(cfg.Auth.PrivateKey)
	if err != nil {
		logger.Fatal("failed to parse auth private key", zap.Error(err))
	}
	validator := auth.NewBaseValidator(publicKey)

	// 4. Сервисный слой (Dependency Injection)
	recognizer := face.NewRemoteRecognizer(cfg.Recognition.ServiceURL, cfg.Recognition.ServiceTimeout)
	training := face.NewTraining(recognizer, identityRepo, logger)

	authService := service.NewAuthService(operatorRepo, privateKey, cfg.Auth.TokenTTL)
	identityService := service.NewIdentityService(identityRepo, training, cfg.Recognition.SamplesPerFace, logger)
	vehicleService := service.NewVehicleService(rdb, vehicleRepo, validator, logger)
	accessService := service.NewAccessService(auditRepo, logger)

	// 5. Сборка сервера консоли
	consoleSrv := server.NewConsoleServer(
		cfg,
		logger,
		vehicleService,
		handler.NewAuthHandler(authService),
		handler.NewIdentityHandler(identityService, logger),
		handler.NewVehicleHandler(vehicleService, logger),
		handler.NewAccessHandler(accessService, logger),
		handler.NewDashboardHandler(accessService, logger),
	)

	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     consoleSrv,
		ReadTimeout: cfg.Server.ReadTimeout,
		// Регистрация человека ждет сбор образцов и переобучение модели
		WriteTimeout: 10 * time.Minute,
	}

	// 6. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("console API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("console API stopping...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("console API exited properly")
}
