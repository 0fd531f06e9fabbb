package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"recharge-platform/internal/config"
	"recharge-platform/internal/domain/ports/adapter"
	pg "recharge-platform/internal/infra/db/postgres"
	"recharge-platform/internal/infra/logging"
	"recharge-platform/internal/infra/messaging"
	"recharge-platform/internal/infra/metrics"
	"recharge-platform/internal/infra/payment"
	red "recharge-platform/internal/infra/redis"
	"recharge-platform/internal/infra/sched"
	"recharge-platform/internal/infra/web"
	"recharge-platform/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis (optional, multi-instance sweep lock) ----
	var locker red.Locker
	if cfg.Redis.Enabled {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		locker = red.NewLocker(redisClient)
	}

	// ---- Repositories ----
	codeRepo := pg.NewRechargeCodeRepo(pool)
	purchaseRepo := pg.NewPurchaseRepo(pool)
	planRepo := pg.NewPlanRepo(pool)
	txm := pg.NewTxManager(pool)

	// ---- Collaborators ----
	var messenger adapter.Messenger
	if cfg.Messaging.GatewayURL != "" {
		messenger, err = messaging.NewHTTPMessenger(cfg.Messaging.GatewayURL, cfg.Messaging.APIKey, cfg.Messaging.Timeout)
		if err != nil {
			logger.Fatal().Err(err).Msg("messaging gateway")
		}
	} else {
		logger.Warn().Msg("messaging.gateway_url not set; using noop messenger")
		messenger = messaging.NewNoopMessenger()
	}
	gateway := payment.NewNoopPaymentGateway()

	// ---- Use cases ----
	inventoryUC := usecase.NewInventoryUseCase(codeRepo, planRepo, cfg.Inventory.ImportBatchCap, cfg.Inventory.CodeTTL, logger)
	saleUC := usecase.NewSaleUseCase(codeRepo, purchaseRepo, planRepo, gateway, txm, logger)
	reminderUC := usecase.NewReminderUseCase(purchaseRepo, planRepo, messenger, cfg.Messaging.Timeout, logger)

	// ---- Workers ----
	reminderWorker := sched.NewReminderWorker(cfg.Scheduler.ReminderInterval, reminderUC, locker, logger)
	go func() { _ = reminderWorker.Run(ctx) }()
	codeExpiryWorker := sched.NewCodeExpiryWorker(cfg.Scheduler.CodeExpiryInterval, inventoryUC, logger)
	go func() { _ = codeExpiryWorker.Run(ctx) }()

	// ---- Admin HTTP server ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, "", cfg.Admin.TokenTTL)
	srv := web.NewServer(inventoryUC, saleUC, cfg.Admin.APIKey, auth, logger)
	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Admin.Port), Handler: srv.Router()}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("admin API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	_ = server.Shutdown(context.Background())
	cancel()
}
