package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commentiq-monitor/internal/config"
	"commentiq-monitor/internal/infra/backend"
	pg "commentiq-monitor/internal/infra/db/postgres"
	"commentiq-monitor/internal/infra/logging"
	"commentiq-monitor/internal/infra/metrics"
	red "commentiq-monitor/internal/infra/redis"
	"commentiq-monitor/internal/infra/sched"
	"commentiq-monitor/internal/infra/web"
	"commentiq-monitor/internal/infra/worker"
	"commentiq-monitor/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	analysisCache := red.NewAnalysisCache(redisClient, cfg.Redis.TTL)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Backend client ----
	backendClient, err := backend.NewClient(cfg.Backend, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("backend client")
	}

	// ---- Repositories ----
	monitorRepo := pg.NewMonitorRepo(pool)

	// ---- Use cases ----
	balanceUC := usecase.NewBalanceUseCase(backendClient, logger)
	trackerUC := usecase.NewTrackerUseCase(backendClient, analysisCache, cfg.Tracker.PollInterval, logger)
	checkoutUC := usecase.NewCheckoutUseCase(ctx, backendClient, balanceUC, usecase.VerifyPolicy{
		RetryDelay:    cfg.Verify.RetryDelay,
		MaxRetries:    cfg.Verify.MaxRetries,
		SafetyTimeout: cfg.Verify.SafetyTimeout,
	}, logger)
	monitorUC := usecase.NewMonitorUseCase(ctx, monitorRepo, analysisCache, backendClient, trackerUC, cfg.Monitor.DefaultCadence, logger)

	// Seed the balance so the first page render is not empty; failure here is
	// non-fatal, the next refresh re-derives it.
	if _, err := balanceUC.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial balance refresh failed")
	}

	// ---- Workers ----
	workerPool := worker.NewPool(cfg.Monitor.Workers, logger)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	monitorWorker := sched.NewMonitorWorker(monitorUC, workerPool, cfg.Monitor.ScanInterval, cfg.Monitor.Batch, logger)
	go monitorWorker.Start(ctx)

	// ---- HTTP server ----
	authMgr := web.NewAuthManager(cfg.Session.Secret, cfg.Session.Secure, cfg.Session.Domain, cfg.Session.TTL)
	server := web.NewServer(
		checkoutUC,
		trackerUC,
		monitorUC,
		balanceUC,
		rateLimiter,
		web.VerifyLimits{Requests: cfg.Verify.RateLimit, Window: cfg.Verify.RateWindow},
		authMgr,
		cfg.Server.APIKey,
		logger,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	logger.Info().Msg("bye")
}
