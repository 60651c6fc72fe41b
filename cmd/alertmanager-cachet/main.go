package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miradorstack/alertmanager-cachet/internal/api"
	"github.com/miradorstack/alertmanager-cachet/internal/config"
	"github.com/miradorstack/alertmanager-cachet/internal/engine"
	"github.com/miradorstack/alertmanager-cachet/internal/metrics"
	"github.com/miradorstack/alertmanager-cachet/internal/repo"
	"github.com/miradorstack/alertmanager-cachet/internal/services"
	"github.com/miradorstack/alertmanager-cachet/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON, os.Stdout)
	slog.SetDefault(logger)
	logger.Info("starting alertmanager-cachet", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	policy, err := engine.ParseStatusPolicy(cfg.Reconcile.StatusPolicy)
	if err != nil {
		logger.Error("invalid status policy", slog.Any("error", err))
		os.Exit(1)
	}

	cachetClient := repo.NewCachetClient(cfg.Cachet.BaseURL, cfg.Cachet.Timeout)
	logger.Info("cachet endpoint configured",
		slog.String("base_url", cachetClient.BaseURL()),
		slog.Bool("fallback_token", cfg.Cachet.AuthToken != ""),
		slog.String("status_policy", policy.String()),
	)
	dispatcher := services.NewDispatcher(logger, cachetClient, cfg.Dispatch.Concurrency)
	reconcileService := services.NewReconcileService(logger, engine.NewAggregator(policy), dispatcher)
	handler := api.NewHandler(logger, reconcileService, cfg.Cachet.AuthToken, cfg.Server.MaxBodyBytes)

	server, err := api.NewServer(cfg.Server, handler)
	if err != nil {
		logger.Error("couldn't start server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		logger.Info("webhook listener ready",
			slog.String("address", server.Address()),
			slog.String("grpc_health", server.GRPCAddress()),
		)
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("webhook server shutdown", slog.Any("error", err))
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("alertmanager-cachet stopped")
}
