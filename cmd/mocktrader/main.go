package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/efreitasn/mocktrader/internal/config"
	"github.com/efreitasn/mocktrader/internal/domain"
	"github.com/efreitasn/mocktrader/internal/engine"
	"github.com/efreitasn/mocktrader/internal/handler"
	"github.com/efreitasn/mocktrader/internal/metrics"
	"github.com/efreitasn/mocktrader/internal/service"
	"github.com/efreitasn/mocktrader/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	instruments, err := domain.NewInstrumentRegistry(domain.DefaultCatalog())
	if err != nil {
		logger.Error("failed to load instrument catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Market data.
	quotes := engine.NewQuoteGenerator(
		engine.NewSeededSource(cfg.RandomSeed),
		cfg.FailureRate,
		cfg.QuoteTTL,
		m,
		logger,
	)
	quoteExpiry := engine.NewQuoteExpiry(cfg.QuoteSweepInterval, quotes)

	// Services (webhook first, it is the trade notifier).
	webhookSvc := service.NewWebhookService(store.NewWebhookStore(), cfg.WebhookTimeout, m, logger)
	marketSvc := service.NewMarketService(instruments, quotes)
	tradeSvc := service.NewTradeService(
		instruments,
		quotes,
		store.NewTradeStore(),
		webhookSvc,
		cfg.DeviationThreshold,
		m,
		logger,
	)

	router := handler.NewRouter(marketSvc, tradeSvc, webhookSvc, cfg.DeviationThreshold, reg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	quoteExpiry.Start(ctx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.Int("instruments", instruments.Len()),
			slog.Float64("failure_rate", cfg.FailureRate),
			slog.Duration("quote_ttl", cfg.QuoteTTL),
			slog.Float64("deviation_threshold", cfg.DeviationThreshold),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Stop accepting requests, stop the sweeper, then drain webhook deliveries.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	drained := make(chan struct{})
	go func() {
		webhookSvc.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		logger.Warn("webhook deliveries still in flight at shutdown")
	}

	logger.Info("server stopped")
}
