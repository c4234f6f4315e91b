package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mkurzov/marketd/internal/config"
	"github.com/mkurzov/marketd/internal/exchange"
	"github.com/mkurzov/marketd/internal/metrics"
	"github.com/mkurzov/marketd/internal/provider"
	"github.com/mkurzov/marketd/internal/ratelimit"
	"github.com/mkurzov/marketd/internal/server"
	"github.com/mkurzov/marketd/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/marketd.yaml", "path to config file")
	flag.Parse()

	// .env is optional; exported environment always wins.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting marketd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"addr", cfg.Server.Addr(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	registry := newRegistry(cfg.Exchanges, logger)
	p := provider.New(provider.Config{
		TickerTTL:    cfg.Cache.TickerTTL,
		CacheMaxSize: cfg.Cache.MaxSize,
	}, registry, logger)

	limiter := ratelimit.New(ratelimit.Config{
		Capacity:        cfg.RateLimit.Capacity,
		RefillPerSecond: cfg.RateLimit.RefillPerSecond,
		IdleTTL:         cfg.RateLimit.IdleTTL,
	}, logger)
	limiter.StartJanitor(ctx, time.Minute)

	prometheus.MustRegister(metrics.NewCacheCollector("tickers", p.CacheStats))

	srv := server.New(cfg, p, limiter, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("marketd stopped")
}

// loadConfig reads the config file. A missing file at the default path is
// fine and yields defaults; an explicit --config pointing nowhere is an
// error.
func loadConfig(path string) (*config.ServiceConfig, error) {
	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})

	cfg, err := config.LoadAndValidate(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			slog.Info("config file not found, using defaults", "path", path)
			return config.Defaulted(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// newRegistry builds the driver registry, applying shared client settings
// plus any per-exchange endpoint overrides.
func newRegistry(cfg config.ExchangesConfig, logger *slog.Logger) *exchange.Registry {
	shared := []exchange.Option{
		exchange.WithTimeout(cfg.Timeout),
		exchange.WithRetries(cfg.MaxRetries, 500*time.Millisecond),
		exchange.WithLogger(logger),
	}
	opts := func(ep config.EndpointConfig) []exchange.Option {
		out := append([]exchange.Option(nil), shared...)
		if ep.BaseURL != "" {
			out = append(out, exchange.WithBaseURL(ep.BaseURL))
		}
		return out
	}

	r := exchange.NewRegistry()
	r.Register(exchange.BinanceInfo(), func() exchange.Client { return exchange.NewBinance(opts(cfg.Binance)...) })
	r.Register(exchange.CoinbaseInfo(), func() exchange.Client { return exchange.NewCoinbase(opts(cfg.Coinbase)...) })
	r.Register(exchange.KrakenInfo(), func() exchange.Client { return exchange.NewKraken(opts(cfg.Kraken)...) })
	return r
}
