package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"audiostream/metadataservice/internal/agent"
	apihttp "audiostream/metadataservice/internal/api/http"
	"audiostream/metadataservice/internal/app"
	"audiostream/metadataservice/internal/domain"
	"audiostream/metadataservice/internal/fetch"
	"audiostream/metadataservice/internal/metrics"
	"audiostream/metadataservice/internal/providers/audible"
	"audiostream/metadataservice/internal/telemetry"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "audiobook-metadata")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "audiobook-metadata"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.Duration("fetchDelay", cfg.FetchDelay),
		slog.String("siteMode", string(cfg.SiteMode)),
		slog.String("siteOverride", cfg.SiteOverride),
		slog.Bool("preferCopyrightYear", cfg.PreferCopyrightYear),
		slog.String("coverPolicy", string(cfg.CoverPolicy)),
		slog.Int("ignoreScore", cfg.IgnoreScore),
		slog.Int("goodScore", cfg.GoodScore),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Duration("cacheTTL", cfg.CacheTTL),
		slog.Bool("cacheDisabled", cfg.CacheDisabled),
	)

	catalogClient := &http.Client{
		Timeout:   cfg.RequestTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	fetcher := fetch.NewClient(fetch.Config{
		Client:    catalogClient,
		UserAgent: cfg.UserAgent,
		Delay:     cfg.FetchDelay,
	})
	catalog := audible.NewProvider(audible.Config{
		Fetcher: fetcher,
		Logger:  logger,
	})

	service := agent.NewService(catalog, cfg.RequestTimeout, buildServiceOptions(cfg, logger)...)

	handler := apihttp.NewServer(service,
		apihttp.WithLogger(logger),
		apihttp.WithDefaultPreferences(defaultPreferences(cfg)),
	).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Detail fetches ride the storefront's politeness delay and can
		// run long; rely on the agent's per-request timeout instead.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	service.StartBackground(rootCtx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("metadata service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Duration("timeout", cfg.RequestTimeout),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("metadata service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultPreferences(cfg app.Config) domain.Preferences {
	return domain.Preferences{
		SiteMode:            cfg.SiteMode,
		SiteOverride:        cfg.SiteOverride,
		PreferCopyrightYear: cfg.PreferCopyrightYear,
		CoverPolicy:         cfg.CoverPolicy,
		DebugLogging:        cfg.DebugLogging,
	}
}

func buildServiceOptions(cfg app.Config, logger *slog.Logger) []agent.ServiceOption {
	opts := []agent.ServiceOption{
		agent.WithLogger(logger),
		agent.WithScoreThresholds(cfg.IgnoreScore, cfg.GoodScore),
	}

	if cfg.CacheDisabled {
		opts = append(opts, agent.WithCacheDisabled(true))
		return opts
	}

	if cfg.CacheTTL > 0 {
		opts = append(opts, agent.WithCacheTTL(cfg.CacheTTL))
	}

	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Warn("invalid redis url, using in-memory cache only", slog.String("error", err.Error()))
			return opts
		}
		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not reachable, using in-memory cache only", slog.String("error", err.Error()))
			return opts
		}
		logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
		opts = append(opts, agent.WithRedisCache(agent.NewRedisCacheBackend(redisClient)))
	}

	return opts
}
