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

	"sakeai/searchservice/internal/affiliate"
	apihttp "sakeai/searchservice/internal/api/http"
	"sakeai/searchservice/internal/app"
	"sakeai/searchservice/internal/domain"
	"sakeai/searchservice/internal/metrics"
	"sakeai/searchservice/internal/providers/rakuten"
	"sakeai/searchservice/internal/providers/yahoo"
	"sakeai/searchservice/internal/search"
	"sakeai/searchservice/internal/telemetry"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "sake-search")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "sake-search"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.Bool("hasRakutenAppID", cfg.RakutenAppID != ""),
		slog.Bool("hasYahooAppID", cfg.YahooAppID != ""),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("noFilter", cfg.NoFilter),
		slog.Int("priceFloor", cfg.PriceFloor),
		slog.Int("priceCeiling", cfg.PriceCeiling),
	)

	wrapper := affiliate.Wrapper{
		Moshimo: affiliate.MoshimoIDs{
			AID:  cfg.MoshimoAID,
			PID:  cfg.MoshimoPID,
			PCID: cfg.MoshimoPCID,
			PLID: cfg.MoshimoPLID,
		},
		ValueCommerce: affiliate.ValueCommerceIDs{
			SID: cfg.YahooVCSID,
			PID: cfg.YahooVCPID,
		},
	}

	rakutenClient := &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	yahooClient := &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}

	rakutenProvider := rakuten.New(rakuten.Config{
		AppID:     cfg.RakutenAppID,
		Endpoint:  cfg.RakutenEndpoint,
		UserAgent: cfg.UserAgent,
		Client:    rakutenClient,
		Wrapper:   wrapper,
	})
	yahooProvider := yahoo.New(yahoo.Config{
		AppID:      cfg.YahooAppID,
		EndpointV3: cfg.YahooEndpointV3,
		EndpointV1: cfg.YahooEndpointV1,
		GenreID:    cfg.YahooGenre,
		UserAgent:  cfg.UserAgent,
		Client:     yahooClient,
		Wrapper:    wrapper,
	})

	// Registration order matters: Rakuten wins first-seen dedupe collisions.
	searchService := search.NewService(
		[]search.Provider{rakutenProvider, yahooProvider},
		cfg.RequestTimeout,
		search.WithFilterBounds(domain.FilterBounds{PriceFloor: cfg.PriceFloor, PriceCeiling: cfg.PriceCeiling}),
		search.WithNoFilter(cfg.NoFilter),
		search.WithFallbackItems(search.DefaultFallbackItems(wrapper.Wrap)),
	)

	rankerOpts := []search.RankerOption{search.WithRankingTTL(cfg.RankingCacheTTL)}
	if backend := buildRankingBackend(cfg, logger); backend != nil {
		rankerOpts = append(rankerOpts, search.WithRankingBackend(backend))
	}
	ranker := search.NewRanker(rakutenProvider, rankerOpts...)

	handler := apihttp.NewServer(searchService,
		apihttp.WithLogger(logger),
		apihttp.WithRanking(ranker),
		apihttp.WithEnvStatus(apihttp.EnvStatus{
			EnvOK:          cfg.EnvOK(),
			FiltersEnabled: !cfg.NoFilter,
		}),
	).Handler()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("sake search service started",
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
	logger.Info("sake search service stopped")
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

func buildRankingBackend(cfg app.Config, logger *slog.Logger) search.RankingCacheBackend {
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" {
		return nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, ranking cache stays in-memory", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(redisOpts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable, ranking cache stays in-memory", slog.String("error", err.Error()))
		return nil
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return search.NewRedisRankingBackend(client)
}
