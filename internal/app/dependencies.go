package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/toko-discount/internal/config"
	"github.com/noah-isme/toko-discount/internal/health"
	"github.com/noah-isme/toko-discount/internal/obs"
	"github.com/noah-isme/toko-discount/internal/pricing"
	"github.com/noah-isme/toko-discount/internal/ratelimit"
	"github.com/noah-isme/toko-discount/internal/resilience"
)

// Dependencies enumerates the services shared by the HTTP surface.
type Dependencies struct {
	Config          *config.Config
	Logger          zerolog.Logger
	Redis           *redis.Client
	MetricsRegistry *prometheus.Registry
	HTTPMetrics     *obs.HTTPMetrics
	DiscountMetrics *obs.DiscountMetrics
	Validator       *validator.Validate
	Limiter         *limiter.Limiter
	Breaker         *resilience.Breaker
	Pricing         *pricing.Service
	Health          health.Handler
}

// NewDependencies wires every collaborator from cfg. Redis is optional; when
// REDIS_URL is unset the quote cache is off and rate limits are kept in memory.
func NewDependencies(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if err := cfg.PointPolicy.Validate(); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deps := &Dependencies{
		Config:          cfg,
		Logger:          logger,
		MetricsRegistry: reg,
		DiscountMetrics: obs.NewDiscountMetrics(cfg.Obs.MetricsNamespace, reg),
		Validator:       validator.New(validator.WithRequiredStructEnabled()),
	}
	if cfg.Obs.MetricsEnabled {
		deps.HTTPMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), reg)
	}

	if cfg.RedisURL != "" {
		rdb, err := newRedis(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		deps.Redis = rdb
		deps.Health.Probes = append(deps.Health.Probes, health.ProbeFunc{
			Label: "redis",
			Fn:    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	deps.Health.Timeout = cfg.HealthTimeout

	lim, err := ratelimit.New(cfg.RateLimit, deps.Redis)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Limiter = lim

	deps.Breaker = resilience.NewBreaker(resilience.Options{
		Target:      "quote_cache",
		MinRequests: 5,
		OpenFor:     30 * time.Second,
		Logger:      logger,
		State:       deps.DiscountMetrics.BreakerState,
		Transitions: deps.DiscountMetrics.BreakerTransitions,
	})

	var cache *pricing.QuoteCache
	if cfg.CacheEnabled() {
		cache = pricing.NewQuoteCache(deps.Redis, cfg.QuoteCacheTTL, deps.Breaker)
	}
	deps.Pricing = pricing.NewService(pricing.ServiceConfig{
		Engine:  pricing.NewEngine(cfg.PointPolicy),
		Cache:   cache,
		Logger:  logger,
		Metrics: deps.DiscountMetrics,
	})
	return deps, nil
}

// Close releases the Redis connection pool.
func (d *Dependencies) Close() error {
	if d == nil || d.Redis == nil {
		return nil
	}
	return d.Redis.Close()
}

func newRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if cfg.Obs.TracingEnabled {
		if err := redisotel.InstrumentTracing(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
	}
	if cfg.Obs.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
