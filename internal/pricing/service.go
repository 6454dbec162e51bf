package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/toko-discount/internal/discount"
	"github.com/noah-isme/toko-discount/internal/obs"
)

const tracerName = "github.com/noah-isme/toko-discount/internal/pricing"

// Error codes reported for core failures.
const (
	CodeEmptyCart             = "EMPTY_CART"
	CodeDuplicateSource       = "DUPLICATE_DISCOUNT_SOURCE"
	CodeInvalidContext        = "INVALID_DISCOUNT_CONTEXT"
	CodeUnregisteredMechanism = "UNREGISTERED_MECHANISM"
	codeInternal              = "INTERNAL"
)

const (
	resultOK     = "ok"
	cacheHit     = "hit"
	cacheMiss    = "miss"
	cacheError   = "error"
	cacheSkipped = "skipped"
)

// Quote is one computed result tagged with its own identifier.
type Quote struct {
	QuoteID string `json:"quoteId"`
	Result
}

// ServiceConfig configures the Service dependencies.
type ServiceConfig struct {
	Engine  *Engine
	Cache   *QuoteCache
	Logger  zerolog.Logger
	Tracer  trace.Tracer
	Metrics *obs.DiscountMetrics
}

// Service wraps the engine with quote ids, the quote cache and telemetry.
type Service struct {
	engine  *Engine
	cache   *QuoteCache
	logger  zerolog.Logger
	tracer  trace.Tracer
	metrics *obs.DiscountMetrics
	group   singleflight.Group
	newID   func() string
}

type flight struct {
	result Result
	hit    bool
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	engine := cfg.Engine
	if engine == nil {
		engine = NewEngine(discount.DefaultPointPolicy())
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Service{
		engine:  engine,
		cache:   cfg.Cache,
		logger:  cfg.Logger,
		tracer:  tracer,
		metrics: cfg.Metrics,
		newID:   uuid.NewString,
	}
}

// Engine exposes the underlying engine.
func (s *Service) Engine() *Engine { return s.engine }

// Quote computes the discounted cart. Identical concurrent requests share one
// computation and cache round trip. Cache failures are logged and never fail
// the quote.
func (s *Service) Quote(ctx context.Context, items []discount.CartItem, discounts []discount.Discount) (Quote, error) {
	ctx, span := s.tracer.Start(ctx, "pricing.compute", trace.WithAttributes(
		attribute.Int("cart.items", len(items)),
		attribute.Int("cart.discounts", len(discounts)),
	))
	defer span.End()

	start := time.Now()
	logger := s.loggerFor(ctx)

	out, cacheResult, err := s.compute(ctx, items, discounts)
	span.SetAttributes(attribute.String("cache.result", cacheResult))
	if err != nil {
		code := ErrorCode(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		s.countCompute(code)
		logger.Warn().Err(err).Str("code", code).Int("items", len(items)).Int("discounts", len(discounts)).
			Int64("duration_ms", time.Since(start).Milliseconds()).Msg("discount_compute_failed")
		return Quote{}, err
	}

	quote := Quote{QuoteID: s.newID(), Result: out}
	span.SetAttributes(
		attribute.String("quote.id", quote.QuoteID),
		attribute.Float64("quote.discounted_price", quote.DiscountedPrice),
		attribute.Float64("quote.total_discount", quote.TotalDiscountApplied),
	)
	s.countCompute(resultOK)
	s.recordApplied(discounts, out.Details)
	logger.Info().
		Str("quote_id", quote.QuoteID).
		Int("items", len(items)).
		Int("discounts", len(discounts)).
		Float64("discounted_price", quote.DiscountedPrice).
		Float64("total_discount", quote.TotalDiscountApplied).
		Str("cache", cacheResult).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("discount_computed")
	return quote, nil
}

func (s *Service) compute(ctx context.Context, items []discount.CartItem, discounts []discount.Discount) (Result, string, error) {
	if s.cache == nil {
		res, err := s.engine.Compute(items, discounts)
		return res, cacheSkipped, err
	}
	key, err := QuoteKey(s.engine.Policy, items, discounts)
	if err != nil {
		res, err := s.engine.Compute(items, discounts)
		return res, cacheSkipped, err
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		cached, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.countCache(cacheError)
			s.loggerFor(ctx).Warn().Err(err).Msg("quote cache get")
		case ok:
			s.countCache(cacheHit)
			return flight{result: cached, hit: true}, nil
		default:
			s.countCache(cacheMiss)
		}

		res, err := s.engine.Compute(items, discounts)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, res); err != nil {
			s.countCache(cacheError)
			s.loggerFor(ctx).Warn().Err(err).Msg("quote cache set")
		}
		return flight{result: res}, nil
	})
	if err != nil {
		return Result{}, cacheMiss, err
	}
	f := v.(flight)
	if f.hit {
		return f.result, cacheHit, nil
	}
	return f.result, cacheMiss, nil
}

// ErrorCode maps a computation error to its stable code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, discount.ErrEmptyCart):
		return CodeEmptyCart
	case errors.Is(err, discount.ErrDuplicateSource):
		return CodeDuplicateSource
	case errors.Is(err, discount.ErrInvalidContext):
		return CodeInvalidContext
	case errors.Is(err, discount.ErrUnregisteredMechanism):
		return CodeUnregisteredMechanism
	default:
		return codeInternal
	}
}

func (s *Service) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.logger
}

func (s *Service) countCompute(result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ComputeTotal.WithLabelValues(result).Inc()
}

func (s *Service) countCache(result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.QuoteCacheTotal.WithLabelValues(result).Inc()
}

func (s *Service) recordApplied(discounts []discount.Discount, details []discount.Snapshot) {
	if s.metrics == nil {
		return
	}
	for _, d := range discounts {
		s.metrics.AppliedTotal.WithLabelValues(string(d.Source), string(d.Mechanism)).Inc()
	}
	amounts := map[discount.Mechanism]float64{}
	for _, snap := range details {
		for _, applied := range snap.AppliedDiscounts {
			amounts[applied.Mechanism] += applied.Amount
		}
	}
	for m, amount := range amounts {
		s.metrics.Amount.WithLabelValues(string(m)).Observe(amount)
	}
}
