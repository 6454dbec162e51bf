package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State = gobreaker.State

// Options configures a Breaker. Zero values fall back to sane defaults.
type Options struct {
	Target string
	// MinRequests is the number of calls observed before the failure ratio is evaluated.
	MinRequests  uint32
	FailureRatio float64
	// OpenFor is how long the breaker rejects calls before probing again.
	OpenFor time.Duration
	// IsSuccessful decides which errors count against the dependency.
	IsSuccessful func(error) bool
	Logger       zerolog.Logger
	State        *prometheus.GaugeVec
	Transitions  *prometheus.CounterVec
}

// Breaker guards calls to a flaky dependency with a failure-ratio circuit.
type Breaker struct {
	cb          *gobreaker.CircuitBreaker[any]
	target      string
	logger      zerolog.Logger
	state       *prometheus.GaugeVec
	transitions *prometheus.CounterVec
}

// NewBreaker constructs a breaker that opens when the failure ratio reaches
// the configured threshold once the minimum number of requests is observed.
func NewBreaker(opts Options) *Breaker {
	if opts.MinRequests == 0 {
		opts.MinRequests = 5
	}
	if opts.FailureRatio <= 0 {
		opts.FailureRatio = 0.5
	}
	if opts.FailureRatio > 1 {
		opts.FailureRatio = 1
	}
	if opts.OpenFor <= 0 {
		opts.OpenFor = 30 * time.Second
	}
	b := &Breaker{
		target:      targetLabel(opts.Target),
		logger:      opts.Logger,
		state:       opts.State,
		transitions: opts.Transitions,
	}
	settings := gobreaker.Settings{
		Name:        b.target,
		MaxRequests: 1,
		Timeout:     opts.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < opts.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= opts.FailureRatio
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			b.recordTransition(from, to)
		},
		IsSuccessful: opts.IsSuccessful,
	}
	b.cb = gobreaker.NewCircuitBreaker[any](settings)
	b.recordState(gobreaker.StateClosed)
	return b
}

// Execute runs fn through the breaker. A nil breaker runs fn directly.
// Rejected calls return an error matching ErrOpenCircuit.
func Execute[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	if b == nil {
		return fn(ctx)
	}
	var zero T
	out, err := b.cb.Execute(func() (any, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, fmt.Errorf("%w: %s", ErrOpenCircuit, b.target)
	}
	if out == nil {
		return zero, err
	}
	return out.(T), err
}

// State reports the current breaker state.
func (b *Breaker) State() State {
	return b.cb.State()
}

// Target is the dependency label used in logs and metrics.
func (b *Breaker) Target() string { return b.target }

func (b *Breaker) recordTransition(from, to gobreaker.State) {
	b.recordState(to)
	if b.transitions != nil {
		b.transitions.WithLabelValues(b.target, from.String(), to.String()).Inc()
	}
	evt := b.logger.Info()
	if to == gobreaker.StateOpen {
		evt = b.logger.Warn()
	}
	evt.Str("target", b.target).Str("from_state", from.String()).Str("to_state", to.String()).Msg("breaker_transition")
}

func (b *Breaker) recordState(state gobreaker.State) {
	if b.state == nil {
		return
	}
	b.state.WithLabelValues(b.target).Set(stateGaugeValue(state))
}

func targetLabel(target string) string {
	trimmed := strings.TrimSpace(target)
	if trimmed == "" {
		return "default"
	}
	return trimmed
}

func stateGaugeValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return -1
	}
}
