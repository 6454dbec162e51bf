package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// Probe is a dependency that can be pinged for readiness.
type Probe interface {
	Name() string
	Ping(ctx context.Context) error
}

// ProbeFunc adapts a function into a named Probe.
type ProbeFunc struct {
	Label string
	Fn    func(ctx context.Context) error
}

// Name implements Probe.
func (p ProbeFunc) Name() string { return p.Label }

// Ping implements Probe.
func (p ProbeFunc) Ping(ctx context.Context) error { return p.Fn(ctx) }

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady flips the process-wide readiness flag. Shutdown clears it so load
// balancers drain the instance before the listener closes.
func SetReady(v bool) { ready.Store(v) }

// IsReady reports the readiness flag.
func IsReady() bool { return ready.Load() }

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Probes  []Probe
	Timeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes. The engine itself has
// no dependencies, so an instance without probes is ready.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{}
	healthy := IsReady()
	if !healthy {
		status["server"] = "shutting down"
	}
	for _, p := range h.Probes {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
		err := p.Ping(ctx)
		cancel()
		if err != nil {
			status[p.Name()] = err.Error()
			healthy = false
			continue
		}
		status[p.Name()] = "ok"
	}
	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (h Handler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.Timeout
}
