package discount

import (
	"fmt"
	"sort"
)

// Registry resolves a mechanism to its handler. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	handlers map[Mechanism]Handler
}

// NewRegistry binds each handler to its mechanism. Binding two handlers to
// the same mechanism panics.
func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[Mechanism]Handler, len(handlers))}
	for _, h := range handlers {
		m := h.Mechanism()
		if _, exists := r.handlers[m]; exists {
			panic(fmt.Sprintf("discount: handler for %s registered twice", m))
		}
		r.handlers[m] = h
	}
	return r
}

// DefaultRegistry registers the five built-in handlers with the given point policy.
func DefaultRegistry(policy PointPolicy) *Registry {
	return NewRegistry(
		FixedHandler{},
		PercentageHandler{},
		CategoryPercentageHandler{},
		NewPointsHandler(policy),
		ThresholdHandler{},
	)
}

// Handler returns the handler bound to m. It never falls back to a default.
func (r *Registry) Handler(m Mechanism) (Handler, error) {
	if r != nil {
		if h, ok := r.handlers[m]; ok {
			return h, nil
		}
	}
	return nil, &UnregisteredMechanismError{Mechanism: m}
}

// Mechanisms lists the registered mechanisms in name order.
func (r *Registry) Mechanisms() []Mechanism {
	if r == nil {
		return nil
	}
	out := make([]Mechanism, 0, len(r.handlers))
	for m := range r.handlers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
