package discount

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context carries the parameters of one discount mechanism.
type Context interface {
	Mechanism() Mechanism
}

// FixedContext takes a fixed amount off the whole cart.
type FixedContext struct {
	Amount float64 `json:"amount" yaml:"amount"`
}

// PercentageContext takes a percentage off every item.
type PercentageContext struct {
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// CategoryPercentageContext takes a percentage off items of one category.
type CategoryPercentageContext struct {
	Percentage      float64         `json:"percentage" yaml:"percentage"`
	ProductCategory ProductCategory `json:"productCategory" yaml:"productCategory"`
}

// PointsContext redeems loyalty points against the cart.
type PointsContext struct {
	Points float64 `json:"points" yaml:"points"`
}

// ThresholdContext rewards GetY for every EveryX spent.
type ThresholdContext struct {
	EveryX float64 `json:"everyX" yaml:"everyX"`
	GetY   float64 `json:"getY" yaml:"getY"`
}

func (FixedContext) Mechanism() Mechanism              { return MechanismFixed }
func (PercentageContext) Mechanism() Mechanism         { return MechanismPercentage }
func (CategoryPercentageContext) Mechanism() Mechanism { return MechanismPercentageByCategory }
func (PointsContext) Mechanism() Mechanism             { return MechanismUsePoint }
func (ThresholdContext) Mechanism() Mechanism          { return MechanismEveryXGetY }

// DecodeContext builds the context for mechanism m using decode to fill it.
// decode receives a pointer to the concrete context struct, which lets JSON
// and YAML callers share the mechanism-to-shape mapping.
func DecodeContext(m Mechanism, decode func(any) error) (Context, error) {
	switch m {
	case MechanismFixed:
		var c FixedContext
		return c, wrapDecode(m, decode(&c))
	case MechanismPercentage:
		var c PercentageContext
		return c, wrapDecode(m, decode(&c))
	case MechanismPercentageByCategory:
		var c CategoryPercentageContext
		return c, wrapDecode(m, decode(&c))
	case MechanismUsePoint:
		var c PointsContext
		return c, wrapDecode(m, decode(&c))
	case MechanismEveryXGetY:
		var c ThresholdContext
		return c, wrapDecode(m, decode(&c))
	default:
		return nil, &UnregisteredMechanismError{Mechanism: m}
	}
}

func wrapDecode(m Mechanism, err error) error {
	if err == nil {
		return nil
	}
	return &ContextError{Mechanism: m, Reason: fmt.Sprintf("decode: %v", err)}
}

// IsEmptyContextJSON reports whether raw is absent, null or an object with no
// members. Any other shape is left to the mechanism's decoder.
func IsEmptyContextJSON(raw json.RawMessage) bool {
	if len(bytes.TrimSpace(raw)) == 0 {
		return true
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return false
	}
	return len(members) == 0
}

type discountJSON struct {
	Source    Source          `json:"source"`
	Mechanism Mechanism       `json:"mechanism"`
	Context   json.RawMessage `json:"context"`
}

// MarshalJSON encodes the discount as {source, mechanism, context}.
func (d Discount) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(d.Context)
	if err != nil {
		return nil, err
	}
	return json.Marshal(discountJSON{Source: d.Source, Mechanism: d.Mechanism, Context: raw})
}

// UnmarshalJSON decodes {source, mechanism, context}, picking the context
// shape from the mechanism.
func (d *Discount) UnmarshalJSON(data []byte) error {
	var wire discountJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if IsEmptyContextJSON(wire.Context) {
		return EmptyContextError(wire.Mechanism)
	}
	ctx, err := DecodeContext(wire.Mechanism, func(v any) error {
		return json.Unmarshal(wire.Context, v)
	})
	if err != nil {
		return err
	}
	*d = Discount{Source: wire.Source, Mechanism: wire.Mechanism, Context: ctx}
	return nil
}
