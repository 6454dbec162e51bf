package discount

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCart is returned when a computation is requested without cart items.
	ErrEmptyCart = errors.New("Cart items are required for discount computation.")
	// ErrDuplicateSource is matched by DuplicateSourceError.
	ErrDuplicateSource = errors.New("duplicate discount source")
	// ErrInvalidContext is matched by ContextError.
	ErrInvalidContext = errors.New("invalid discount context")
	// ErrUnregisteredMechanism is matched by UnregisteredMechanismError.
	ErrUnregisteredMechanism = errors.New("unregistered discount mechanism")
	// ErrInvalidPolicy is returned for a point policy that cannot convert points.
	ErrInvalidPolicy = errors.New("invalid point policy")
)

// EmptyContextReason is the ContextError reason for a missing or empty context.
const EmptyContextReason = "Discount context cannot be empty"

// DuplicateSourceError names the first source seen twice in a discount list.
type DuplicateSourceError struct {
	Source Source
}

func (e *DuplicateSourceError) Error() string {
	return fmt.Sprintf("Duplicate discount source detected: %s", e.Source)
}

// Is lets errors.Is match ErrDuplicateSource.
func (e *DuplicateSourceError) Is(target error) bool { return target == ErrDuplicateSource }

// ContextError reports a context that does not satisfy its mechanism's rules.
type ContextError struct {
	Mechanism Mechanism
	Reason    string
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("invalid %s discount context: %s", e.Mechanism, e.Reason)
}

// Is lets errors.Is match ErrInvalidContext.
func (e *ContextError) Is(target error) bool { return target == ErrInvalidContext }

// UnregisteredMechanismError is returned when no handler is bound to a mechanism.
type UnregisteredMechanismError struct {
	Mechanism Mechanism
}

func (e *UnregisteredMechanismError) Error() string {
	return fmt.Sprintf("No handler for: %s", e.Mechanism)
}

// Is lets errors.Is match ErrUnregisteredMechanism.
func (e *UnregisteredMechanismError) Is(target error) bool { return target == ErrUnregisteredMechanism }

// EmptyContextError reports that mechanism m was given no context.
func EmptyContextError(m Mechanism) error {
	return &ContextError{Mechanism: m, Reason: EmptyContextReason}
}

func contextErr(m Mechanism, format string, args ...any) error {
	return &ContextError{Mechanism: m, Reason: fmt.Sprintf(format, args...)}
}
