package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidParameter indicates a structural precondition was violated
	// before integration started.
	ErrInvalidParameter = errors.New("dynamo: invalid parameter")

	// ErrIntegration indicates the integrator could not complete the
	// requested span. The concrete cause is wrapped alongside it.
	ErrIntegration = errors.New("dynamo: integration failed")

	// ErrNonFinite indicates a NaN or Inf in the state or its derivative.
	ErrNonFinite = errors.New("dynamo: non-finite state (NaN or Inf detected)")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrMaxSteps indicates the step budget ran out before the end time.
	ErrMaxSteps = errors.New("dynamo: step budget exhausted")

	// ErrCanceled indicates the simulation was interrupted.
	ErrCanceled = errors.New("dynamo: simulation canceled by context")
)

// ParamError reports which input violated a precondition.
type ParamError struct {
	Name   string
	Value  float64
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%v: %s = %g: %s", ErrInvalidParameter, e.Name, e.Value, e.Reason)
}

func (e *ParamError) Unwrap() error {
	return ErrInvalidParameter
}

// InvalidParam is a shorthand for building a *ParamError.
func InvalidParam(name string, value float64, reason string) error {
	return &ParamError{Name: name, Value: value, Reason: reason}
}

// IntegrationError wraps an integration failure with solver context.
// It matches both ErrIntegration and Cause under errors.Is.
type IntegrationError struct {
	Step  int
	Time  float64
	State State
	Cause error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("%v at step %d (t=%.6g): %v", ErrIntegration, e.Step, e.Time, e.Cause)
}

func (e *IntegrationError) Unwrap() []error {
	return []error{ErrIntegration, e.Cause}
}

// Canceled wraps a context error so callers can match either ErrCanceled
// or context.Canceled / context.DeadlineExceeded.
func Canceled(ctxErr error) error {
	return fmt.Errorf("%w: %w", ErrCanceled, ctxErr)
}
