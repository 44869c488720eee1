// Package errs defines the failure taxonomy of a verification run.
package errs

import (
	"errors"
	"fmt"

	"github.com/ochairo/crossverify/internal/domain/entities"
)

// Kind classifies why a target failed
type Kind string

// Failure kinds, each local to the target it occurred on
const (
	KindToolchainUnavailable Kind = "ToolchainUnavailable"
	KindBuildFailure         Kind = "BuildFailure"
	KindTestFailure          Kind = "TestFailure"
	KindTestHarnessError     Kind = "TestHarnessError"
)

// Sentinel errors matched by errors.Is against a *StepError
var (
	ErrToolchainUnavailable = errors.New("toolchain unavailable")
	ErrBuildFailure         = errors.New("build failure")
	ErrTestFailure          = errors.New("test failure")
	ErrTestHarnessError     = errors.New("test harness error")
	ErrInvalidMatrix        = errors.New("invalid matrix")
)

// Sentinel returns the sentinel error for the kind
func (k Kind) Sentinel() error {
	switch k {
	case KindToolchainUnavailable:
		return ErrToolchainUnavailable
	case KindBuildFailure:
		return ErrBuildFailure
	case KindTestFailure:
		return ErrTestFailure
	case KindTestHarnessError:
		return ErrTestHarnessError
	default:
		return nil
	}
}

// Step returns the pipeline step a kind is attributed to
func (k Kind) Step() entities.Step {
	switch k {
	case KindToolchainUnavailable:
		return entities.StepPrepare
	case KindBuildFailure:
		return entities.StepBuild
	default:
		return entities.StepTest
	}
}

// StepError is a target-local failure of one pipeline step
type StepError struct {
	Kind        Kind
	Target      string
	Step        entities.Step
	Diagnostics string
	Err         error
}

// New creates a StepError, deriving the step from the kind
func New(kind Kind, target, diagnostics string, err error) *StepError {
	return &StepError{
		Kind:        kind,
		Target:      target,
		Step:        kind.Step(),
		Diagnostics: diagnostics,
		Err:         err,
	}
}

func (e *StepError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s step failed for %s", e.Kind, e.Step, e.Target)
	}
	return fmt.Sprintf("%s: %s step failed for %s: %v", e.Kind, e.Step, e.Target, e.Err)
}

// Unwrap returns the underlying cause
func (e *StepError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of the kind
func (e *StepError) Is(target error) bool {
	sentinel := e.Kind.Sentinel()
	return sentinel != nil && target == sentinel
}

// KindOf extracts the failure kind from an error chain
func KindOf(err error) (Kind, bool) {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Kind, true
	}
	return "", false
}

// Invalid wraps a matrix validation problem
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidMatrix, fmt.Sprintf(format, args...))
}
