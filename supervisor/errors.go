package supervisor

import (
	"fmt"
	"strings"
	"time"
)

// CycleError is returned by Declare when the new node would close a
// dependency cycle. Chain holds the cycle path, first and last entry are
// the same node.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Chain, " -> "))
}

// HealthTimeoutError is returned when a service did not become healthy
// within its timeout.
type HealthTimeoutError struct {
	Service string
	Timeout time.Duration
	Cause   error
}

func (e *HealthTimeoutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("service '%s' not healthy after %s: %v", e.Service, e.Timeout, e.Cause)
	}

	return fmt.Sprintf("service '%s' not healthy after %s", e.Service, e.Timeout)
}

func (e *HealthTimeoutError) Unwrap() error {
	return e.Cause
}

// DependencyError marks a service that was never started because one of
// its dependencies failed.
type DependencyError struct {
	Service    string
	Dependency string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("service '%s' not started, dependency '%s' failed", e.Service, e.Dependency)
}

// StartError wraps a failure of the runner of a service.
type StartError struct {
	Service string
	Cause   error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("service '%s' failed to start: %v", e.Service, e.Cause)
}

func (e *StartError) Unwrap() error {
	return e.Cause
}
