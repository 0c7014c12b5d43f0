package ca

import "fmt"

// IssuanceError reports that a certificate could not be obtained. It is
// scoped to the requesting fixture, the run carries on without it.
type IssuanceError struct {
	Hostname string
	Cause    error
}

// Error implements `error`.
func (e *IssuanceError) Error() string {
	return fmt.Sprintf("certificate issuance for '%s' failed: %v", e.Hostname, e.Cause)
}

// Unwrap implements the errors unwrap interface.
func (e *IssuanceError) Unwrap() error {
	return e.Cause
}
