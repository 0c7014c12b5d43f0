package chain

import "fmt"

// PublicationError is returned when a delegation push exhausted all
// attempts. It is fatal for the whole run, an inconsistent trust chain
// invalidates every downstream measurement.
type PublicationError struct {
	Zone     string
	Attempts uint
	Cause    error
}

func (e *PublicationError) Error() string {
	return fmt.Sprintf("delegation of zone '%s' not acknowledged after %d attempts: %v", e.Zone, e.Attempts, e.Cause)
}

func (e *PublicationError) Unwrap() error {
	return e.Cause
}

// VerificationError is returned when the canary walk found an invalid or
// incomplete chain of trust.
type VerificationError struct {
	Zone   string
	Reason string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("chain verification failed at zone '%s': %s", e.Zone, e.Reason)
}
