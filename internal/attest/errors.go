package attest

import (
	"fmt"
	"strings"
)

// AttestationInvalidError is returned when the bundle's signature or
// transparency-log proof does not validate against the artifact digest.
type AttestationInvalidError struct {
	Reason string
	Err    error
}

func (e *AttestationInvalidError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("attestation invalid: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("attestation invalid: %s", e.Reason)
}

// Unwrap returns the underlying error, preserving the chain for errors.Is.
func (e *AttestationInvalidError) Unwrap() error {
	return e.Err
}

// AttestationMissingError is returned when attestation enforcement was
// requested but no attestation asset was located.
type AttestationMissingError struct {
	Ref string
}

func (e *AttestationMissingError) Error() string {
	return fmt.Sprintf("attestation required but none found for %s (no bypass occurred)", e.Ref)
}

// IdentityMismatchError is returned when the bundle's signer identity
// matches none of the allowed identity patterns.
type IdentityMismatchError struct {
	Identity string
	Patterns []string
}

func (e *IdentityMismatchError) Error() string {
	return fmt.Sprintf("signer identity %q matches none of the allowed patterns [%s]",
		e.Identity, strings.Join(e.Patterns, ", "))
}
