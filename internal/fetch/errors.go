package fetch

import "fmt"

// InsecureTransportError is returned when a fetch is attempted over plain
// HTTP. Plain-HTTP URLs are never upgraded or attempted.
type InsecureTransportError struct {
	URL string
}

func (e *InsecureTransportError) Error() string {
	return fmt.Sprintf("insecure transport: %s is not an https URL", e.URL)
}

// NetworkTimeoutError is returned when every attempt of a fetch failed and
// at least the final failure was a timeout.
type NetworkTimeoutError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *NetworkTimeoutError) Error() string {
	return fmt.Sprintf("fetch %s timed out after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

// Unwrap returns the underlying error, preserving the chain for errors.Is.
func (e *NetworkTimeoutError) Unwrap() error {
	return e.Err
}

// CircuitOpenError is returned when the consecutive-failure threshold was
// reached and remaining scheduled attempts were skipped.
type CircuitOpenError struct {
	URL      string
	Failures int
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open after %d consecutive failures, aborting fetch of %s", e.Failures, e.URL)
}

// StatusError is returned for a non-2xx response on the final attempt.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status code %d", e.URL, e.StatusCode)
}
