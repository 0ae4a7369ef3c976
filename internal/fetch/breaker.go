package fetch

// Breaker counts consecutive fetch failures and trips once a threshold is
// reached. It is scoped to one pipeline invocation and shared between the
// metadata and asset fetches of that invocation; it is not safe for
// concurrent use and does not need to be (the pipeline is sequential).
type Breaker struct {
	threshold   int
	consecutive int
}

// NewBreaker creates a breaker that trips after threshold consecutive
// failures. A threshold of zero or less disables the breaker.
func NewBreaker(threshold int) *Breaker {
	return &Breaker{threshold: threshold}
}

// Allow reports whether another attempt may proceed.
func (b *Breaker) Allow() bool {
	if b.threshold <= 0 {
		return true
	}
	return b.consecutive < b.threshold
}

// Failure records a failed attempt.
func (b *Breaker) Failure() {
	b.consecutive++
}

// Success resets the consecutive-failure count.
func (b *Breaker) Success() {
	b.consecutive = 0
}

// Failures returns the current consecutive-failure count.
func (b *Breaker) Failures() int {
	return b.consecutive
}
