// Package fetch downloads release metadata and asset bytes over HTTPS with
// bounded retries, exponential backoff with jitter, and a per-invocation
// circuit breaker. It is the only component of the pipeline that retries;
// every other stage fails closed on first error.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultAttemptTimeout caps a single download attempt
	DefaultAttemptTimeout = 2 * time.Minute
	// DefaultMaxRetries is the default number of attempts per fetch
	DefaultMaxRetries = 3
	// DefaultBaseDelay is the first backoff delay
	DefaultBaseDelay = 1 * time.Second
	// DefaultMaxDelay caps the backoff delay regardless of attempt count
	DefaultMaxDelay = 30 * time.Second
	// DefaultBreakerThreshold is the consecutive-failure count that trips
	// the circuit breaker
	DefaultBreakerThreshold = 5
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "vouch/1.0"
)

// Policy bounds the retry behavior of a Fetcher.
type Policy struct {
	MaxRetries       int
	AttemptTimeout   time.Duration
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	BreakerThreshold int
}

// DefaultPolicy returns the bounded defaults used when the caller does not
// override them.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:       DefaultMaxRetries,
		AttemptTimeout:   DefaultAttemptTimeout,
		BaseDelay:        DefaultBaseDelay,
		MaxDelay:         DefaultMaxDelay,
		BreakerThreshold: DefaultBreakerThreshold,
	}
}

// Fetcher performs resilient HTTPS downloads. One Fetcher belongs to one
// pipeline invocation; its breaker state never outlives the invocation.
type Fetcher struct {
	client    *http.Client
	policy    Policy
	breaker   *Breaker
	userAgent string
	token     string
	// insecureHTTP permits plain-HTTP URLs. For testing only.
	insecureHTTP bool
	// sleep is replaceable so tests do not wait out the backoff schedule
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithToken sets a bearer token sent as the Authorization header, for
// private or rate-limited release APIs.
func WithToken(token string) Option {
	return func(f *Fetcher) { f.token = token }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithInsecureHTTP permits plain-HTTP URLs. For testing only.
func WithInsecureHTTP() Option {
	return func(f *Fetcher) { f.insecureHTTP = true }
}

// New creates a fetcher with a fresh circuit breaker.
func New(policy Policy, opts ...Option) *Fetcher {
	if policy.MaxRetries <= 0 {
		policy.MaxRetries = DefaultMaxRetries
	}
	if policy.AttemptTimeout <= 0 {
		policy.AttemptTimeout = DefaultAttemptTimeout
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultBaseDelay
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = DefaultMaxDelay
	}
	if policy.BreakerThreshold <= 0 {
		policy.BreakerThreshold = DefaultBreakerThreshold
	}

	f := &Fetcher{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Allow up to 10 redirects
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		policy:    policy,
		breaker:   NewBreaker(policy.BreakerThreshold),
		userAgent: DefaultUserAgent,
		sleep: func(ctx context.Context, d time.Duration) error {
			select {
			case <-time.After(d):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch downloads the full response body for a URL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte
	err := f.withRetries(ctx, rawURL, func(attemptCtx context.Context) error {
		b, err := f.fetchOnce(attemptCtx, rawURL)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// FetchToFile downloads a URL to destPath via a temp file and atomic
// rename, creating parent directories as needed.
func (f *Fetcher) FetchToFile(ctx context.Context, rawURL, destPath string) error {
	return f.withRetries(ctx, rawURL, func(attemptCtx context.Context) error {
		return f.fetchOnceToFile(attemptCtx, rawURL, destPath)
	})
}

// withRetries runs one logical fetch: validate the transport, then attempt
// up to MaxRetries times with capped exponential backoff. The circuit
// breaker is consulted before each attempt and checked again after each
// failure so a trip cuts the schedule short.
func (f *Fetcher) withRetries(ctx context.Context, rawURL string, attempt func(context.Context) error) error {
	if err := f.checkTransport(rawURL); err != nil {
		return err
	}

	var lastErr error

	for i := 0; i < f.policy.MaxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !f.breaker.Allow() {
			return &CircuitOpenError{URL: rawURL, Failures: f.breaker.Failures()}
		}

		if i > 0 {
			if err := f.sleep(ctx, f.backoffDelay(i)); err != nil {
				return err
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, f.policy.AttemptTimeout)
		err := attempt(attemptCtx)
		cancel()

		if err == nil {
			f.breaker.Success()
			return nil
		}

		lastErr = err
		f.breaker.Failure()

		// A failure that reaches the threshold opens the circuit right
		// away; the caller must not sleep out the remaining backoff.
		if !f.breaker.Allow() {
			return &CircuitOpenError{URL: rawURL, Failures: f.breaker.Failures()}
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if errors.Is(lastErr, context.DeadlineExceeded) {
		return &NetworkTimeoutError{URL: rawURL, Attempts: f.policy.MaxRetries, Err: lastErr}
	}
	return fmt.Errorf("fetch failed after %d attempts: %w", f.policy.MaxRetries, lastErr)
}

// backoffDelay computes base * 2^(attempt-1) plus jitter of up to one base
// delay, capped at MaxDelay.
func (f *Fetcher) backoffDelay(attempt int) time.Duration {
	delay := f.policy.BaseDelay * time.Duration(1<<uint(attempt-1))
	delay += time.Duration(rand.Int63n(int64(f.policy.BaseDelay) + 1))
	if delay > f.policy.MaxDelay {
		delay = f.policy.MaxDelay
	}
	return delay
}

// checkTransport enforces HTTPS-only URLs.
func (f *Fetcher) checkTransport(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "https" {
		return nil
	}
	if u.Scheme == "http" && f.insecureHTTP {
		return nil
	}
	return &InsecureTransportError{URL: rawURL}
}

func (f *Fetcher) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	return req, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := f.newRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body, nil
}

func (f *Fetcher) fetchOnceToFile(ctx context.Context, rawURL, destPath string) error {
	req, err := f.newRequest(ctx, rawURL)
	if err != nil {
		return err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	// Track whether we need to clean up the temp file
	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath) // Clean up on error
		}
	}()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		return fmt.Errorf("copy response body: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	cleanupNeeded = false
	return nil
}
