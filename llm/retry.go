package llm

import "time"

// RetryConfig controls per-endpoint retry behavior for completion
// requests. Backoff grows geometrically from BackoffBase up to the
// MaxBackoff ceiling.
type RetryConfig struct {
	// MaxAttempts bounds how many times a single endpoint is tried.
	MaxAttempts int

	// BackoffBase is the delay before the first retry.
	BackoffBase time.Duration

	// BackoffMultiplier scales the delay after each failed attempt.
	BackoffMultiplier float64

	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns the retry policy used when the caller
// does not supply one.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}
