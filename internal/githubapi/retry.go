package github

import (
	"errors"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"
)

const (
	// defaultMaxRetries and the backoff schedule below implement the
	// 1s -> 4s -> 16s / <=3-retry budget (§5 "Retry budget"): one attempt
	// plus up to three retries.
	defaultMaxRetries    = 3
	defaultInitialDelay  = 1 * time.Second
	defaultBackoffFactor = 4.0
	defaultMaxDelay      = 16 * time.Second
)

// retryWithBackoff executes a function with exponential backoff retry
// This eliminates the special case of transient network failures by converting them
// into automatically recoverable normal cases.
func retryWithBackoff(fn func() error) error {
	return retryWithBackoffCustom(defaultMaxRetries, defaultInitialDelay, fn)
}

// retryWithBackoffCustom allows custom retry configuration
func retryWithBackoffCustom(maxRetries int, initialDelay time.Duration, fn func() error) error {
	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			sleepFor := jitter(delay)
			log.Printf("[Retry] Attempt %d/%d after %v delay", attempt+1, maxRetries+1, sleepFor)
			time.Sleep(sleepFor)
			delay = minDuration(delay*time.Duration(defaultBackoffFactor), defaultMaxDelay)
		}

		lastErr = fn()
		if lastErr == nil {
			if attempt > 0 {
				log.Printf("[Retry] Succeeded on attempt %d/%d", attempt+1, maxRetries+1)
			}
			return nil
		}

		if !isRetryableError(lastErr) {
			log.Printf("[Retry] Non-retryable error, failing immediately: %v", lastErr)
			return lastErr
		}

		if attempt < maxRetries {
			log.Printf("[Retry] Retryable error on attempt %d/%d: %v", attempt+1, maxRetries+1, lastErr)
		}
	}

	log.Printf("[Retry] All %d attempts failed, giving up", maxRetries+1)
	return lastErr
}

// jitter adds up to 20% random variance to a backoff delay so concurrent
// retries across workers don't all land on the same tick (§9 "added jitter").
func jitter(d time.Duration) time.Duration {
	spread := float64(d) * 0.2
	return d + time.Duration(rand.Float64()*spread)
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// isRetryableError determines if an error should trigger a retry.
// Transient (5xx, timeouts, 429) are retried; everything else, including
// other 4xx, is treated as permanent per §5/§7.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return isRetryableStatus(ghErr.Response.StatusCode)
	}

	var rlErr *gh.RateLimitError
	if errors.As(err, &rlErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"eof",
		"timeout",
		"connection refused",
		"temporary failure",
		"connection reset",
		"broken pipe",
		"no such host",
		"network is unreachable",
		"429",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// isRetryableStatus classifies an HTTP status code as transient or
// permanent for the GitHub REST client's retry loop.
func isRetryableStatus(status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500
}
