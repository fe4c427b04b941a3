package witness

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"time"
)

// RetryConfig tunes the exponential-backoff retry loop Submit wraps
// transient ledger failures in.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      time.Duration
}

// DefaultRetryConfig is a sane starting point for callers that don't load
// pkg/config.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts: 5,
	BaseDelay:   200 * time.Millisecond,
	MaxDelay:    10 * time.Second,
	Jitter:      250 * time.Millisecond,
}

// ComputeBackoff implements exponential backoff with uniform random jitter:
// min(baseDelay * 2^attempt + U[0,jitter], maxDelay), using true randomized
// jitter via math/rand/v2 rather than a deterministic draw. A deterministic
// variant is kept below as deterministicJitter for tests that need
// reproducibility without flakiness.
func ComputeBackoff(attempt int, cfg RetryConfig) time.Duration {
	factor := int64(1)
	if attempt > 0 {
		shift := attempt
		if shift > 30 {
			shift = 30
		}
		factor = int64(1) << uint(shift)
	}

	base := cfg.BaseDelay.Nanoseconds() * factor
	if cfg.MaxDelay > 0 && base > cfg.MaxDelay.Nanoseconds() {
		base = cfg.MaxDelay.Nanoseconds()
	}

	var jitter int64
	if cfg.Jitter > 0 {
		jitter = rand.Int64N(cfg.Jitter.Nanoseconds())
	}

	total := base + jitter
	if cfg.MaxDelay > 0 && total > cfg.MaxDelay.Nanoseconds() {
		total = cfg.MaxDelay.Nanoseconds()
	}
	return time.Duration(total)
}

// deterministicJitter is a PRF-seeded jitter for reproducible unit tests:
// same (seed, attempt) always yields the same delay, so a test can assert
// the retry loop's timing without flakiness.
func deterministicJitter(seed string, attempt int, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return 0
	}
	h := sha256.Sum256([]byte(seed + ":" + itoa(attempt)))
	basis := binary.BigEndian.Uint64(h[:8])
	return time.Duration(basis % uint64(jitter.Nanoseconds()))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
