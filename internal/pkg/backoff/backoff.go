package backoff

import (
	"math/rand/v2"
	"time"
)

const maxDelay = 30 * time.Second

// Delay returns base*2^attempt capped at 30s, with up to 25% jitter either way.
// Attempts <= 0 return 0.
func Delay(base time.Duration, attempt int) time.Duration {
	if attempt <= 0 || base <= 0 {
		return 0
	}
	if attempt > 30 {
		attempt = 30
	}
	d := base * time.Duration(1<<uint(attempt))
	if d > maxDelay || d <= 0 {
		d = maxDelay
	}
	jitter := time.Duration(rand.Int64N(int64(d)/2+1)) - d/4
	return d + jitter
}
