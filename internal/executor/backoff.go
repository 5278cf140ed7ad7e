package executor

import (
	"math/rand"
	"time"
)

const (
	backoffBase = time.Second
	backoffCap  = 30 * time.Second
)

// fullJitterBackoff returns a randomized delay for reconnect attempt n (0-based),
// grounded on SPEC_FULL.md §4.1's "base 1s, cap 30s, full jitter" policy.
func fullJitterBackoff(attempt int) time.Duration {
	exp := backoffBase << attempt
	if exp <= 0 || exp > backoffCap {
		exp = backoffCap
	}
	return time.Duration(rand.Int63n(int64(exp) + 1))
}
