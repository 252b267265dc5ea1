package queue

import (
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// ComputeBackoff implements spec §4.5's retry delay formula:
//
//	delay = min(backoff_max, base * 2^attempt) * (1 + U[0, jitter_ratio])
//
// attempt is the post-increment attempt count (1 for the first retry),
// matching the spec's attempt-numbering rule. Ported from the teacher's
// calculateRetryDelay, which used full jitter (U[0, backoff]); this spec
// instead multiplies by (1 + U[0, jitter_ratio]) per §4.5, so the jitter
// source here is rewritten accordingly while keeping the teacher's
// crypto/rand + math/big approach for non-predictable jitter.
func ComputeBackoff(attempt int, cfg RetryConfig) time.Duration {
	backoff := cfg.BaseSeconds * math.Pow(2, float64(attempt))
	if backoff > cfg.MaxSeconds {
		backoff = cfg.MaxSeconds
	}
	if backoff < 0 {
		backoff = 0
	}

	jitter := randFraction() * cfg.JitterRatio
	delaySeconds := backoff * (1 + jitter)

	return time.Duration(delaySeconds * float64(time.Second))
}

// randFraction returns a uniform random value in [0, 1) using
// crypto/rand, falling back to 0 (no jitter, not a security boundary —
// only used to avoid a thundering herd of synchronized retries) if the
// source is unavailable.
func randFraction() float64 {
	const precision = 1 << 53 // fits exactly in a float64 mantissa
	n, err := rand.Int(rand.Reader, big.NewInt(precision))
	if err != nil {
		return 0
	}
	return float64(n.Int64()) / float64(precision)
}
