// Package backoff implements the three named retry-delay strategies used
// by the control-plane client and other retrying callers.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Strategy computes the delay before a given retry attempt (0-indexed).
type Strategy interface {
	Delay(attempt int) time.Duration
}

// Config parameterizes a strategy: base delay, ceiling, and a symmetric
// jitter factor in [0, 1) applied as delay *= 1 + U(-jitter, jitter).
type Config struct {
	Base      time.Duration
	MaxDelay  time.Duration
	Jitter    float64
	Algorithm Algorithm
}

// Algorithm names the delay curve.
type Algorithm string

const (
	Exponential Algorithm = "exponential"
	Linear      Algorithm = "linear"
	Logarithmic Algorithm = "logarithmic"
)

// New builds a Strategy from Config.
func New(cfg Config) Strategy {
	return &configStrategy{cfg: cfg}
}

type configStrategy struct {
	cfg Config
}

func (s *configStrategy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	base := float64(s.cfg.Base)
	var raw float64

	switch s.cfg.Algorithm {
	case Linear:
		raw = base * (1 + float64(attempt))
	case Logarithmic:
		raw = base * math.Log2(float64(attempt)+2)
	default: // Exponential
		raw = base * math.Pow(2, float64(attempt))
	}

	if s.cfg.Jitter > 0 {
		// symmetric jitter: raw *= 1 + U(-jitter, jitter)
		factor := 1 + (rand.Float64()*2-1)*s.cfg.Jitter
		raw *= factor
	}

	delay := time.Duration(raw)
	if s.cfg.MaxDelay > 0 && delay > s.cfg.MaxDelay {
		delay = s.cfg.MaxDelay
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

// NewExponential returns a Strategy computing base·2^attempt, bounded by
// maxDelay, with the given symmetric jitter factor.
func NewExponential(base, maxDelay time.Duration, jitter float64) Strategy {
	return New(Config{Base: base, MaxDelay: maxDelay, Jitter: jitter, Algorithm: Exponential})
}

// NewLinear returns a Strategy computing base·(1+attempt).
func NewLinear(base, maxDelay time.Duration, jitter float64) Strategy {
	return New(Config{Base: base, MaxDelay: maxDelay, Jitter: jitter, Algorithm: Linear})
}

// NewLogarithmic returns a Strategy computing base·log2(attempt+2).
func NewLogarithmic(base, maxDelay time.Duration, jitter float64) Strategy {
	return New(Config{Base: base, MaxDelay: maxDelay, Jitter: jitter, Algorithm: Logarithmic})
}
