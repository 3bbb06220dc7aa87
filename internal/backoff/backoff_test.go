package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponential_AttemptZero(t *testing.T) {
	s := NewExponential(100*time.Millisecond, time.Second, 0)
	assert.Equal(t, 100*time.Millisecond, s.Delay(0))
}

func TestExponential_Growth(t *testing.T) {
	s := NewExponential(100*time.Millisecond, time.Hour, 0)
	assert.Equal(t, 100*time.Millisecond, s.Delay(0))
	assert.Equal(t, 200*time.Millisecond, s.Delay(1))
	assert.Equal(t, 400*time.Millisecond, s.Delay(2))
}

func TestExponential_ClampedToMax(t *testing.T) {
	s := NewExponential(time.Second, 3*time.Second, 0)
	assert.Equal(t, 3*time.Second, s.Delay(10))
}

func TestLinear_Growth(t *testing.T) {
	s := NewLinear(100*time.Millisecond, time.Hour, 0)
	assert.Equal(t, 100*time.Millisecond, s.Delay(0))
	assert.Equal(t, 200*time.Millisecond, s.Delay(1))
	assert.Equal(t, 300*time.Millisecond, s.Delay(2))
}

func TestLogarithmic_Growth(t *testing.T) {
	s := NewLogarithmic(100*time.Millisecond, time.Hour, 0)
	// log2(0+2) == 1
	assert.Equal(t, 100*time.Millisecond, s.Delay(0))
	assert.Less(t, s.Delay(0), s.Delay(1))
}

func TestJitter_StaysWithinBounds(t *testing.T) {
	s := NewExponential(100*time.Millisecond, time.Hour, 0.5)
	for i := 0; i < 50; i++ {
		d := s.Delay(2) // base expectation: 400ms +/- 50%
		assert.GreaterOrEqual(t, d, 200*time.Millisecond)
		assert.LessOrEqual(t, d, 600*time.Millisecond)
	}
}

func TestNegativeAttempt_TreatedAsZero(t *testing.T) {
	s := NewExponential(100*time.Millisecond, time.Hour, 0)
	assert.Equal(t, s.Delay(0), s.Delay(-5))
}
