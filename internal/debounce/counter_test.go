package debounce

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCounter_RejectsNonPositive(t *testing.T) {
	for _, th := range []int{0, -5} {
		_, err := NewCounter(th)
		assert.ErrorIs(t, err, ErrInvalidThreshold)
	}
}

func TestCounter_CountsOnlyPresentTicks(t *testing.T) {
	c, err := NewCounter(10)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	want := 0
	for i := 0; i < 500; i++ {
		present := rng.Intn(3) == 0
		if present {
			want++
		}
		c.Tick(present)
		if i == 250 {
			c.Reset()
			want = 0
		}
		assert.Equal(t, want, c.Count())
	}
}

func TestCounter_DueIsStrictlyAboveThreshold(t *testing.T) {
	c, err := NewCounter(60)
	require.NoError(t, err)

	for i := 0; i < 60; i++ {
		c.Tick(true)
	}
	assert.False(t, c.Due(), "count == threshold is not due")

	c.Tick(false)
	assert.False(t, c.Due(), "absent ticks are no-ops")

	c.Tick(true)
	assert.True(t, c.Due(), "count == threshold+1 is due")

	c.Reset()
	assert.False(t, c.Due())
	assert.Equal(t, 0, c.Count())
}

func TestCounter_Progress(t *testing.T) {
	tests := []struct {
		threshold int
		ticks     int
		want      int
	}{
		{60, 0, 0},
		{60, 30, 50},
		{60, 1, 2},
		{3, 1, 33},
		{3, 2, 67},
		{60, 60, 100},
		{60, 90, 100},
	}
	for _, tt := range tests {
		c, err := NewCounter(tt.threshold)
		require.NoError(t, err)
		for i := 0; i < tt.ticks; i++ {
			c.Tick(true)
		}
		assert.Equal(t, tt.want, c.Progress(), "threshold=%d ticks=%d", tt.threshold, tt.ticks)
	}
}
