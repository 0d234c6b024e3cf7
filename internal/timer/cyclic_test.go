package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newClock() *fakeClock {
	// Aligned to a UTC hour so every period in [1, 3600] starts at zero.
	return &fakeClock{t: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}
}

func TestNewCyclic_RejectsInvalidPeriod(t *testing.T) {
	for _, p := range []int{-1, 0, 3601} {
		_, err := NewCyclic(p, nil)
		assert.ErrorIs(t, err, ErrInvalidPeriod, "period %d", p)
	}
	for _, p := range []int{1, 60, 3600} {
		_, err := NewCyclic(p, nil)
		assert.NoError(t, err, "period %d", p)
	}
}

func TestProgress_CeilPercentage(t *testing.T) {
	clk := newClock()
	c, err := NewCyclic(600, clk.Now)
	require.NoError(t, err)

	p, err := c.Progress()
	require.NoError(t, err)
	assert.Equal(t, 0, p)

	clk.Advance(300 * time.Second)
	p, _ = c.Progress()
	assert.Equal(t, 50, p)

	clk.Advance(time.Second)
	p, _ = c.Progress()
	assert.Equal(t, 51, p, "301/600 rounds up")

	clk.Advance(120 * time.Second)
	p, _ = c.Progress()
	assert.Equal(t, 71, p)
}

func TestProgress_RolloverFreezesUntilRestart(t *testing.T) {
	clk := newClock()
	c, err := NewCyclic(60, clk.Now)
	require.NoError(t, err)

	clk.Advance(50 * time.Second)
	p, _ := c.Progress()
	assert.Equal(t, 84, p)
	assert.False(t, c.Hit())

	clk.Advance(20 * time.Second) // 10s into the next period
	p, _ = c.Progress()
	assert.Equal(t, 100, p)
	assert.True(t, c.Hit())

	// The snapshot stays frozen no matter how the clock moves.
	for i := 0; i < 5; i++ {
		clk.Advance(7 * time.Second)
		p, _ = c.Progress()
		assert.Equal(t, 100, p)
	}

	require.NoError(t, c.Restart())
	assert.False(t, c.Hit())
	p, _ = c.Progress()
	assert.Less(t, p, 100)
	assert.False(t, c.Hit(), "restart must not cause an immediate second hit")
}

func TestRestart_FailsWhenNotArmed(t *testing.T) {
	c, err := NewCyclic(60, newClock().Now)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, c.Restart(), ErrNotArmed)
	}
}

func TestProgress_OneRolloverPerBoundary(t *testing.T) {
	periods := []int{1, 45, 60, 90, 600, 3600}
	for _, period := range periods {
		clk := newClock()
		c, err := NewCyclic(period, clk.Now)
		require.NoError(t, err)

		step := time.Duration(period) * time.Second / 8
		hits := 0
		last := -1
		// Three periods plus change, sampled eight times per period.
		for i := 0; i < 8*3+3; i++ {
			clk.Advance(step)
			p, err := c.Progress()
			require.NoError(t, err)
			require.GreaterOrEqual(t, p, 0)
			require.LessOrEqual(t, p, 100)
			if c.Hit() {
				hits++
				require.NoError(t, c.Restart())
				last = -1
				continue
			}
			assert.GreaterOrEqual(t, p, last, "period %d: progress must not decrease within a period", period)
			last = p
		}
		assert.Equal(t, 3, hits, "period %d", period)
	}
}

func TestProgress_SubSecondPeriodResolution(t *testing.T) {
	clk := newClock()
	c, err := NewCyclic(1, clk.Now)
	require.NoError(t, err)

	clk.Advance(500 * time.Millisecond)
	p, _ := c.Progress()
	assert.Equal(t, 50, p)

	clk.Advance(600 * time.Millisecond)
	p, _ = c.Progress()
	assert.Equal(t, 100, p)
	assert.True(t, c.Hit())
}
