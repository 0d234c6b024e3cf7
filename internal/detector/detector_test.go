package detector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samples(t *testing.T, s Source, n int) []bool {
	t.Helper()
	out := make([]bool, n)
	for i := range out {
		v, err := s.Present(context.Background())
		require.NoError(t, err)
		out[i] = v
	}
	return out
}

func TestStatic(t *testing.T) {
	assert.Equal(t, []bool{true, true}, samples(t, Static(true), 2))
	assert.Equal(t, []bool{false}, samples(t, Static(false), 1))
}

func TestScripted(t *testing.T) {
	s := NewScripted(true, false, true)
	assert.Equal(t, 3, s.Remaining())
	assert.Equal(t, []bool{true, false, true, false, false}, samples(t, s, 5))
	assert.Equal(t, 0, s.Remaining())
}

func TestRepeat(t *testing.T) {
	assert.Equal(t, []bool{true, true, true}, Repeat(true, 3))
	assert.Empty(t, Repeat(false, 0))
}

func TestPush_LatchConsumedBySample(t *testing.T) {
	p := NewPush()
	assert.Equal(t, []bool{false}, samples(t, p, 1))

	p.Report(true)
	assert.Equal(t, []bool{true, false}, samples(t, p, 2))

	p.Report(true)
	p.Report(false)
	assert.Equal(t, []bool{false}, samples(t, p, 1))
	assert.Equal(t, uint64(3), p.Reports())
}

func TestCascadeConfig_Validate(t *testing.T) {
	assert.NoError(t, CascadeConfig{CascadePath: "face.xml"}.Validate())
	assert.NoError(t, CascadeConfig{CascadePath: "face.xml", Resolution: 720}.Validate())
	assert.Error(t, CascadeConfig{CascadePath: "face.xml", Resolution: 100}.Validate())
	assert.ErrorIs(t, CascadeConfig{}.Validate(), ErrUnavailable)
	assert.NoError(t, CascadeConfig{CascadePath: "face.xml", FPS: 15, Brightness: 50, RecordPath: "out.mp4"}.Validate())
	assert.Error(t, CascadeConfig{CascadePath: "face.xml", FPS: -1}.Validate())
	assert.Error(t, CascadeConfig{CascadePath: "face.xml", Brightness: 101}.Validate())
	assert.Error(t, CascadeConfig{CascadePath: "face.xml", Brightness: -5}.Validate())
}
