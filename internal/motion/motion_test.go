package motion

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockSourceStartsAtRest(t *testing.T) {
	clk := clock.NewMock()
	src := NewMockSource(clk)

	s, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.BodyYaw())
	assert.Equal(t, 0.0, s.Pose.Roll)
	assert.InDelta(t, 0.1, s.Pose.Pitch, 1e-12)
	assert.Equal(t, [2]float64{0, 0}, s.Antennas)
}

func TestMockSourceMoves(t *testing.T) {
	clk := clock.NewMock()
	src := NewMockSource(clk)

	first, err := src.Next()
	require.NoError(t, err)
	clk.Add(700 * time.Millisecond)
	second, err := src.Next()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, second.Pose.Yaw, second.BodyYaw())
	assert.Equal(t, -second.Antennas[0], second.Antennas[1])
	for _, v := range second.Active {
		assert.LessOrEqual(t, v, 0.4)
		assert.GreaterOrEqual(t, v, -0.4)
	}
}
