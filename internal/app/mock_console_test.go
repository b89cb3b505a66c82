package app

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/reachy_twin/internal/motion"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFormatSample(t *testing.T) {
	s := motion.Sample{Active: [7]float64{0.5}, Antennas: [2]float64{0.25, -0.25}}
	s.Pose.Z = 0.002
	line := formatSample(s, make([]float64, 21))
	assert.True(t, strings.HasPrefix(line, "YAW=  0.50"))
	assert.Contains(t, line, "Z=   2.0mm")
	assert.Contains(t, line, "ANT=  0.25/ -0.25")
}

func TestRunMockConsole(t *testing.T) {
	clk := clock.NewMock()
	var out syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunMockConsole(ctx, clk, &out) }()

	require.Eventually(t, func() bool {
		clk.Add(100 * time.Millisecond)
		return strings.Count(out.String(), "\n") >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Contains(t, out.String(), "YAW=")
}
