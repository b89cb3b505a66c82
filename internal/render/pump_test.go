package render

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/relabs-tech/reachy_twin/internal/feed"
	"github.com/relabs-tech/reachy_twin/internal/robot"
)

func setup(t *testing.T) (*robot.Store, *Pump, *clock.Mock) {
	clk := clock.NewMock()
	store := robot.NewStore(nil, robot.Options{}, clk)
	pump := NewPump(clk, 20, store, true, zaptest.NewLogger(t).Sugar())
	return store, pump, clk
}

func TestStepSkipsUnchangedVersion(t *testing.T) {
	store, pump, _ := setup(t)

	var frames []Frame
	pump.AddSink(func(f Frame) { frames = append(frames, f) })

	assert.False(t, pump.Step(), "empty store")

	store.Merge(feed.Message{Antennas: []float64{0.1, 0.2}})
	assert.True(t, pump.Step())
	for i := 0; i < 5; i++ {
		assert.False(t, pump.Step())
	}
	assert.Equal(t, 1, pump.Applied())

	store.Merge(feed.Message{Antennas: []float64{0.3, 0.4}})
	assert.True(t, pump.Step())
	assert.False(t, pump.Step())
	require.Len(t, frames, 2)
	assert.Equal(t, uint64(2), frames[1].Version)
	assert.Equal(t, -0.4, frames[1].Joints["left_antenna"])
}

func TestStepAppliesOnlyLatest(t *testing.T) {
	store, pump, _ := setup(t)
	var frames []Frame
	pump.AddSink(func(f Frame) { frames = append(frames, f) })

	for i := 0; i < 10; i++ {
		store.Merge(feed.Message{Antennas: []float64{float64(i), 0}})
	}
	assert.True(t, pump.Step())
	require.Len(t, frames, 1)
	assert.Equal(t, uint64(10), frames[0].Version)
	assert.Equal(t, -9.0, frames[0].Joints["right_antenna"])

	latest, ok := pump.Latest()
	require.True(t, ok)
	assert.Equal(t, frames[0], latest)
}

func TestRunTicksOnClock(t *testing.T) {
	store, pump, clk := setup(t)
	assert.Equal(t, 50*time.Millisecond, pump.Interval())

	var mu sync.Mutex
	count := 0
	pump.AddSink(func(Frame) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	applied := func() int {
		mu.Lock()
		defer mu.Unlock()
		return count
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pump.Run(ctx) }()

	store.Merge(feed.Message{Active: []float64{0, 0, 0, 0, 0, 0, 0}})
	require.Eventually(t, func() bool {
		clk.Add(50 * time.Millisecond)
		return applied() == 1
	}, time.Second, time.Millisecond)

	clk.Add(200 * time.Millisecond)
	assert.Equal(t, 1, applied())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("pump did not stop")
	}
}

func TestNewPumpDefaults(t *testing.T) {
	p := NewPump(nil, 0, robot.NewStore(nil, robot.Options{}, nil), false, nil)
	assert.Equal(t, 50*time.Millisecond, p.Interval())
	_, ok := p.Latest()
	assert.False(t, ok)
}
