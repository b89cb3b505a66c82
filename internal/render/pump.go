// Package render turns robot state into joint frames at a fixed rate, independent of
// how fast telemetry arrives.
package render

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/relabs-tech/reachy_twin/internal/joints"
	"github.com/relabs-tech/reachy_twin/internal/robot"
)

// Frame is one applied set of joint values.
type Frame struct {
	Version       uint64        `json:"version"`
	Timestamp     time.Time     `json:"timestamp"`
	Joints        joints.Values `json:"joints"`
	HeadPose      []float64     `json:"head_pose,omitempty"`
	PassiveSolved bool          `json:"passive_solved"`
}

// Source provides the latest robot state.
type Source interface {
	Snapshot() robot.State
}

// Sink receives every applied frame. Sinks run on the pump goroutine and must not block.
type Sink func(Frame)

// Pump applies the latest state to its sinks on every tick, skipping ticks where the
// data version has not moved since the last apply.
type Pump struct {
	clk            clock.Clock
	interval       time.Duration
	src            Source
	passiveEnabled bool
	logger         *zap.SugaredLogger

	mu          sync.Mutex
	sinks       []Sink
	lastVersion uint64
	applied     int
	latest      Frame
	haveLatest  bool
}

// NewPump creates a pump ticking rateHz times per second.
func NewPump(clk clock.Clock, rateHz int, src Source, passiveEnabled bool, logger *zap.SugaredLogger) *Pump {
	if clk == nil {
		clk = clock.New()
	}
	if rateHz <= 0 {
		rateHz = 20
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Pump{
		clk:            clk,
		interval:       time.Second / time.Duration(rateHz),
		src:            src,
		passiveEnabled: passiveEnabled,
		logger:         logger,
	}
}

// Interval returns the tick period.
func (p *Pump) Interval() time.Duration {
	return p.interval
}

// AddSink registers a frame consumer.
func (p *Pump) AddSink(s Sink) {
	p.mu.Lock()
	p.sinks = append(p.sinks, s)
	p.mu.Unlock()
}

// Step runs one tick and reports whether a frame was applied.
func (p *Pump) Step() bool {
	st := p.src.Snapshot()

	p.mu.Lock()
	if st.Version == p.lastVersion {
		p.mu.Unlock()
		return false
	}
	p.lastVersion = st.Version

	values := joints.Values{}
	joints.Apply(values.Model(), st, p.passiveEnabled)
	frame := Frame{
		Version:       st.Version,
		Timestamp:     p.clk.Now(),
		Joints:        values,
		HeadPose:      st.HeadPose,
		PassiveSolved: st.PassiveSolved,
	}
	p.latest = frame
	p.haveLatest = true
	p.applied++
	sinks := append([]Sink(nil), p.sinks...)
	p.mu.Unlock()

	for _, s := range sinks {
		s(frame)
	}
	return true
}

// Run ticks until ctx is done.
func (p *Pump) Run(ctx context.Context) error {
	ticker := p.clk.Ticker(p.interval)
	defer ticker.Stop()

	p.logger.Infof("render: applying at most every %v", p.interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Step()
		}
	}
}

// Applied returns how many frames have been applied.
func (p *Pump) Applied() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.applied
}

// Latest returns the most recently applied frame.
func (p *Pump) Latest() (Frame, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest, p.haveLatest
}
