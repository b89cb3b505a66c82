// Package robot keeps the latest known joint state of the mirrored robot.
package robot

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/reachy_twin/internal/feed"
	"github.com/relabs-tech/reachy_twin/internal/kinematics"
)

// State is a snapshot of the robot. Nil slices are not known yet.
type State struct {
	Active   []float64 `json:"head_joints"`
	Antennas []float64 `json:"antennas_position"`
	Passive  []float64 `json:"passive_joints"`
	HeadPose []float64 `json:"head_pose"`
	// PassiveSolved is true when Passive was computed locally rather than received.
	PassiveSolved bool      `json:"passive_solved"`
	Version       uint64    `json:"version"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Options controls how incoming messages are merged.
type Options struct {
	// SolvePassive computes passive joints from the head pose when the daemon
	// does not send them.
	SolvePassive bool
	// UseHeadPose keeps head poses from the feed; when false they are dropped.
	UseHeadPose bool
}

// Store holds the latest State. Every merged message bumps the data version.
type Store struct {
	mu     sync.RWMutex
	state  State
	solver *kinematics.Solver
	opts   Options
	clk    clock.Clock
}

// NewStore creates an empty store. solver may be nil when SolvePassive is off.
func NewStore(solver *kinematics.Solver, opts Options, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.New()
	}
	if solver == nil {
		opts.SolvePassive = false
	}
	return &Store{solver: solver, opts: opts, clk: clk}
}

// Merge folds msg into the state and returns the new data version. Messages with
// no decodable field are ignored and leave the version unchanged.
func (s *Store) Merge(msg feed.Message) uint64 {
	if !s.opts.UseHeadPose {
		msg.HeadPose = nil
	}
	if msg.Empty() {
		return s.Version()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.Active != nil {
		s.state.Active = copySlice(msg.Active)
	}
	if msg.Antennas != nil {
		s.state.Antennas = copySlice(msg.Antennas)
	}
	if msg.HeadPose != nil {
		s.state.HeadPose = copySlice(msg.HeadPose)
	}

	switch {
	case msg.Passive != nil:
		s.state.Passive = copySlice(msg.Passive)
		s.state.PassiveSolved = false
	case msg.HeadPose != nil && s.state.Active != nil && s.opts.SolvePassive:
		s.state.Passive = s.solver.Solve(s.state.Active, s.state.HeadPose)
		s.state.PassiveSolved = true
	}

	s.state.Version++
	s.state.UpdatedAt = s.clk.Now()
	return s.state.Version
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state
	st.Active = copySlice(st.Active)
	st.Antennas = copySlice(st.Antennas)
	st.Passive = copySlice(st.Passive)
	st.HeadPose = copySlice(st.HeadPose)
	return st
}

// Version returns the current data version.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Version
}

func copySlice(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
