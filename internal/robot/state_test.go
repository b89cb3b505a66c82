package robot

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/reachy_twin/internal/calibration"
	"github.com/relabs-tech/reachy_twin/internal/feed"
	"github.com/relabs-tech/reachy_twin/internal/kinematics"
)

var identity = []float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

func newStore(opts Options) (*Store, *clock.Mock) {
	clk := clock.NewMock()
	return NewStore(kinematics.NewSolver(calibration.ReachyMini()), opts, clk), clk
}

func TestMergeSolvesPassiveFromPose(t *testing.T) {
	s, clk := newStore(Options{SolvePassive: true, UseHeadPose: true})
	active := []float64{0, 0.1, -0.1, 0.1, -0.1, 0.1, -0.1}

	v := s.Merge(feed.Message{Active: active})
	assert.Equal(t, uint64(1), v)
	assert.Nil(t, s.Snapshot().Passive)

	clk.Add(time.Second)
	v = s.Merge(feed.Message{HeadPose: identity})
	assert.Equal(t, uint64(2), v)

	st := s.Snapshot()
	require.Len(t, st.Passive, kinematics.PassiveCount)
	assert.True(t, st.PassiveSolved)
	assert.Equal(t, kinematics.SolvePassiveJoints(active, identity), st.Passive)
	assert.Equal(t, clk.Now(), st.UpdatedAt)
}

func TestMergePrefersReceivedPassive(t *testing.T) {
	s, _ := newStore(Options{SolvePassive: true, UseHeadPose: true})
	passive := make([]float64, 21)
	passive[3] = 0.5

	s.Merge(feed.Message{Active: make([]float64, 7), HeadPose: identity, Passive: passive})
	st := s.Snapshot()
	assert.Equal(t, passive, st.Passive)
	assert.False(t, st.PassiveSolved)
}

func TestMergeWithoutSolving(t *testing.T) {
	s, _ := newStore(Options{SolvePassive: false, UseHeadPose: true})
	s.Merge(feed.Message{Active: make([]float64, 7), HeadPose: identity})
	st := s.Snapshot()
	assert.Nil(t, st.Passive)
	assert.Equal(t, identity, st.HeadPose)
}

func TestMergeDropsPoseWhenDisabled(t *testing.T) {
	s, _ := newStore(Options{SolvePassive: true, UseHeadPose: false})
	v := s.Merge(feed.Message{HeadPose: identity})
	assert.Equal(t, uint64(0), v)
	assert.Nil(t, s.Snapshot().HeadPose)
}

func TestMergeEmptyMessageKeepsVersion(t *testing.T) {
	s, _ := newStore(Options{})
	s.Merge(feed.Message{Antennas: []float64{0.1, 0.2}})
	assert.Equal(t, uint64(1), s.Merge(feed.Message{}))
	assert.Equal(t, uint64(1), s.Version())
}

func TestMergeKeepsUntouchedFields(t *testing.T) {
	s, _ := newStore(Options{})
	s.Merge(feed.Message{Antennas: []float64{0.1, 0.2}})
	s.Merge(feed.Message{Active: []float64{1, 2, 3, 4, 5, 6, 7}})
	st := s.Snapshot()
	assert.Equal(t, []float64{0.1, 0.2}, st.Antennas)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7}, st.Active)
}

func TestSnapshotIsACopy(t *testing.T) {
	s, _ := newStore(Options{})
	in := []float64{0.1, 0.2}
	s.Merge(feed.Message{Antennas: in})
	in[0] = 9

	st := s.Snapshot()
	st.Antennas[1] = 9
	assert.Equal(t, []float64{0.1, 0.2}, s.Snapshot().Antennas)
}

func TestNilSolverDisablesSolving(t *testing.T) {
	s := NewStore(nil, Options{SolvePassive: true, UseHeadPose: true}, nil)
	s.Merge(feed.Message{Active: make([]float64, 7), HeadPose: identity})
	assert.Nil(t, s.Snapshot().Passive)
}
