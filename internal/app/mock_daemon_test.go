package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relabs-tech/reachy_twin/internal/calibration"
	"github.com/relabs-tech/reachy_twin/internal/feed"
	"github.com/relabs-tech/reachy_twin/internal/kinematics"
	"github.com/relabs-tech/reachy_twin/internal/motion"
)

func newTestDaemon(t *testing.T) (*MockDaemon, *httptest.Server) {
	t.Helper()
	clk := clock.New()
	d := NewMockDaemon(motion.NewMockSource(clk), kinematics.NewSolver(calibration.ReachyMini()), clk, zap.NewNop().Sugar())
	srv := httptest.NewServer(d.Handler())
	t.Cleanup(srv.Close)
	return d, srv
}

func TestParseStreamOptions(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  streamOptions
	}{
		{"defaults", "", streamOptions{frequency: 20}},
		{"frequency", "frequency=50", streamOptions{frequency: 50}},
		{"bad frequency", "frequency=abc", streamOptions{frequency: 20}},
		{"zero frequency", "frequency=0", streamOptions{frequency: 20}},
		{"capped frequency", "frequency=5000", streamOptions{frequency: 200}},
		{
			"everything",
			"frequency=10&with_passive_joints=true&with_head_pose=true&use_pose_matrix=true",
			streamOptions{frequency: 10, passive: true, headPose: true, matrix: true},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := url.ParseQuery(tc.query)
			require.NoError(t, err)
			assert.Equal(t, tc.want, parseStreamOptions(q))
		})
	}
}

func TestMockDaemonFullState(t *testing.T) {
	_, srv := newTestDaemon(t)

	resp, err := http.Get(srv.URL + "/api/state/full?with_head_joints=true&with_head_pose=true")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	msg := feed.ParseStateMessage(body)
	assert.Len(t, msg.Active, feed.ActiveLen)
	assert.Len(t, msg.Antennas, feed.AntennaLen)
	assert.Len(t, msg.HeadPose, feed.HeadPoseLen)
	assert.Nil(t, msg.Passive)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "enabled", doc["control_mode"])
	assert.Contains(t, doc, "body_yaw")
}

func TestMockDaemonStream(t *testing.T) {
	_, srv := newTestDaemon(t)

	u := "ws" + strings.TrimPrefix(srv.URL, "http") +
		"/api/state/ws/full?frequency=100&with_head_joints=true&with_antenna_positions=true" +
		"&with_passive_joints=true&with_head_pose=true&use_pose_matrix=true"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	msg := feed.ParseStateMessage(data)
	assert.Len(t, msg.Active, feed.ActiveLen)
	assert.Len(t, msg.Antennas, feed.AntennaLen)
	assert.Len(t, msg.Passive, feed.PassiveLen)
	assert.Len(t, msg.HeadPose, feed.HeadPoseLen)
	assert.Contains(t, string(data), `"m":`)
}

func TestStreamMessageOptions(t *testing.T) {
	d, _ := newTestDaemon(t)
	s, err := motion.NewMockSource(clock.NewMock()).Next()
	require.NoError(t, err)

	bare := d.streamMessage(s, streamOptions{frequency: 20})
	assert.NotContains(t, bare, "head_pose")
	assert.NotContains(t, bare, "passive_joints")

	record := d.streamMessage(s, streamOptions{frequency: 20, headPose: true})
	assert.Equal(t, s.Pose, record["head_pose"])

	solved := d.streamMessage(s, streamOptions{frequency: 20, passive: true})
	passive, ok := solved["passive_joints"].([]float64)
	require.True(t, ok)
	assert.Equal(t, kinematics.SolvePassiveJoints(s.Active[:], feed.PoseRecordToMatrix(s.Pose)), passive)
}
