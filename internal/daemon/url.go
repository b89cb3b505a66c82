// Package daemon connects to the Reachy Mini daemon's state API, either as a
// websocket stream or by polling the full-state HTTP endpoint.
package daemon

import (
	"fmt"
	"strings"
)

// Endpoint describes where the daemon is and what the stream should carry.
type Endpoint struct {
	Host string
	Port int
	// Frequency is the stream rate requested from the daemon, in Hz.
	Frequency int
	// PassiveJoints asks the daemon to include its own passive joint solution.
	PassiveJoints bool
	// HeadPose asks for the head pose as a 4x4 matrix.
	HeadPose bool
}

// StreamURL returns the websocket URL of the full-state stream.
func StreamURL(e Endpoint) string {
	params := []string{
		fmt.Sprintf("frequency=%d", e.Frequency),
		"with_head_joints=true",
		"with_antenna_positions=true",
	}
	if e.PassiveJoints {
		params = append(params, "with_passive_joints=true")
	}
	if e.HeadPose {
		params = append(params, "with_head_pose=true", "use_pose_matrix=true")
	}
	return fmt.Sprintf("ws://%s:%d/api/state/ws/full?%s", e.Host, e.Port, strings.Join(params, "&"))
}

// FullStateURL returns the HTTP URL of the one-shot full-state endpoint.
func FullStateURL(e Endpoint) string {
	params := []string{
		"with_control_mode=true",
		"with_head_joints=true",
		"with_body_yaw=true",
		"with_antenna_positions=true",
		"with_head_pose=true",
	}
	return fmt.Sprintf("http://%s:%d/api/state/full?%s", e.Host, e.Port, strings.Join(params, "&"))
}
