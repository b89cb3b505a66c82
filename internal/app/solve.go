package app

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/relabs-tech/reachy_twin/internal/calibration"
	"github.com/relabs-tech/reachy_twin/internal/feed"
	"github.com/relabs-tech/reachy_twin/internal/joints"
	"github.com/relabs-tech/reachy_twin/internal/kinematics"
)

// SolveOptions controls RunSolve.
type SolveOptions struct {
	CalibrationFile string
	JSON            bool
}

// RunSolve reads one daemon state message from in and writes its 21 passive joint
// values to out, one named joint per line or as a JSON object.
func RunSolve(in io.Reader, out io.Writer, opts SolveOptions, logger *zap.SugaredLogger) error {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	raw, err := io.ReadAll(in)
	if err != nil {
		return errors.Wrap(err, "read state message")
	}

	msg := feed.ParseStateMessage(raw)
	if len(msg.Active) != feed.ActiveLen {
		return errors.Errorf("state message needs %d head_joints", feed.ActiveLen)
	}
	if len(msg.HeadPose) != feed.HeadPoseLen {
		return errors.New("state message needs a head_pose")
	}

	cal, _ := calibration.Load(opts.CalibrationFile, logger)
	passive := kinematics.NewSolver(cal).Solve(msg.Active, msg.HeadPose)

	values := make(joints.Values, len(passive))
	joints.ApplyPassive(values.Model(), passive)

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(map[string]any{
			"passive_joints": passive,
			"joints":         values,
		}), "write result")
	}

	for i, v := range passive {
		name := (joints.Passive1X + joints.ID(i)).String()
		if _, err := fmt.Fprintf(out, "%-12s %10.6f\n", name, v); err != nil {
			return errors.Wrap(err, "write result")
		}
	}
	return nil
}
