package calibration

import (
	"encoding/json"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/relabs-tech/reachy_twin/internal/geometry"
)

// fileFormat is the on-disk JSON layout. Every field is optional; absent fields keep
// the production value.
type fileFormat struct {
	HeadZOffset    *float64       `json:"head_z_offset,omitempty"`
	MotorArmLength *float64       `json:"motor_arm_length,omitempty"`
	HeadToXL330    []float64      `json:"t_head_xl_330,omitempty"`
	PassiveOffsets [][3]float64   `json:"passive_orientation_offset,omitempty"`
	RodDirections  [][3]float64   `json:"stewart_rod_dir_in_passive_frame,omitempty"`
	Motors         []motorSection `json:"motors,omitempty"`
}

type motorSection struct {
	Name           string     `json:"name"`
	BranchPosition [3]float64 `json:"branch_position"`
	WorldToMotor   []float64  `json:"t_world_motor"`
}

// LoadFile reads a calibration override file on top of the production table.
func LoadFile(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Calibration{}, errors.Wrapf(err, "read calibration %s", path)
	}
	return Parse(data)
}

// Parse decodes a calibration override document on top of the production table.
func Parse(data []byte) (Calibration, error) {
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return Calibration{}, errors.Wrap(err, "decode calibration")
	}

	cal := ReachyMini()
	if f.HeadZOffset != nil {
		cal.HeadZOffset = *f.HeadZOffset
	}
	if f.MotorArmLength != nil {
		cal.MotorArmLength = *f.MotorArmLength
	}
	if f.HeadToXL330 != nil {
		m, ok := geometry.Mat4FromSlice(f.HeadToXL330)
		if !ok || len(f.HeadToXL330) != 16 {
			return Calibration{}, errors.Errorf("t_head_xl_330 needs 16 values, got %d", len(f.HeadToXL330))
		}
		cal.HeadToXL330 = m
	}
	if f.PassiveOffsets != nil {
		if len(f.PassiveOffsets) != PassiveJointCount {
			return Calibration{}, errors.Errorf("passive_orientation_offset needs %d entries, got %d",
				PassiveJointCount, len(f.PassiveOffsets))
		}
		copy(cal.PassiveOffsets[:], f.PassiveOffsets)
	}
	if f.RodDirections != nil {
		if len(f.RodDirections) != MotorCount {
			return Calibration{}, errors.Errorf("stewart_rod_dir_in_passive_frame needs %d entries, got %d",
				MotorCount, len(f.RodDirections))
		}
		for i, d := range f.RodDirections {
			cal.RodDirections[i] = r3.Vector{X: d[0], Y: d[1], Z: d[2]}
		}
	}
	if f.Motors != nil {
		if len(f.Motors) != MotorCount {
			return Calibration{}, errors.Errorf("motors needs %d entries, got %d", MotorCount, len(f.Motors))
		}
		for i, ms := range f.Motors {
			m, ok := geometry.Mat4FromSlice(ms.WorldToMotor)
			if !ok || len(ms.WorldToMotor) != 16 {
				return Calibration{}, errors.Errorf("motor %d: t_world_motor needs 16 values, got %d", i, len(ms.WorldToMotor))
			}
			name := ms.Name
			if name == "" {
				name = cal.Motors[i].Name
			}
			cal.Motors[i] = Motor{
				Name:           name,
				BranchPosition: r3.Vector{X: ms.BranchPosition[0], Y: ms.BranchPosition[1], Z: ms.BranchPosition[2]},
				WorldToMotor:   m,
			}
		}
	}

	if err := cal.Validate(); err != nil {
		return Calibration{}, errors.Wrap(err, "invalid calibration")
	}
	return cal, nil
}

// Load returns the calibration at path, or the production table when path is empty
// or the file cannot be used. fromFile reports which one was returned.
func Load(path string, logger *zap.SugaredLogger) (cal Calibration, fromFile bool) {
	if path == "" {
		logger.Debug("calibration: no file configured, using production table")
		return ReachyMini(), false
	}

	cal, err := LoadFile(path)
	if err != nil {
		logger.Warnf("calibration: failed to load %s: %v, using production table", path, err)
		return ReachyMini(), false
	}

	logger.Infof("calibration: loaded %s", path)
	return cal, true
}
