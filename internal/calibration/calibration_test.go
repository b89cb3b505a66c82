package calibration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestReachyMiniIsValid(t *testing.T) {
	cal := ReachyMini()
	require.NoError(t, cal.Validate())
	assert.Equal(t, 0.177, cal.HeadZOffset)
	assert.Equal(t, 0.04, cal.MotorArmLength)
	for i, m := range cal.Motors {
		assert.NotEmpty(t, m.Name, "motor %d", i)
		assert.Equal(t, 1.0, m.WorldToMotor[15])
	}
}

func TestValidateRejects(t *testing.T) {
	t.Run("arm length", func(t *testing.T) {
		cal := ReachyMini()
		cal.MotorArmLength = 0
		assert.Error(t, cal.Validate())
	})
	t.Run("rod direction", func(t *testing.T) {
		cal := ReachyMini()
		cal.RodDirections[2].X = -2
		assert.Error(t, cal.Validate())
	})
	t.Run("motor rotation", func(t *testing.T) {
		cal := ReachyMini()
		cal.Motors[4].WorldToMotor[0] = 3
		assert.Error(t, cal.Validate())
	})
}

func TestParseOverrides(t *testing.T) {
	cal, err := Parse([]byte(`{"head_z_offset": 0.2, "motor_arm_length": 0.05}`))
	require.NoError(t, err)
	assert.Equal(t, 0.2, cal.HeadZOffset)
	assert.Equal(t, 0.05, cal.MotorArmLength)
	assert.Equal(t, ReachyMini().Motors, cal.Motors)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"bad json":       `{`,
		"short xl330":    `{"t_head_xl_330": [1, 2, 3]}`,
		"short offsets":  `{"passive_orientation_offset": [[0, 0, 0]]}`,
		"short rods":     `{"stewart_rod_dir_in_passive_frame": [[1, 0, 0]]}`,
		"short motors":   `{"motors": [{"name": "m", "branch_position": [0, 0, 0], "t_world_motor": []}]}`,
		"invalid result": `{"motor_arm_length": -1}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFallback(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()

	cal, fromFile := Load("", logger)
	assert.False(t, fromFile)
	assert.Equal(t, ReachyMini(), cal)

	cal, fromFile = Load(filepath.Join(t.TempDir(), "missing.json"), logger)
	assert.False(t, fromFile)
	assert.Equal(t, ReachyMini(), cal)

	path := filepath.Join(t.TempDir(), "cal.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"head_z_offset": 0.18}`), 0o644))
	cal, fromFile = Load(path, logger)
	assert.True(t, fromFile)
	assert.Equal(t, 0.18, cal.HeadZOffset)
}
