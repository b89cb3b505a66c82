package kinematics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/reachy_twin/internal/calibration"
)

// Reference solutions for the production calibration. Poses are row-major with
// rotation Rz(yaw)·Ry(pitch)·Rx(roll).
var referenceSolutions = []struct {
	name    string
	active  []float64
	pose    []float64
	passive []float64
}{
	{
		"neutral",
		[]float64{0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0},
		[]float64{
			1.0, 0.0, 0.0, 0.0,
			0.0, 1.0, 0.0, 0.0,
			0.0, 0.0, 1.0, 0.0,
			0.0, 0.0, 0.0, 1.0,
		},
		[]float64{
			0.0022508906587587678, 0.03629496233051216, -0.12386106830822957,
			-0.02224262525174719, 0.0013675278854692703, -0.1273488283637497,
			-0.003600829697116666, -0.06419884844988696, -0.11202168986469824,
			0.0018793787292470225, -0.029895175327873034, 0.12555670742511116,
			-0.002155146385163785, -0.0346164749660826, -0.12434280600061871,
			0.0018360717798012135, 0.02916688996388218, -0.12572633445049552,
			0.0017849532847185072, 0.029169905473277732, -0.12569216854978996,
		},
	},
	{
		"yawed right, pitched up",
		[]float64{0.3, 0.1, -0.2, 0.15, -0.05, 0.25, -0.1},
		[]float64{
			0.9446090901443596, -0.3082964245777437, -0.11254768504604902, 0.005,
			0.29220183329241467, 0.9461549437949041, -0.13931586755647624, -0.003,
			0.14943813247359922, 0.0987123949919223, 0.9838313410528055, 0.01,
			0.0, 0.0, 0.0, 1.0,
		},
		[]float64{
			0.00663071445017653, 0.043428016321849644, -0.3029796904549344,
			-0.011196009262828443, 0.02520725237915931, -0.31213604278750773,
			-0.008464832932418362, -0.07148998957551635, -0.23561614106083967,
			-0.00017157770699437048, 0.0015222648315944601, 0.22447682413593015,
			-0.02015322161430716, -0.11049988352222646, -0.3604516474295425,
			0.011701255405634034, 0.090015759288935, -0.25836293265877885,
			0.016292012272828223, 0.08096393385505445, -0.3389562016834823,
		},
	},
	{
		"yawed left, pitched down",
		[]float64{-0.5, 0.4, 0.35, -0.3, 0.2, -0.25, 0.1},
		[]float64{
			0.892427438242549, 0.33638429986502144, 0.3006973067324692, -0.01,
			-0.3773122691048194, 0.9218416227997268, 0.08856339004881554, 0.008,
			-0.24740395925452294, -0.19249318242027594, 0.9495986813738215, -0.005,
			0.0, 0.0, 0.0, 1.0,
		},
		[]float64{
			-0.0025115665600738803, -0.018888421390159216, -0.26437863316326016,
			0.0420267512635897, 0.020639435216459858, 0.05420239805771992,
			0.006182888102944173, -0.07581380982400661, 0.16266990114082236,
			-0.0019387164546176522, -0.11111068623384321, -0.03485760122308499,
			-0.0007880772817169164, 0.04834100328406711, 0.03259568609231613,
			0.0008190203165384936, -0.06543668751944388, 0.025022213168523398,
			-0.15367156295696335, -0.10134104830600225, 0.211567604573693,
		},
	},
}

func TestSolveMatchesReferenceSolutions(t *testing.T) {
	s := NewSolver(calibration.ReachyMini())
	for _, tc := range referenceSolutions {
		t.Run(tc.name, func(t *testing.T) {
			got := s.Solve(tc.active, tc.pose)
			assert.InDeltaSlice(t, tc.passive, got, 1e-12)
			assert.InDeltaSlice(t, tc.passive, SolvePassiveJoints(tc.active, tc.pose), 1e-12)
		})
	}
}
