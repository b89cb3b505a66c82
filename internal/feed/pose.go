package feed

import (
	"encoding/json"

	"github.com/golang/geo/r3"

	"github.com/relabs-tech/reachy_twin/internal/geometry"
)

// PoseRecord is a 6-DOF head pose: translation in meters, angles in radians.
type PoseRecord struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

var poseKeys = []string{"x", "y", "z", "roll", "pitch", "yaw"}

// PoseRecordToMatrix returns the row-major 4x4 transform of p, with rotation
// Rz(yaw)·Ry(pitch)·Rx(roll).
func PoseRecordToMatrix(p PoseRecord) []float64 {
	m := geometry.Compose(
		geometry.RotationZYX(p.Roll, p.Pitch, p.Yaw),
		r3.Vector{X: p.X, Y: p.Y, Z: p.Z},
	)
	return m[:]
}

// PoseToMatrix converts a decoded JSON object (map[string]any) holding pose keys.
// Missing keys default to zero. It returns nil for anything that is not an object
// or when a present key is not a number.
func PoseToMatrix(raw any) []float64 {
	obj, ok := raw.(map[string]any)
	if !ok || obj == nil {
		return nil
	}

	var vals [6]float64
	for i, k := range poseKeys {
		v, present := obj[k]
		if !present || v == nil {
			continue
		}
		f, ok := number(v)
		if !ok {
			return nil
		}
		vals[i] = f
	}
	return PoseRecordToMatrix(PoseRecord{
		X: vals[0], Y: vals[1], Z: vals[2],
		Roll: vals[3], Pitch: vals[4], Yaw: vals[5],
	})
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func hasAnyPoseKey(obj map[string]json.RawMessage) bool {
	for _, k := range poseKeys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}
