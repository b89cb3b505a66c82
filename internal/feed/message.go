// Package feed decodes robot daemon telemetry into a canonical state message.
//
// Every field is decoded independently: a field with the wrong shape or length is
// reported as absent (nil) without affecting the others.
package feed

import (
	"encoding/json"
)

// Expected field lengths.
const (
	ActiveLen   = 7
	AntennaLen  = 2
	PassiveLen  = 21
	HeadPoseLen = 16
)

// Message is one decoded telemetry message. A nil field was absent or malformed.
type Message struct {
	// Active is [body_yaw, stewart_1, ..., stewart_6] in radians.
	Active []float64
	// Antennas is [left, right] in radians, as reported by the daemon.
	Antennas []float64
	// Passive holds 21 solved passive joint angles when the daemon provides them.
	Passive []float64
	// HeadPose is a row-major 4x4 head transform.
	HeadPose []float64
}

// Empty reports whether no field could be decoded.
func (m Message) Empty() bool {
	return m.Active == nil && m.Antennas == nil && m.Passive == nil && m.HeadPose == nil
}

// wireMessage keeps fields raw so each can be decoded on its own.
type wireMessage struct {
	HeadJoints json.RawMessage `json:"head_joints"`
	Antennas   json.RawMessage `json:"antennas_position"`
	Passive    json.RawMessage `json:"passive_joints"`
	HeadPose   json.RawMessage `json:"head_pose"`
}

// ParseStateMessage decodes a daemon state message. It never fails: invalid JSON or
// a non-object document yields an empty Message.
func ParseStateMessage(raw []byte) Message {
	var w wireMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		return Message{}
	}
	return Message{
		Active:   decodeSequence(w.HeadJoints, ActiveLen, "values"),
		Antennas: decodeSequence(w.Antennas, AntennaLen, "values"),
		Passive:  decodeSequence(w.Passive, PassiveLen, "values"),
		HeadPose: decodeHeadPose(w.HeadPose),
	}
}

// decodeSequence accepts a bare numeric array, or an object carrying one under the
// first key of keys that holds a numeric array. The result must have exactly n elements.
func decodeSequence(raw json.RawMessage, n int, keys ...string) []float64 {
	if isNull(raw) {
		return nil
	}

	var values []float64
	if err := json.Unmarshal(raw, &values); err == nil {
		return exactly(values, n)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	for _, k := range keys {
		inner, ok := obj[k]
		if !ok || isNull(inner) {
			continue
		}
		var inVals []float64
		if err := json.Unmarshal(inner, &inVals); err != nil {
			continue
		}
		return exactly(inVals, n)
	}
	return nil
}

// decodeHeadPose accepts a 16-value matrix (bare, under "m" or under "values") or
// a {x, y, z, roll, pitch, yaw} record.
func decodeHeadPose(raw json.RawMessage) []float64 {
	if isNull(raw) {
		return nil
	}
	if m := decodeSequence(raw, HeadPoseLen, "m", "values"); m != nil {
		return m
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	if _, ok := obj["m"]; ok {
		return nil
	}
	if _, ok := obj["values"]; ok {
		return nil
	}
	if !hasAnyPoseKey(obj) {
		return nil
	}

	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil
	}
	return PoseToMatrix(rec)
}

func exactly(values []float64, n int) []float64 {
	if len(values) != n {
		return nil
	}
	return values
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
