// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package link tracks the health of the telemetry channel to the robot daemon and
// decides when to retry after a failure.
package link

import (
	"math"
	"time"
)

// State is the connection state of the telemetry channel.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name. Unknown names decode as Disconnected.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "connected":
		*s = Connected
	case "connecting":
		*s = Connecting
	default:
		*s = Disconnected
	}
	return nil
}

// Policy bounds and paces reconnect attempts.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Growth      float64
	MaxDelay    time.Duration
}

// DefaultPolicy is 3 attempts starting at 1s, doubling, capped at 10s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Growth:      2,
		MaxDelay:    10 * time.Second,
	}
}

// Delay returns the wait before retry number attempt (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(p.BaseDelay) * math.Pow(p.Growth, float64(attempt))
	if math.IsInf(d, 0) || math.IsNaN(d) || d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Status is the user-facing indicator for a State.
type Status struct {
	State State  `json:"state"`
	Color string `json:"color"`
	Label string `json:"label"`
}

// StatusFor maps a state to its indicator. Unknown states read as offline.
func StatusFor(s State) Status {
	switch s {
	case Connected:
		return Status{State: s, Color: "#4caf50", Label: "Connected"}
	case Connecting:
		return Status{State: s, Color: "#ff9800", Label: "Reconnecting"}
	default:
		return Status{State: Disconnected, Color: "#f44336", Label: "Offline"}
	}
}
