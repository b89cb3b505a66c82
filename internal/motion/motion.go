// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package motion produces robot states over time for the mock daemon.
package motion

import (
	"math"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/reachy_twin/internal/feed"
)

// Sample is one robot state in daemon units (meters, radians).
type Sample struct {
	Active   [7]float64
	Antennas [2]float64
	Pose     feed.PoseRecord
}

// BodyYaw returns the body yaw, which is also Active[0].
func (s Sample) BodyYaw() float64 {
	return s.Active[0]
}

// Source is anything that can provide samples over time.
type Source interface {
	Next() (Sample, error)
}

type mockSource struct {
	clk   clock.Clock
	start float64
}

// NewMockSource creates a source that sways the head and antennas smoothly.
func NewMockSource(clk clock.Clock) Source {
	if clk == nil {
		clk = clock.New()
	}
	return &mockSource{clk: clk, start: seconds(clk)}
}

func seconds(clk clock.Clock) float64 {
	return float64(clk.Now().UnixNano()) / 1e9
}

func (m *mockSource) Next() (Sample, error) {
	elapsed := seconds(m.clk) - m.start

	yaw := 0.3 * math.Sin(elapsed*0.5)
	var s Sample
	s.Pose = feed.PoseRecord{
		Z:     0.005 * math.Sin(elapsed*1.3),
		Roll:  0.15 * math.Sin(elapsed),
		Pitch: 0.1 * math.Cos(elapsed*0.7),
		Yaw:   yaw,
	}
	s.Active[0] = yaw
	for i := 1; i < 7; i++ {
		phase := float64(i) * math.Pi / 3
		s.Active[i] = 0.4 * math.Sin(elapsed+phase)
	}
	s.Antennas[0] = 0.8 * math.Sin(elapsed*2)
	s.Antennas[1] = -0.8 * math.Sin(elapsed*2)
	return s, nil
}
