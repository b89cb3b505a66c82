// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package joints names the Reachy Mini URDF joints and applies robot state onto a
// renderer model that may expose only a subset of them.
package joints

import (
	"fmt"

	"github.com/relabs-tech/reachy_twin/internal/robot"
)

// ID identifies one URDF joint.
type ID int

const (
	YawBody ID = iota
	Stewart1
	Stewart2
	Stewart3
	Stewart4
	Stewart5
	Stewart6
	Passive1X
	Passive1Y
	Passive1Z
	Passive2X
	Passive2Y
	Passive2Z
	Passive3X
	Passive3Y
	Passive3Z
	Passive4X
	Passive4Y
	Passive4Z
	Passive5X
	Passive5Y
	Passive5Z
	Passive6X
	Passive6Y
	Passive6Z
	Passive7X
	Passive7Y
	Passive7Z
	LeftAntenna
	RightAntenna

	count
)

var names = func() [count]string {
	var n [count]string
	n[YawBody] = "yaw_body"
	for i := 0; i < 6; i++ {
		n[Stewart1+ID(i)] = fmt.Sprintf("stewart_%d", i+1)
	}
	axes := [3]string{"x", "y", "z"}
	for i := 0; i < 21; i++ {
		n[Passive1X+ID(i)] = fmt.Sprintf("passive_%d_%s", i/3+1, axes[i%3])
	}
	n[LeftAntenna] = "left_antenna"
	n[RightAntenna] = "right_antenna"
	return n
}()

// String returns the URDF joint name.
func (id ID) String() string {
	if id < 0 || id >= count {
		return fmt.Sprintf("joint(%d)", int(id))
	}
	return names[id]
}

// All returns every joint ID in URDF order.
func All() []ID {
	ids := make([]ID, count)
	for i := range ids {
		ids[i] = ID(i)
	}
	return ids
}

// Setter assigns a joint value in radians.
type Setter func(value float64)

// Model is the set of joints a renderer exposes. Joints missing from the model are
// skipped silently.
type Model map[ID]Setter

// set applies v to id if the model has it and reports whether it did.
func (m Model) set(id ID, v float64) bool {
	fn, ok := m[id]
	if !ok || fn == nil {
		return false
	}
	fn(v)
	return true
}

// ApplyActive sets yaw_body and stewart_1..6 from [body_yaw, stewart_1, ..., stewart_6].
func ApplyActive(m Model, active []float64) int {
	if len(active) < 7 {
		return 0
	}
	n := 0
	for i := 0; i < 7; i++ {
		if m.set(YawBody+ID(i), active[i]) {
			n++
		}
	}
	return n
}

// ApplyAntennas sets the antennas from the daemon's [left, right] pair. The URDF
// antenna frames are mirrored and inverted relative to the daemon.
func ApplyAntennas(m Model, antennas []float64) int {
	if len(antennas) < 2 {
		return 0
	}
	n := 0
	if m.set(LeftAntenna, -antennas[1]) {
		n++
	}
	if m.set(RightAntenna, -antennas[0]) {
		n++
	}
	return n
}

// ApplyPassive sets passive_1_x..passive_7_z.
func ApplyPassive(m Model, passive []float64) int {
	if len(passive) < 21 {
		return 0
	}
	n := 0
	for i := 0; i < 21; i++ {
		if m.set(Passive1X+ID(i), passive[i]) {
			n++
		}
	}
	return n
}

// Apply pushes every known part of st onto m and returns how many joints were set.
func Apply(m Model, st robot.State, passiveEnabled bool) int {
	n := ApplyActive(m, st.Active)
	if passiveEnabled {
		n += ApplyPassive(m, st.Passive)
	}
	n += ApplyAntennas(m, st.Antennas)
	return n
}

// Values records joint values by URDF name.
type Values map[string]float64

// Model returns setters writing into v for ids, or for every joint when ids is empty.
func (v Values) Model(ids ...ID) Model {
	if len(ids) == 0 {
		ids = All()
	}
	m := make(Model, len(ids))
	for _, id := range ids {
		name := id.String()
		m[id] = func(value float64) { v[name] = value }
	}
	return m
}
