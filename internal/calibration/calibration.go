// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration holds the mechanical description of the Reachy Mini head
// platform: motor placement, linkage geometry and the passive joint offsets taken
// from the robot's design files.
package calibration

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/relabs-tech/reachy_twin/internal/geometry"
)

// MotorCount is the number of Stewart platform motors.
const MotorCount = 6

// PassiveJointCount is the number of 3-DOF passive joints (six rods plus the XL330 link).
const PassiveJointCount = 7

// unitTolerance is how far a direction or rotation row may be from unit length.
const unitTolerance = 1e-4

// Motor describes one Stewart platform motor.
type Motor struct {
	Name string
	// BranchPosition is the rod attachment point on the platform, in the head frame.
	BranchPosition r3.Vector
	// WorldToMotor is the motor's pose in the world frame.
	WorldToMotor geometry.Mat4
}

// Calibration is the full mechanical table used by the passive-joint solver.
// Values are treated as immutable once handed to a solver.
type Calibration struct {
	HeadZOffset    float64
	MotorArmLength float64
	// HeadToXL330 is the XL330 frame pose in the head frame.
	HeadToXL330 geometry.Mat4
	// PassiveOffsets holds (roll, pitch, yaw) corrections applied per passive joint.
	PassiveOffsets [PassiveJointCount][3]float64
	// RodDirections is each rod's direction expressed in its passive joint frame.
	RodDirections [MotorCount]r3.Vector
	Motors        [MotorCount]Motor
}

// ReachyMini returns the calibration of the production Reachy Mini head.
func ReachyMini() Calibration {
	return Calibration{
		HeadZOffset:    0.177,
		MotorArmLength: 0.04,
		HeadToXL330: geometry.Mat4{
			0.4822, -0.7068, -0.5177, 0.0206,
			0.1766, -0.5003, 0.8476, -0.0218,
			-0.8581, -0.5001, -0.1164, 0.0,
			0.0, 0.0, 0.0, 1.0,
		},
		PassiveOffsets: [PassiveJointCount][3]float64{
			{-0.13754, -0.0882156, 2.10349},
			{-math.Pi, 5.37396e-16, -math.Pi},
			{0.373569, 0.0882156, -1.0381},
			{-0.0860846, 0.0882156, 1.0381},
			{0.123977, 0.0882156, -1.0381},
			{3.0613, 0.0882156, 1.0381},
			{math.Pi, 2.10388e-17, 4.15523e-17},
		},
		RodDirections: [MotorCount]r3.Vector{
			{X: 1.0, Y: 0.0, Z: 0.0},
			{X: 0.50606941, Y: -0.85796418, Z: -0.08826792},
			{X: -1.0, Y: 0.0, Z: 0.0},
			{X: -1.0, Y: 0.0, Z: 0.0},
			{X: -1.0, Y: 0.0, Z: 0.0},
			{X: -1.0, Y: 0.0, Z: 0.0},
		},
		Motors: [MotorCount]Motor{
			{
				Name:           "stewart_1",
				BranchPosition: r3.Vector{X: 0.020648178337122566, Y: 0.021763723638894568, Z: 1.0345743467476964e-07},
				WorldToMotor: geometry.Mat4{
					0.8660247915798899, 0.0000044901959360, -0.5000010603477224, 0.0269905781109381,
					-0.5000010603626028, 0.0000031810770988, -0.8660247915770969, 0.0267489144601032,
					-0.0000022980790772, 0.9999999999848599, 0.0000049999943606, 0.0766332540902687,
					0.0, 0.0, 0.0, 1.0,
				},
			},
			{
				Name:           "stewart_2",
				BranchPosition: r3.Vector{X: 0.00852381571767217, Y: 0.028763668526131346, Z: 1.183437210727778e-07},
				WorldToMotor: geometry.Mat4{
					-0.8660211183436273, -0.0000044902196459, -0.5000074225075980, 0.0096699703080478,
					0.5000074225224782, -0.0000031810634097, -0.8660211183408341, 0.0367490037948058,
					0.0000022980697230, -0.9999999999848597, 0.0000050000112432, 0.0766333000521544,
					0.0, 0.0, 0.0, 1.0,
				},
			},
			{
				Name:           "stewart_3",
				BranchPosition: r3.Vector{X: -0.029172011376922807, Y: 0.0069999429399361995, Z: 4.0290270064691214e-08},
				WorldToMotor: geometry.Mat4{
					0.0000063267948970, -0.0000010196153098, 0.9999999999794665, -0.0366606982562266,
					0.9999999999799865, 0.0000000000135060, -0.0000063267948965, 0.0100001160862987,
					-0.0000000000070551, 0.9999999999994809, 0.0000010196153103, 0.0766334229944826,
					0.0, 0.0, 0.0, 1.0,
				},
			},
			{
				Name:           "stewart_4",
				BranchPosition: r3.Vector{X: -0.029172040355214434, Y: -0.0069999960097160766, Z: -3.1608172912367394e-08},
				WorldToMotor: geometry.Mat4{
					-0.0000036732050704, 0.0000010196153103, 0.9999999999927344, -0.0366607717202358,
					-0.9999999999932538, -0.0000000000036776, -0.0000036732050700, -0.0099998653384376,
					-0.0000000000000677, -0.9999999999994809, 0.0000010196153103, 0.0766334229944823,
					0.0, 0.0, 0.0, 1.0,
				},
			},
			{
				Name:           "stewart_5",
				BranchPosition: r3.Vector{X: 0.008523809101930114, Y: -0.028763713010385224, Z: -1.4344916837716326e-07},
				WorldToMotor: geometry.Mat4{
					-0.8660284647694136, 0.0000044901728834, -0.4999946981608615, 0.0096697448698383,
					-0.4999946981757425, -0.0000031811099295, 0.8660284647666202, -0.0367490491228644,
					0.0000022980794298, 0.9999999999848597, 0.0000049999943840, 0.0766333000520353,
					0.0, 0.0, 0.0, 1.0,
				},
			},
			{
				Name:           "stewart_6",
				BranchPosition: r3.Vector{X: 0.020648186722822436, Y: -0.02176369606185343, Z: -8.957920105689965e-08},
				WorldToMotor: geometry.Mat4{
					0.8660247915798903, -0.0000044901962204, -0.5000010603477218, 0.0269903370664035,
					0.5000010603626028, 0.0000031810964559, 0.8660247915770964, -0.0267491384573748,
					-0.0000022980696448, -0.9999999999848597, 0.0000050000112666, 0.0766332540903862,
					0.0, 0.0, 0.0, 1.0,
				},
			},
		},
	}
}

// Validate checks that the table describes a physically meaningful platform.
func (c Calibration) Validate() error {
	if c.MotorArmLength <= 0 {
		return errors.Errorf("motor arm length must be positive, got %g", c.MotorArmLength)
	}
	if c.HeadZOffset < 0 {
		return errors.Errorf("head z offset must not be negative, got %g", c.HeadZOffset)
	}
	for i, d := range c.RodDirections {
		if math.Abs(d.Norm()-1) > unitTolerance {
			return errors.Errorf("rod direction %d is not unit length (|d|=%g)", i, d.Norm())
		}
	}
	for _, m := range c.Motors {
		r := m.WorldToMotor.Rotation()
		if !r.Mul(r.Transpose()).ApproxEqual(geometry.Identity3(), unitTolerance) {
			return errors.Errorf("motor %s: world transform rotation is not orthonormal", m.Name)
		}
	}
	return nil
}
