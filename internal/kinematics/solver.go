// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package kinematics computes the passive joint angles of the Reachy Mini head
// linkage from the active motor angles and the head pose.
package kinematics

import (
	"github.com/golang/geo/r3"

	"github.com/relabs-tech/reachy_twin/internal/calibration"
	"github.com/relabs-tech/reachy_twin/internal/geometry"
)

const (
	// ActiveCount is the length of the active joint vector: body yaw then stewart_1..6.
	ActiveCount = 7
	// PassiveCount is the length of the passive joint vector: seven (x, y, z) triples.
	PassiveCount = 3 * calibration.PassiveJointCount
	// PoseCount is the length of a row-major 4x4 head pose.
	PoseCount = 16
)

// Solver is a closed-form passive joint solver bound to one calibration table.
// It holds no mutable state and may be shared between goroutines.
type Solver struct {
	cal         calibration.Calibration
	corrections [calibration.PassiveJointCount]geometry.Mat3
	motorRot    [calibration.MotorCount]geometry.Mat3
	motorTrans  [calibration.MotorCount]r3.Vector
	xl330Rot    geometry.Mat3
}

// NewSolver precomputes the per-joint correction rotations for cal.
func NewSolver(cal calibration.Calibration) *Solver {
	s := &Solver{cal: cal, xl330Rot: cal.HeadToXL330.Rotation()}
	for i, o := range cal.PassiveOffsets {
		s.corrections[i] = geometry.RotationZYX(o[0], o[1], o[2])
	}
	for i, m := range cal.Motors {
		s.motorRot[i] = m.WorldToMotor.Rotation()
		s.motorTrans[i] = m.WorldToMotor.Translation()
	}
	return s
}

// Calibration returns the table the solver was built with.
func (s *Solver) Calibration() calibration.Calibration {
	return s.cal
}

// Solve returns the 21 passive joint angles for the given active joints and head pose.
//
// active is [body_yaw, stewart_1, ..., stewart_6] in radians and pose is a row-major
// 4x4 head transform. The result is all zeros when either input is too short.
// Each rod is solved independently; the XL330 joint is derived from the last rod.
func (s *Solver) Solve(active, pose []float64) []float64 {
	out := make([]float64, PassiveCount)
	if len(active) < ActiveCount || len(pose) < PoseCount {
		return out
	}

	head, _ := geometry.Mat4FromSlice(pose)
	head[11] += s.cal.HeadZOffset

	// undo body yaw so the platform is expressed in the motor base frame
	yawInv := geometry.RotationZ(active[0]).Transpose()
	headRot := yawInv.Mul(head.Rotation())
	headTrans := yawInv.MulVec(head.Translation())

	arm := r3.Vector{X: s.cal.MotorArmLength}
	lastWorldServo := geometry.Identity3()
	lastServoBranch := geometry.Identity3()

	for i := 0; i < calibration.MotorCount; i++ {
		branchWorld := headRot.MulVec(s.cal.Motors[i].BranchPosition).Add(headTrans)

		servo := geometry.RotationZ(active[i+1])
		armTip := s.motorRot[i].MulVec(servo.MulVec(arm)).Add(s.motorTrans[i])

		worldServo := s.motorRot[i].Mul(servo).Mul(s.corrections[i])
		inServo := worldServo.Transpose().MulVec(branchWorld.Sub(armTip))

		servoBranch := geometry.AlignVectors(s.cal.RodDirections[i], geometry.Normalize(inServo))
		out[3*i], out[3*i+1], out[3*i+2] = geometry.EulerFromRotationXYZ(servoBranch)

		if i == calibration.MotorCount-1 {
			lastWorldServo = worldServo
			lastServoBranch = servoBranch
		}
	}

	headXL330 := headRot.Mul(s.xl330Rot)
	rod := lastWorldServo.Mul(lastServoBranch).Mul(s.corrections[calibration.PassiveJointCount-1])
	dof := rod.Transpose().Mul(headXL330)
	out[18], out[19], out[20] = geometry.EulerFromRotationXYZ(dof)

	return out
}

var defaultSolver = NewSolver(calibration.ReachyMini())

// SolvePassiveJoints solves with the production Reachy Mini calibration.
func SolvePassiveJoints(active, pose []float64) []float64 {
	return defaultSolver.Solve(active, pose)
}
