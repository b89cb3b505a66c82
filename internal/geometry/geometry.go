// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package geometry holds the small fixed-size matrix and vector helpers used by the
// passive-joint solver. Vectors are r3.Vector; matrices are row-major arrays.
package geometry

import (
	"math"

	"github.com/golang/geo/r3"
)

const (
	// normalizeEpsilon is the length below which Normalize returns the zero vector.
	normalizeEpsilon = 1e-5

	// gimbalThreshold bounds |R[0][2]| for the regular Euler extraction branch.
	gimbalThreshold = 0.99999

	// alignThreshold bounds the dot product for the parallel / antiparallel branches.
	alignThreshold = 0.99999

	// perpThreshold is the minimum length of the first candidate perpendicular axis.
	perpThreshold = 0.001
)

// Mat3 is a 3x3 matrix, row-major.
type Mat3 [3][3]float64

// Mat4 is a 4x4 homogeneous transform stored row-major as 16 floats.
type Mat4 [16]float64

// Identity3 returns the 3x3 identity matrix.
func Identity3() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Identity4 returns the 4x4 identity transform.
func Identity4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns a·b.
func (a Mat3) Mul(b Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = a[i][0]*b[0][j] + a[i][1]*b[1][j] + a[i][2]*b[2][j]
		}
	}
	return r
}

// Transpose returns mᵀ.
func (m Mat3) Transpose() Mat3 {
	return Mat3{
		{m[0][0], m[1][0], m[2][0]},
		{m[0][1], m[1][1], m[2][1]},
		{m[0][2], m[1][2], m[2][2]},
	}
}

// MulVec returns m·v.
func (m Mat3) MulVec(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Add returns a+b.
func (a Mat3) Add(b Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = a[i][j] + b[i][j]
		}
	}
	return r
}

// Scale returns s·m.
func (m Mat3) Scale(s float64) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[i][j] * s
		}
	}
	return r
}

// Rotation returns the upper-left 3x3 block.
func (m Mat4) Rotation() Mat3 {
	return Mat3{
		{m[0], m[1], m[2]},
		{m[4], m[5], m[6]},
		{m[8], m[9], m[10]},
	}
}

// Translation returns the translation column.
func (m Mat4) Translation() r3.Vector {
	return r3.Vector{X: m[3], Y: m[7], Z: m[11]}
}

// Compose builds a homogeneous transform from a rotation and a translation.
func Compose(r Mat3, t r3.Vector) Mat4 {
	return Mat4{
		r[0][0], r[0][1], r[0][2], t.X,
		r[1][0], r[1][1], r[1][2], t.Y,
		r[2][0], r[2][1], r[2][2], t.Z,
		0, 0, 0, 1,
	}
}

// Mat4FromSlice copies the first 16 values of s. ok is false when s is too short.
func Mat4FromSlice(s []float64) (m Mat4, ok bool) {
	if len(s) < 16 {
		return m, false
	}
	copy(m[:], s[:16])
	return m, true
}

// Normalize returns v scaled to unit length, or the zero vector when |v| < 1e-5.
func Normalize(v r3.Vector) r3.Vector {
	n := v.Norm()
	if n < normalizeEpsilon {
		return r3.Vector{}
	}
	return r3.Vector{X: v.X / n, Y: v.Y / n, Z: v.Z / n}
}

// Skew returns the cross-product matrix K such that K·w = v×w.
func Skew(v r3.Vector) Mat3 {
	return Mat3{
		{0, -v.Z, v.Y},
		{v.Z, 0, -v.X},
		{-v.Y, v.X, 0},
	}
}

// RotationZ is a rotation of angle radians about the Z axis.
func RotationZ(angle float64) Mat3 {
	c, s := math.Cos(angle), math.Sin(angle)
	return Mat3{
		{c, -s, 0},
		{s, c, 0},
		{0, 0, 1},
	}
}

// RotationZYX returns Rz(yaw)·Ry(pitch)·Rx(roll).
func RotationZYX(roll, pitch, yaw float64) Mat3 {
	cr, sr := math.Cos(roll), math.Sin(roll)
	cp, sp := math.Cos(pitch), math.Sin(pitch)
	cy, sy := math.Cos(yaw), math.Sin(yaw)
	return Mat3{
		{cy * cp, cy*sp*sr - sy*cr, cy*sp*cr + sy*sr},
		{sy * cp, sy*sp*sr + cy*cr, sy*sp*cr - cy*sr},
		{-sp, cp * sr, cp * cr},
	}
}

// EulerFromRotationZYX extracts (roll, pitch, yaw) from Rz(yaw)·Ry(pitch)·Rx(roll).
func EulerFromRotationZYX(r Mat3) (roll, pitch, yaw float64) {
	sp := math.Max(-1, math.Min(1, -r[2][0]))
	pitch = math.Asin(sp)
	roll = math.Atan2(r[2][1], r[2][2])
	yaw = math.Atan2(r[1][0], r[0][0])
	return roll, pitch, yaw
}

// RotationFromEulerXYZ returns Rx(x)·Ry(y)·Rz(z), the inverse of EulerFromRotationXYZ
// away from gimbal lock.
func RotationFromEulerXYZ(x, y, z float64) Mat3 {
	cx, sx := math.Cos(x), math.Sin(x)
	cy, sy := math.Cos(y), math.Sin(y)
	cz, sz := math.Cos(z), math.Sin(z)
	return Mat3{
		{cy * cz, -cy * sz, sy},
		{cx*sz + sx*sy*cz, cx*cz - sx*sy*sz, -sx * cy},
		{sx*sz - cx*sy*cz, sx*cz + cx*sy*sz, cx * cy},
	}
}

// EulerFromRotationXYZ extracts (x, y, z) with R[0][2] = sin(y).
//
// At gimbal lock (|R[0][2]| >= 0.99999) z is pinned to 0 and the whole remaining
// rotation is attributed to x.
func EulerFromRotationXYZ(r Mat3) (x, y, z float64) {
	sy := r[0][2]
	if math.Abs(sy) < gimbalThreshold {
		x = math.Atan2(-r[1][2], r[2][2])
		y = math.Asin(sy)
		z = math.Atan2(-r[0][1], r[0][0])
		return x, y, z
	}

	x = math.Atan2(r[2][1], r[1][1])
	if sy > 0 {
		y = math.Pi / 2
	} else {
		y = -math.Pi / 2
	}
	return x, y, 0
}

// AlignVectors returns the rotation taking the direction of from onto the direction of to.
func AlignVectors(from, to r3.Vector) Mat3 {
	f := Normalize(from)
	t := Normalize(to)
	c := f.Dot(t)

	if c > alignThreshold {
		return Identity3()
	}

	if c < -alignThreshold {
		perp := r3.Vector{X: 1}.Cross(f)
		if perp.Norm() < perpThreshold {
			perp = r3.Vector{Y: 1}.Cross(f)
		}
		k := Skew(Normalize(perp))
		// I + 2K² is a half turn about the unit axis.
		return Identity3().Add(k.Mul(k).Scale(2))
	}

	axis := f.Cross(t)
	s := axis.Norm()
	if s == 0 {
		// only reachable with a zero-length input
		return Identity3()
	}
	k := Skew(axis)
	factor := (1 - c) / (s * s)
	return Identity3().Add(k).Add(k.Mul(k).Scale(factor))
}

// ApproxEqual reports whether a and b agree element-wise within tol.
func (a Mat3) ApproxEqual(b Mat3, tol float64) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(a[i][j]-b[i][j]) > tol {
				return false
			}
		}
	}
	return true
}
