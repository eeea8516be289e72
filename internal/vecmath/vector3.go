// Package vecmath provides the bounds-checked vectors used for every
// position, velocity and direction quantity in the orbital engine.
package vecmath

import (
	"fmt"
	"math"
)

// Vector3 is a 3-component real vector.
type Vector3 struct {
	X, Y, Z float64
}

// New3 returns the vector (x, y, z).
func New3(x, y, z float64) Vector3 {
	return Vector3{X: x, Y: y, Z: z}
}

// At returns component i. It panics if i is not 0, 1 or 2.
func (v Vector3) At(i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	}
	panic(fmt.Sprintf("vecmath: Vector3 index %d out of range [0,3)", i))
}

// Set assigns component i. It panics if i is not 0, 1 or 2.
func (v *Vector3) Set(i int, x float64) {
	switch i {
	case 0:
		v.X = x
	case 1:
		v.Y = x
	case 2:
		v.Z = x
	default:
		panic(fmt.Sprintf("vecmath: Vector3 index %d out of range [0,3)", i))
	}
}

func (v Vector3) Add(u Vector3) Vector3 {
	return Vector3{v.X + u.X, v.Y + u.Y, v.Z + u.Z}
}

func (v Vector3) Sub(u Vector3) Vector3 {
	return Vector3{v.X - u.X, v.Y - u.Y, v.Z - u.Z}
}

func (v Vector3) Scale(k float64) Vector3 {
	return Vector3{v.X * k, v.Y * k, v.Z * k}
}

func (v Vector3) Dot(u Vector3) float64 {
	return v.X*u.X + v.Y*u.Y + v.Z*u.Z
}

// Magnitude returns the Euclidean norm.
func (v Vector3) Magnitude() float64 {
	return math.Sqrt(v.Dot(v))
}

// AngleBetween returns the angle between v and u in radians, in [0, π].
// The cosine is clamped to [-1, 1]. A zero-length operand yields NaN.
func (v Vector3) AngleBetween(u Vector3) float64 {
	return math.Acos(clampUnit(v.Dot(u) / (v.Magnitude() * u.Magnitude())))
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vector3) IsFinite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Array returns the components as an array.
func (v Vector3) Array() [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func (v Vector3) String() string {
	return fmt.Sprintf("[%g, %g, %g]", v.X, v.Y, v.Z)
}

func clampUnit(c float64) float64 {
	if c > 1 {
		return 1
	}
	if c < -1 {
		return -1
	}
	return c
}
