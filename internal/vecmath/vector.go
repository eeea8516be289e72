package vecmath

import (
	"errors"
	"fmt"
	"math"
)

// ErrIncompatibleDimensions is returned when an operation combines vectors of
// different lengths.
var ErrIncompatibleDimensions = errors.New("vecmath: incompatible dimensions")

// Vector is a resizable, bounds-checked real vector. It is used where a
// 4-element quantity (position plus magnitude) is carried around.
type Vector struct {
	c []float64
}

// NewVector returns a zero vector of length n.
func NewVector(n int) *Vector {
	if n < 0 {
		panic(fmt.Sprintf("vecmath: negative vector length %d", n))
	}
	return &Vector{c: make([]float64, n)}
}

// VectorOf returns a vector holding a copy of xs.
func VectorOf(xs ...float64) *Vector {
	c := make([]float64, len(xs))
	copy(c, xs)
	return &Vector{c: c}
}

// Len returns the number of components.
func (v *Vector) Len() int { return len(v.c) }

func (v *Vector) check(i int) {
	if i < 0 || i >= len(v.c) {
		panic(fmt.Sprintf("vecmath: index %d out of range [0,%d)", i, len(v.c)))
	}
}

// At returns component i, panicking when out of range.
func (v *Vector) At(i int) float64 {
	v.check(i)
	return v.c[i]
}

// Set assigns component i, panicking when out of range.
func (v *Vector) Set(i int, x float64) {
	v.check(i)
	v.c[i] = x
}

// Resize changes the length, keeping existing components and zero-filling.
func (v *Vector) Resize(n int) {
	if n < 0 {
		panic(fmt.Sprintf("vecmath: negative vector length %d", n))
	}
	if n <= cap(v.c) {
		old := len(v.c)
		v.c = v.c[:n]
		for i := old; i < n; i++ {
			v.c[i] = 0
		}
		return
	}
	c := make([]float64, n)
	copy(c, v.c)
	v.c = c
}

// Add returns v+u.
func (v *Vector) Add(u *Vector) (*Vector, error) {
	if len(v.c) != len(u.c) {
		return nil, fmt.Errorf("add %d and %d: %w", len(v.c), len(u.c), ErrIncompatibleDimensions)
	}
	out := NewVector(len(v.c))
	for i := range v.c {
		out.c[i] = v.c[i] + u.c[i]
	}
	return out, nil
}

// Sub returns v-u.
func (v *Vector) Sub(u *Vector) (*Vector, error) {
	if len(v.c) != len(u.c) {
		return nil, fmt.Errorf("sub %d and %d: %w", len(v.c), len(u.c), ErrIncompatibleDimensions)
	}
	out := NewVector(len(v.c))
	for i := range v.c {
		out.c[i] = v.c[i] - u.c[i]
	}
	return out, nil
}

// Dot returns the inner product.
func (v *Vector) Dot(u *Vector) (float64, error) {
	if len(v.c) != len(u.c) {
		return 0, fmt.Errorf("dot %d and %d: %w", len(v.c), len(u.c), ErrIncompatibleDimensions)
	}
	var s float64
	for i := range v.c {
		s += v.c[i] * u.c[i]
	}
	return s, nil
}

// Magnitude returns the Euclidean norm.
func (v *Vector) Magnitude() float64 {
	var s float64
	for _, x := range v.c {
		s += x * x
	}
	return math.Sqrt(s)
}

// Vector3 returns the first three components. It panics if Len() < 3.
func (v *Vector) Vector3() Vector3 {
	return Vector3{X: v.At(0), Y: v.At(1), Z: v.At(2)}
}

// WithMagnitude returns the 4-element form (x, y, z, |v|) of a Vector3.
func WithMagnitude(p Vector3) *Vector {
	return VectorOf(p.X, p.Y, p.Z, p.Magnitude())
}
