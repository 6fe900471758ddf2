// Package d3 holds element-wise r3.Vec helpers missing from gonum's r3
// package and an axis aligned box type.
package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Elem returns a vector with all components set to v.
func Elem(v float64) r3.Vec { return r3.Vec{X: v, Y: v, Z: v} }

// EqualWithin reports whether a and b differ by at most tol in every component.
func EqualWithin(a, b r3.Vec, tol float64) bool {
	d := apply2(a, b, func(x, y float64) float64 { return math.Abs(x - y) })
	return d.X <= tol && d.Y <= tol && d.Z <= tol
}

func MinElem(a, b r3.Vec) r3.Vec { return apply2(a, b, math.Min) }
func MaxElem(a, b r3.Vec) r3.Vec { return apply2(a, b, math.Max) }
func CeilElem(a r3.Vec) r3.Vec { return apply(a, math.Ceil) }
func FloorElem(a r3.Vec) r3.Vec { return apply(a, math.Floor) }

func DivElem(a, b r3.Vec) r3.Vec {
	return apply2(a, b, func(x, y float64) float64 { return x / y })
}

// IsFinite reports whether all components of a are neither NaN nor infinite.
func IsFinite(a r3.Vec) bool {
	return finite(a.X) && finite(a.Y) && finite(a.Z)
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func apply(a r3.Vec, f func(float64) float64) r3.Vec {
	return r3.Vec{X: f(a.X), Y: f(a.Y), Z: f(a.Z)}
}

func apply2(a, b r3.Vec, f func(x, y float64) float64) r3.Vec {
	return r3.Vec{X: f(a.X, b.X), Y: f(a.Y, b.Y), Z: f(a.Z, b.Z)}
}

// Set is a non-empty collection of vectors.
type Set []r3.Vec

// Min returns the component-wise minimum of the set.
func (s Set) Min() r3.Vec {
	m := s[0]
	for _, v := range s[1:] {
		m = MinElem(m, v)
	}
	return m
}

// Max returns the component-wise maximum of the set.
func (s Set) Max() r3.Vec {
	m := s[0]
	for _, v := range s[1:] {
		m = MaxElem(m, v)
	}
	return m
}
