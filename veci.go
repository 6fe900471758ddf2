/*

Integer 3D lattice vectors

*/

package pcmesh

import "gonum.org/v1/gonum/spatial/r3"

// V3i is a 3D integer vector. It addresses grid nodes and voxels.
type V3i [3]int

// AddScalar adds a scalar to each component of the vector.
func (a V3i) AddScalar(b int) V3i {
	return V3i{a[0] + b, a[1] + b, a[2] + b}
}

// ToV3 converts V3i (integer) to r3.Vec (float).
func (a V3i) ToV3() r3.Vec {
	return r3.Vec{X: float64(a[0]), Y: float64(a[1]), Z: float64(a[2])}
}

// Add adds two vectors. Return v = a + b.
func (a V3i) Add(b V3i) V3i {
	return V3i{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// Max returns the largest component.
func (a V3i) Max() int {
	m := a[0]
	if a[1] > m {
		m = a[1]
	}
	if a[2] > m {
		m = a[2]
	}
	return m
}

// Prod returns the product of all components.
func (a V3i) Prod() int {
	return a[0] * a[1] * a[2]
}

// Less reports whether a sorts before b in lexicographical (x, y, z) order.
func (a V3i) Less(b V3i) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	if a[1] != b[1] {
		return a[1] < b[1]
	}
	return a[2] < b[2]
}

// R3ToI truncates the components of a towards zero.
func R3ToI(a r3.Vec) V3i {
	return V3i{int(a.X), int(a.Y), int(a.Z)}
}
