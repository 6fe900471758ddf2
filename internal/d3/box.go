package d3

import "gonum.org/v1/gonum/spatial/r3"

// Box is an axis aligned bounding box.
type Box r3.Box

// BoxOf returns the smallest box enclosing every vector in s.
func BoxOf(s Set) Box { return Box{Min: s.Min(), Max: s.Max()} }

// Include returns the box grown to contain v.
func (b Box) Include(v r3.Vec) Box {
	return Box{Min: MinElem(b.Min, v), Max: MaxElem(b.Max, v)}
}

// Size returns the box extent along each axis.
func (b Box) Size() r3.Vec { return r3.Sub(b.Max, b.Min) }

// Contains reports whether v lies in the box, boundary included.
func (b Box) Contains(v r3.Vec) bool {
	return b.Min.X <= v.X && v.X <= b.Max.X &&
		b.Min.Y <= v.Y && v.Y <= b.Max.Y &&
		b.Min.Z <= v.Z && v.Z <= b.Max.Z
}
