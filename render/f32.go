package render

import (
	"encoding/binary"
	"math"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/spatial/r3"
)

// vec32 is a vector as stored in mesh files, little endian float32 triplets.
type vec32 [3]float32

func vec32From(v r3.Vec) vec32 {
	return vec32{float32(v.X), float32(v.Y), float32(v.Z)}
}

func getVec32(b []byte) (v vec32) {
	_ = b[11] // early bounds check
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

func (v vec32) put(b []byte) {
	_ = b[11]
	for i, c := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(c))
	}
}

func (v vec32) r3() r3.Vec {
	return r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}

// finite reports whether no component overflowed or is NaN.
func (v vec32) finite() bool {
	for _, c := range v {
		if math32.IsNaN(c) || math32.IsInf(c, 0) {
			return false
		}
	}
	return true
}
