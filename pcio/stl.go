package pcio

import (
	"io"

	"github.com/soypat/pcmesh"
	"github.com/soypat/pcmesh/render"
	"gonum.org/v1/gonum/spatial/r3"
)

// readSTL returns the distinct vertices of a binary STL in order of first use.
func readSTL(r io.Reader) (pcmesh.PointSet, error) {
	model, err := render.ReadSTL(r)
	if err != nil {
		return nil, err
	}
	seen := make(map[r3.Vec]struct{}, len(model))
	var points pcmesh.PointSet
	for _, t := range model {
		for _, v := range t {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			points = append(points, v)
		}
	}
	return points, nil
}
