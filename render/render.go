// Package render extracts iso-surfaces from distance fields and writes
// triangle meshes to disk.
package render

import "github.com/soypat/pcmesh"

// Renderer streams triangles. ReadTriangles fills t and returns the number
// of triangles written. It returns io.EOF once no triangles remain.
type Renderer interface {
	ReadTriangles(t []pcmesh.Triangle3) (int, error)
}
