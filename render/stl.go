package render

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/soypat/pcmesh"
)

const (
	stlHeaderSize = 84 // 80 byte comment and triangle count
	stlFacetSize  = 50 // normal, three vertices and attribute count
	facetsInChunk = 1 << 10
)

// CreateSTL writes the triangles of r to a binary STL file at path.
// The file only appears at path once fully written.
func CreateSTL(path string, r Renderer) error {
	return createFile(path, func(file *os.File) error {
		// Header is written last, once the triangle count is known.
		if _, err := file.Seek(stlHeaderSize, io.SeekStart); err != nil {
			return err
		}
		n, err := io.CopyBuffer(file, &stlStream{r: r}, make([]byte, stlFacetSize*facetsInChunk))
		if err != nil {
			return err
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return err
		}
		return writeSTLHeader(file, int(n/stlFacetSize))
	})
}

// WriteSTL writes model triangles to a writer in binary STL file format.
func WriteSTL(w io.Writer, model []pcmesh.Triangle3) error {
	if err := writeSTLHeader(w, len(model)); err != nil {
		return err
	}
	var b [stlFacetSize]byte
	for i, t := range model {
		f, err := facetOf(t)
		if err != nil {
			return fmt.Errorf("STL triangle %d: %w", i, err)
		}
		f.put(b[:])
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

// ReadSTL decodes a binary STL. Stored facet normals are discarded since
// Triangle3 derives its normal from the winding.
func ReadSTL(r io.Reader) ([]pcmesh.Triangle3, error) {
	var header [stlHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, stlReadError(err, "header")
	}
	count := binary.LittleEndian.Uint32(header[80:])
	model := make([]pcmesh.Triangle3, 0, min(int(count), 1<<20))
	var b [stlFacetSize]byte
	for i := 0; i < int(count); i++ {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, stlReadError(err, fmt.Sprintf("triangle %d/%d", i+1, count))
		}
		f := getFacet(b[:])
		for _, v := range f[1:] {
			if !v.finite() {
				return nil, fmt.Errorf("%w: STL triangle %d has non-finite vertex %v", pcmesh.ErrFileFormat, i, v)
			}
		}
		model = append(model, f.triangle())
	}
	return model, nil
}

func stlReadError(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: STL truncated in %s", pcmesh.ErrFileFormat, what)
	}
	return fmt.Errorf("reading STL %s: %w", what, err)
}

func writeSTLHeader(w io.Writer, count int) error {
	var header [stlHeaderSize]byte
	copy(header[:], "binary STL generated by pcmesh")
	binary.LittleEndian.PutUint32(header[80:], uint32(count))
	_, err := w.Write(header[:])
	return err
}

// stlStream encodes the triangles of a Renderer as STL facets on Read.
type stlStream struct {
	r   Renderer
	buf [facetsInChunk]pcmesh.Triangle3
	err error
}

func (s *stlStream) Read(b []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	room := min(len(b)/stlFacetSize, len(s.buf))
	if room == 0 {
		return 0, errors.New("STL stream needs room for at least one 50 byte facet")
	}
	written := 0
	for written < room && s.err == nil {
		var nt int
		nt, s.err = s.r.ReadTriangles(s.buf[:room-written])
		for _, t := range s.buf[:nt] {
			f, err := facetOf(t)
			if err != nil {
				return written * stlFacetSize, err
			}
			f.put(b[written*stlFacetSize:])
			written++
		}
	}
	if written > 0 && s.err == io.EOF {
		// Deliver the bytes now and EOF on the next call.
		return written * stlFacetSize, nil
	}
	return written * stlFacetSize, s.err
}

// stlFacet is a binary STL triangle record: normal followed by three vertices.
type stlFacet [4]vec32

// facetOf returns an error wrapping pcmesh.ErrNumerical if a vertex does not
// fit a float32. Zero-area triangles have a NaN normal which is written as zero.
func facetOf(t pcmesh.Triangle3) (stlFacet, error) {
	f := stlFacet{vec32From(t.Normal()), vec32From(t[0]), vec32From(t[1]), vec32From(t[2])}
	for _, v := range f[1:] {
		if !v.finite() {
			return f, fmt.Errorf("%w: vertex not representable as float32", pcmesh.ErrNumerical)
		}
	}
	if !f[0].finite() {
		f[0] = vec32{}
	}
	return f, nil
}

func getFacet(b []byte) (f stlFacet) {
	_ = b[stlFacetSize-1]
	for i := range f {
		f[i] = getVec32(b[12*i:])
	}
	return f
}

func (f stlFacet) put(b []byte) {
	_ = b[stlFacetSize-1]
	for i, v := range f {
		v.put(b[12*i:])
	}
	binary.LittleEndian.PutUint16(b[48:], 0) // attribute byte count
}

func (f stlFacet) triangle() pcmesh.Triangle3 {
	return pcmesh.Triangle3{f[1].r3(), f[2].r3(), f[3].r3()}
}
