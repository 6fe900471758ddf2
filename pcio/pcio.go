// Package pcio reads point clouds from PLY, PCD, plain text XYZ and
// binary STL files.
package pcio

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/soypat/pcmesh"
)

// maxPreallocPoints caps allocations sized from counts declared in file headers.
const maxPreallocPoints = 1 << 20

// Format is a point cloud file format.
type Format int

const (
	FormatUnknown Format = iota
	// FormatPLY is the Stanford polygon format in ascii or binary encoding.
	FormatPLY
	// FormatXYZ is whitespace or comma separated text with one point per line.
	FormatXYZ
	// FormatPCD is the Point Cloud Library format with ascii or binary data.
	FormatPCD
	// FormatSTL is a binary STL mesh. Its distinct vertices are the points.
	FormatSTL
)

func (f Format) String() string {
	switch f {
	case FormatPLY:
		return "PLY"
	case FormatXYZ:
		return "XYZ"
	case FormatPCD:
		return "PCD"
	case FormatSTL:
		return "STL"
	}
	return "unknown"
}

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".ply":
		return FormatPLY, nil
	case ".xyz", ".txt", ".pts", ".csv":
		return FormatXYZ, nil
	case ".pcd":
		return FormatPCD, nil
	case ".stl":
		return FormatSTL, nil
	default:
		return FormatUnknown, errors.Wrapf(pcmesh.ErrFileFormat, "unsupported point cloud extension %q", ext)
	}
}

// ReadFile reads the point cloud at path. The format is chosen by extension.
func ReadFile(path string) (pcmesh.PointSet, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	fp, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open point cloud")
	}
	defer fp.Close()
	points, err := Read(fp, format)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", filepath.Base(path))
	}
	return points, nil
}

// Read decodes a point cloud in the given format from r.
// Only point positions are kept. Colors, normals and faces are discarded.
func Read(r io.Reader, format Format) (pcmesh.PointSet, error) {
	br := bufio.NewReaderSize(r, 1<<16)
	switch format {
	case FormatPLY:
		return readPLY(br)
	case FormatXYZ:
		return readXYZ(br)
	case FormatPCD:
		return readPCD(br)
	case FormatSTL:
		return readSTL(br)
	}
	return nil, errors.Wrapf(pcmesh.ErrFileFormat, "unknown format %d", int(format))
}
