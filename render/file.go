package render

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/soypat/pcmesh"
)

// WriteMeshFile writes m to path choosing the format by file extension,
// .ply (binary little endian with normals) or .stl (binary).
// Vertex order and triangle winding are preserved. No file is left at
// path if writing fails.
func WriteMeshFile(path string, m *pcmesh.Mesh) error {
	if err := m.Validate(); err != nil {
		return err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".ply":
		return createFile(path, func(file *os.File) error {
			bw := bufio.NewWriterSize(file, 1<<16)
			if err := WritePLY(bw, m); err != nil {
				return err
			}
			return bw.Flush()
		})
	case ".stl":
		return CreateSTL(path, NewMeshReader(m))
	default:
		return fmt.Errorf("%w: unsupported mesh extension %q", pcmesh.ErrFileFormat, ext)
	}
}

// createFile runs write over a temporary file in the directory of path and
// renames it to path on success. The temporary file is removed on failure.
func createFile(path string, write func(file *os.File) error) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return err
	}
	closed := false
	defer func() {
		if err != nil {
			if !closed {
				tmp.Close()
			}
			os.Remove(tmp.Name())
		}
	}()
	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	closed = true
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
