package pcio

import (
	"bufio"
	"encoding/binary"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/soypat/pcmesh"
	"gonum.org/v1/gonum/spatial/r3"
)

type pcdField struct {
	name  string
	size  int
	kind  string
	count int
	typ   scalarType
}

type pcdHeader struct {
	fields []pcdField
	points int
	data   string
}

// readPCDHeader parses header lines up to and including DATA.
func readPCDHeader(br *bufio.Reader) (pcdHeader, error) {
	var h pcdHeader
	var sizes, kinds, counts []string
	width, height := -1, -1
	h.points = -1
	for lineno := 1; ; lineno++ {
		line, err := br.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return h, errors.Wrap(pcmesh.ErrFileFormat, "PCD header without DATA line")
			}
			return h, errors.Wrap(err, "read PCD header")
		}
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		key, args := strings.ToUpper(fields[0]), fields[1:]
		switch key {
		case "VERSION", "VIEWPOINT":
		case "FIELDS":
			h.fields = make([]pcdField, len(args))
			for i, name := range args {
				h.fields[i] = pcdField{name: name, size: 4, kind: "F", count: 1}
			}
		case "SIZE":
			sizes = args
		case "TYPE":
			kinds = args
		case "COUNT":
			counts = args
		case "WIDTH", "HEIGHT", "POINTS":
			if len(args) != 1 {
				return h, errors.Wrapf(pcmesh.ErrFileFormat, "PCD header line %d: malformed %s", lineno, key)
			}
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return h, errors.Wrapf(pcmesh.ErrFileFormat, "PCD header line %d: bad %s %q", lineno, key, args[0])
			}
			switch key {
			case "WIDTH":
				width = n
			case "HEIGHT":
				height = n
			default:
				h.points = n
			}
		case "DATA":
			if len(args) != 1 {
				return h, errors.Wrapf(pcmesh.ErrFileFormat, "PCD header line %d: malformed DATA", lineno)
			}
			h.data = strings.ToLower(args[0])
			if h.points < 0 && width >= 0 {
				h.points = width * max(height, 1)
			}
			return h, h.finish(sizes, kinds, counts)
		default:
			return h, errors.Wrapf(pcmesh.ErrFileFormat, "PCD header line %d: unknown keyword %q", lineno, fields[0])
		}
	}
}

func (h *pcdHeader) finish(sizes, kinds, counts []string) error {
	n := len(h.fields)
	if n == 0 {
		return errors.Wrap(pcmesh.ErrFileFormat, "PCD header has no FIELDS")
	}
	if h.points < 0 {
		return errors.Wrap(pcmesh.ErrFileFormat, "PCD header has no POINTS or WIDTH")
	}
	for _, list := range [][]string{sizes, kinds, counts} {
		if list != nil && len(list) != n {
			return errors.Wrapf(pcmesh.ErrFileFormat, "PCD header lists %d fields but %d types", n, len(list))
		}
	}
	for i := range h.fields {
		f := &h.fields[i]
		var err error
		if sizes != nil {
			if f.size, err = strconv.Atoi(sizes[i]); err != nil {
				return errors.Wrapf(pcmesh.ErrFileFormat, "bad PCD SIZE %q", sizes[i])
			}
		}
		if kinds != nil {
			f.kind = strings.ToUpper(kinds[i])
		}
		if counts != nil {
			if f.count, err = strconv.Atoi(counts[i]); err != nil || f.count < 1 {
				return errors.Wrapf(pcmesh.ErrFileFormat, "bad PCD COUNT %q", counts[i])
			}
		}
		if f.typ, err = pcdScalarType(f.kind, f.size); err != nil {
			return err
		}
	}
	return nil
}

// xyzColumns returns the value column of the x, y and z fields.
func (h *pcdHeader) xyzColumns() (cols [3]int, err error) {
	cols = [3]int{-1, -1, -1}
	col := 0
	for _, f := range h.fields {
		if axis := strings.Index("xyz", f.name); len(f.name) == 1 && axis >= 0 {
			cols[axis] = col
		}
		col += f.count
	}
	for axis, c := range cols {
		if c < 0 {
			return cols, errors.Wrapf(pcmesh.ErrFileFormat, "PCD has no %c field", "xyz"[axis])
		}
	}
	return cols, nil
}

func readPCD(br *bufio.Reader) (pcmesh.PointSet, error) {
	h, err := readPCDHeader(br)
	if err != nil {
		return nil, err
	}
	cols, err := h.xyzColumns()
	if err != nil {
		return nil, err
	}
	ncol := 0
	for _, f := range h.fields {
		ncol += f.count
	}
	values := make([]float64, ncol)
	points := make(pcmesh.PointSet, 0, min(h.points, maxPreallocPoints))
	switch h.data {
	case "ascii":
		sc := bufio.NewScanner(br)
		sc.Buffer(make([]byte, 0, 1<<16), 1<<20)
		for i := 0; i < h.points; i++ {
			line, err := nextDataLine(sc)
			if err != nil {
				return nil, errors.Wrapf(err, "PCD point %d", i)
			}
			toks := strings.Fields(line)
			if len(toks) != ncol {
				return nil, errors.Wrapf(pcmesh.ErrFileFormat, "PCD point %d: got %d values, want %d", i, len(toks), ncol)
			}
			var p [3]float64
			for axis, c := range cols {
				if p[axis], err = parseScalar(toks[c]); err != nil {
					return nil, errors.Wrapf(err, "PCD point %d", i)
				}
			}
			points = append(points, r3.Vec{X: p[0], Y: p[1], Z: p[2]})
		}
	case "binary":
		var buf [8]byte
		for i := 0; i < h.points; i++ {
			col := 0
			for _, f := range h.fields {
				for c := 0; c < f.count; c++ {
					v, err := binaryScalar(br, f.typ, binary.LittleEndian, &buf)
					if err != nil {
						return nil, errors.Wrapf(err, "PCD point %d", i)
					}
					values[col] = v
					col++
				}
			}
			points = append(points, r3.Vec{X: values[cols[0]], Y: values[cols[1]], Z: values[cols[2]]})
		}
	default:
		return nil, errors.Wrapf(pcmesh.ErrFileFormat, "unsupported PCD DATA %q", h.data)
	}
	return points, nil
}

func nextDataLine(sc *bufio.Scanner) (string, error) {
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", errors.Wrap(pcmesh.ErrFileFormat, "unexpected end of ascii data")
}
