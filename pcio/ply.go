package pcio

import (
	"bufio"
	"bytes"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/EliCDavis/polyform/formats/ply"
	"github.com/EliCDavis/polyform/modeling"
	"github.com/pkg/errors"
	"github.com/soypat/pcmesh"
	"gonum.org/v1/gonum/spatial/r3"
)

type plyEncoding int

const (
	plyASCII plyEncoding = iota
	plyBinaryLE
	plyBinaryBE
)

type plyProperty struct {
	name      string
	typ       scalarType
	list      bool
	countType scalarType // list length type
}

type plyElement struct {
	name       string
	count      int
	properties []plyProperty
}

type plyHeader struct {
	encoding plyEncoding
	elements []plyElement
	raw      []byte // header text through end_header
}

// readPLYHeader parses the header up to and including the end_header line.
func readPLYHeader(br *bufio.Reader) (plyHeader, error) {
	var h plyHeader
	formatSeen := false
	for lineno := 1; ; lineno++ {
		line, err := br.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return h, errors.Wrap(pcmesh.ErrFileFormat, "PLY header without end_header")
			}
			return h, errors.Wrap(err, "read PLY header")
		}
		h.raw = append(h.raw, line...)
		fields := strings.Fields(line)
		if lineno == 1 {
			if len(fields) != 1 || fields[0] != "ply" {
				return h, errors.Wrap(pcmesh.ErrFileFormat, "missing ply magic")
			}
			continue
		}
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "comment", "obj_info":
		case "format":
			if len(fields) != 3 {
				return h, errors.Wrapf(pcmesh.ErrFileFormat, "PLY header line %d: malformed format", lineno)
			}
			switch fields[1] {
			case "ascii":
				h.encoding = plyASCII
			case "binary_little_endian":
				h.encoding = plyBinaryLE
			case "binary_big_endian":
				h.encoding = plyBinaryBE
			default:
				return h, errors.Wrapf(pcmesh.ErrFileFormat, "PLY header line %d: unknown format %q", lineno, fields[1])
			}
			formatSeen = true
		case "element":
			if len(fields) != 3 {
				return h, errors.Wrapf(pcmesh.ErrFileFormat, "PLY header line %d: malformed element", lineno)
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return h, errors.Wrapf(pcmesh.ErrFileFormat, "PLY header line %d: bad element count %q", lineno, fields[2])
			}
			h.elements = append(h.elements, plyElement{name: fields[1], count: count})
		case "property":
			if len(h.elements) == 0 {
				return h, errors.Wrapf(pcmesh.ErrFileFormat, "PLY header line %d: property before element", lineno)
			}
			prop, err := parsePLYProperty(fields)
			if err != nil {
				return h, errors.Wrapf(err, "PLY header line %d", lineno)
			}
			el := &h.elements[len(h.elements)-1]
			el.properties = append(el.properties, prop)
		case "end_header":
			if !formatSeen {
				return h, errors.Wrap(pcmesh.ErrFileFormat, "PLY header has no format line")
			}
			return h, nil
		default:
			return h, errors.Wrapf(pcmesh.ErrFileFormat, "PLY header line %d: unknown keyword %q", lineno, fields[0])
		}
	}
}

func parsePLYProperty(fields []string) (plyProperty, error) {
	switch {
	case len(fields) == 3:
		typ, err := plyScalarType(fields[1])
		return plyProperty{name: fields[2], typ: typ}, err
	case len(fields) == 5 && fields[1] == "list":
		countType, err := plyScalarType(fields[2])
		if err != nil {
			return plyProperty{}, err
		}
		typ, err := plyScalarType(fields[3])
		return plyProperty{name: fields[4], typ: typ, list: true, countType: countType}, err
	}
	return plyProperty{}, errors.Wrapf(pcmesh.ErrFileFormat, "malformed property %q", strings.Join(fields, " "))
}

// xyzIndices returns the positions of the x, y and z properties of el.
func (el plyElement) xyzIndices() (idx [3]int, err error) {
	idx = [3]int{-1, -1, -1}
	for i, p := range el.properties {
		if len(p.name) != 1 {
			continue
		}
		axis := strings.IndexByte("xyz", p.name[0])
		if axis < 0 {
			continue
		}
		if p.list {
			return idx, errors.Wrapf(pcmesh.ErrFileFormat, "vertex property %s is a list", p.name)
		}
		idx[axis] = i
	}
	for axis, i := range idx {
		if i < 0 {
			return idx, errors.Wrapf(pcmesh.ErrFileFormat, "vertex element has no %c property", "xyz"[axis])
		}
	}
	return idx, nil
}

// minBodySize returns the fewest data bytes that can hold every record the
// header declares. Saturates at math.MaxInt64.
func (h plyHeader) minBodySize() int64 {
	var total int64
	for _, el := range h.elements {
		var record int64
		for _, p := range el.properties {
			switch {
			case h.encoding == plyASCII:
				record += 2 // one digit and a separator
			case p.list:
				record += int64(p.countType.size())
			default:
				record += int64(p.typ.size())
			}
		}
		if record == 0 || el.count == 0 {
			continue
		}
		if int64(el.count) > (math.MaxInt64-total)/record {
			return math.MaxInt64
		}
		total += int64(el.count) * record
	}
	if h.encoding == plyASCII && total > 0 {
		total-- // last line may lack a newline
	}
	return total
}

// readPLY checks the header against the data available before handing the
// file to the PLY decoder, which trusts declared counts.
func readPLY(br *bufio.Reader) (pcmesh.PointSet, error) {
	h, err := readPLYHeader(br)
	if err != nil {
		return nil, err
	}
	vertex := -1
	for i, el := range h.elements {
		if el.count > 0 && len(el.properties) == 0 {
			// Zero-size records would escape the body size check.
			return nil, errors.Wrapf(pcmesh.ErrFileFormat, "PLY element %s has no properties", el.name)
		}
		if vertex < 0 && el.name == "vertex" {
			vertex = i
		}
	}
	if vertex < 0 {
		return nil, errors.Wrap(pcmesh.ErrFileFormat, "PLY file has no vertex element")
	}
	if _, err := h.elements[vertex].xyzIndices(); err != nil {
		return nil, err
	}
	need := h.minBodySize()
	body, err := io.ReadAll(io.LimitReader(br, need))
	if err != nil {
		return nil, errors.Wrap(err, "read PLY data")
	}
	if int64(len(body)) < need {
		return nil, errors.Wrapf(pcmesh.ErrFileFormat, "PLY data truncated: header needs at least %d bytes, got %d", need, len(body))
	}
	m, err := ply.ReadMesh(io.MultiReader(bytes.NewReader(h.raw), bytes.NewReader(body), br))
	if err != nil {
		return nil, errors.Wrapf(pcmesh.ErrFileFormat, "decode PLY: %v", err)
	}
	if !m.HasFloat3Attribute(modeling.PositionAttribute) {
		return nil, errors.Wrap(pcmesh.ErrFileFormat, "PLY vertices carry no position")
	}
	positions := m.Float3Attribute(modeling.PositionAttribute)
	if positions.Len() != h.elements[vertex].count {
		return nil, errors.Wrapf(pcmesh.ErrFileFormat, "PLY declares %d vertices, decoded %d", h.elements[vertex].count, positions.Len())
	}
	points := make(pcmesh.PointSet, 0, min(positions.Len(), maxPreallocPoints))
	for i := 0; i < positions.Len(); i++ {
		v := positions.At(i)
		points = append(points, r3.Vec{X: v.X(), Y: v.Y(), Z: v.Z()})
	}
	return points, nil
}
