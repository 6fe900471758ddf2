package pcio

import (
	"encoding/binary"
	"io"
	"math"
	"strconv"

	"github.com/pkg/errors"
	"github.com/soypat/pcmesh"
)

// scalarType is a numeric type of a binary record field.
type scalarType int

const (
	typeInt8 scalarType = iota
	typeUint8
	typeInt16
	typeUint16
	typeInt32
	typeUint32
	typeFloat32
	typeFloat64
)

func (t scalarType) size() int {
	switch t {
	case typeInt8, typeUint8:
		return 1
	case typeInt16, typeUint16:
		return 2
	case typeInt32, typeUint32, typeFloat32:
		return 4
	}
	return 8
}

// plyScalarType maps PLY type names, both the original and the sized spellings.
func plyScalarType(name string) (scalarType, error) {
	switch name {
	case "char", "int8":
		return typeInt8, nil
	case "uchar", "uint8":
		return typeUint8, nil
	case "short", "int16":
		return typeInt16, nil
	case "ushort", "uint16":
		return typeUint16, nil
	case "int", "int32":
		return typeInt32, nil
	case "uint", "uint32":
		return typeUint32, nil
	case "float", "float32":
		return typeFloat32, nil
	case "double", "float64":
		return typeFloat64, nil
	}
	return 0, errors.Wrapf(pcmesh.ErrFileFormat, "unknown scalar type %q", name)
}

// pcdScalarType maps a PCD TYPE letter and SIZE pair.
func pcdScalarType(kind string, size int) (scalarType, error) {
	switch {
	case kind == "I" && size == 1:
		return typeInt8, nil
	case kind == "U" && size == 1:
		return typeUint8, nil
	case kind == "I" && size == 2:
		return typeInt16, nil
	case kind == "U" && size == 2:
		return typeUint16, nil
	case kind == "I" && size == 4:
		return typeInt32, nil
	case kind == "U" && size == 4:
		return typeUint32, nil
	case kind == "F" && size == 4:
		return typeFloat32, nil
	case kind == "F" && size == 8:
		return typeFloat64, nil
	}
	return 0, errors.Wrapf(pcmesh.ErrFileFormat, "unsupported PCD field type %s of size %d", kind, size)
}

// decode interprets b, of length t.size(), as a value of type t.
func (t scalarType) decode(b []byte, order binary.ByteOrder) float64 {
	switch t {
	case typeInt8:
		return float64(int8(b[0]))
	case typeUint8:
		return float64(b[0])
	case typeInt16:
		return float64(int16(order.Uint16(b)))
	case typeUint16:
		return float64(order.Uint16(b))
	case typeInt32:
		return float64(int32(order.Uint32(b)))
	case typeUint32:
		return float64(order.Uint32(b))
	case typeFloat32:
		return float64(math.Float32frombits(order.Uint32(b)))
	}
	return math.Float64frombits(order.Uint64(b))
}

// binaryScalar reads one value of type t from r.
func binaryScalar(r io.Reader, t scalarType, order binary.ByteOrder, buf *[8]byte) (float64, error) {
	b := buf[:t.size()]
	if _, err := io.ReadFull(r, b); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, errors.Wrap(pcmesh.ErrFileFormat, "unexpected end of binary data")
		}
		return 0, err
	}
	return t.decode(b, order), nil
}

// parseScalar parses an ascii token. Integers are accepted for float fields.
func parseScalar(tok string) (float64, error) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, errors.Wrapf(pcmesh.ErrFileFormat, "bad number %q", tok)
	}
	return v, nil
}
