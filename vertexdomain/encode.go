package vertexdomain

import (
	"encoding/binary"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/gogpu/graphics/shader"
)

// elementsOf returns the element type and length of typed attribute data.
func elementsOf(data any) (shader.ElementType, int, error) {
	switch v := data.(type) {
	case []float32:
		return shader.ElementFloat32, len(v), nil
	case []uint8:
		return shader.ElementUint8, len(v), nil
	case []int8:
		return shader.ElementInt8, len(v), nil
	case []uint16:
		return shader.ElementUint16, len(v), nil
	case []int16:
		return shader.ElementInt16, len(v), nil
	case []uint32:
		return shader.ElementUint32, len(v), nil
	case []int32:
		return shader.ElementInt32, len(v), nil
	default:
		return shader.ElementInvalid, 0, fmt.Errorf("%w: unsupported data type %T", shader.ErrTypeMismatch, data)
	}
}

// CheckData validates attribute data for count vertices of program
// without allocating. Names are checked in lexical order so the first
// reported error is deterministic.
func CheckData(program *shader.Program, count int, data map[string]any) error {
	schema := program.Schema()
	for _, name := range slices.Sorted(maps.Keys(data)) {
		elem, n, err := elementsOf(data[name])
		if err != nil {
			return &shader.IncompatibleFormatError{
				Program:   program.Label(),
				Attribute: name,
				Detail:    fmt.Sprintf("%T", data[name]),
				Err:       shader.ErrTypeMismatch,
			}
		}
		if _, a, ok := schema.Lookup(name); ok && elem == shader.ElementUint16 && a.Element() == shader.ElementFloat16 {
			elem = shader.ElementFloat16
		}
		if err := schema.Check(program.Label(), name, elem, n, count); err != nil {
			return err
		}
	}
	return nil
}

// putElements encodes data little-endian into dst, which must be large
// enough.
func putElements(dst []byte, data any) {
	le := binary.LittleEndian
	switch v := data.(type) {
	case []float32:
		for i, x := range v {
			le.PutUint32(dst[i*4:], math.Float32bits(x))
		}
	case []uint8:
		copy(dst, v)
	case []int8:
		for i, x := range v {
			dst[i] = byte(x)
		}
	case []uint16:
		for i, x := range v {
			le.PutUint16(dst[i*2:], x)
		}
	case []int16:
		for i, x := range v {
			le.PutUint16(dst[i*2:], uint16(x)) //nolint:gosec // bit reinterpretation
		}
	case []uint32:
		for i, x := range v {
			le.PutUint32(dst[i*4:], x)
		}
	case []int32:
		for i, x := range v {
			le.PutUint32(dst[i*4:], uint32(x)) //nolint:gosec // bit reinterpretation
		}
	}
}

func decodeFloat32s(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func decodeUint16s(b []byte) []uint16 {
	out := make([]uint16, len(b)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return out
}

func decodeUint32s(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out
}

func decodeInt32s(b []byte) []int32 {
	out := make([]int32, len(b)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(b[i*4:])) //nolint:gosec // bit reinterpretation
	}
	return out
}
