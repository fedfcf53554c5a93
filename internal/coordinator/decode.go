package coordinator

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tsoiks/heliotherm-bridge/internal/domain"
)

// decodeFunc converts the raw bytes of a field's registers into an unscaled
// value. The wire format is big-endian 16-bit words, high word first.
type decodeFunc func(data []byte) (float64, error)

// decoders dispatches on the descriptor's encoding tag.
var decoders = map[domain.Encoding]decodeFunc{
	domain.EncodingSigned16:   decodeSigned16,
	domain.EncodingUnsigned16: decodeUnsigned16,
	domain.EncodingFloat32BE:  decodeFloat32BE,
}

func decodeSigned16(data []byte) (float64, error) {
	if len(data) < 2 {
		return 0, fmt.Errorf("%w: want 2 bytes, got %d", domain.ErrDecodeFailed, len(data))
	}
	return float64(int16(binary.BigEndian.Uint16(data))), nil
}

func decodeUnsigned16(data []byte) (float64, error) {
	if len(data) < 2 {
		return 0, fmt.Errorf("%w: want 2 bytes, got %d", domain.ErrDecodeFailed, len(data))
	}
	return float64(binary.BigEndian.Uint16(data)), nil
}

// decodeFloat32BE reinterprets two big-endian words, high word first, as an
// IEEE 754 single-precision float.
func decodeFloat32BE(data []byte) (float64, error) {
	if len(data) < 4 {
		return 0, fmt.Errorf("%w: want 4 bytes, got %d", domain.ErrDecodeFailed, len(data))
	}
	bits := binary.BigEndian.Uint32(data)
	f := math.Float32frombits(bits)
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return 0, fmt.Errorf("%w: register bytes decode to %v", domain.ErrDecodeFailed, f)
	}
	return float64(f), nil
}

// decodeField decodes and scales the raw register bytes for a descriptor.
func decodeField(field *domain.FieldDescriptor, data []byte) (float64, error) {
	decode, ok := decoders[field.Encoding]
	if !ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidEncoding, field.Encoding)
	}
	raw, err := decode(data)
	if err != nil {
		return 0, err
	}
	return raw * field.Scale, nil
}

// encodeFloat32BE is the inverse of decodeFloat32BE: it splits a float into
// the two big-endian register words the device expects.
func encodeFloat32BE(v float32) (high, low uint16) {
	bits := math.Float32bits(v)
	return uint16(bits >> 16), uint16(bits & 0xFFFF)
}

// rawForValue converts an engineering value to the raw register integer for
// a 16-bit field, applying the inverse of the descriptor's scale.
func rawForValue(field *domain.FieldDescriptor, value float64) int16 {
	return int16(math.Round(value / field.Scale))
}
