package core

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ComplexWidth is the byte width of one encoded complex value: two
// little-endian IEEE-754 float64 words, real part followed by imaginary.
const ComplexWidth = 16

// DecodeComplex parses a binary payload into a complex value. Payloads may
// carry more than one encoded value; the trailing one wins, matching how
// the acquisition software appends to the buffer. The blob length must be a
// positive multiple of ComplexWidth.
func DecodeComplex(blob []byte) (complex128, error) {
	if len(blob) < ComplexWidth {
		return 0, fmt.Errorf("%w: payload is %d bytes, need at least %d", ErrDecode, len(blob), ComplexWidth)
	}
	if len(blob)%ComplexWidth != 0 {
		return 0, fmt.Errorf("%w: payload length %d is not a multiple of %d", ErrDecode, len(blob), ComplexWidth)
	}

	tail := blob[len(blob)-ComplexWidth:]
	re := math.Float64frombits(binary.LittleEndian.Uint64(tail[:8]))
	im := math.Float64frombits(binary.LittleEndian.Uint64(tail[8:]))
	return complex(re, im), nil
}

// EncodeComplex is the inverse of DecodeComplex for a single value. Used by
// test fixtures and the export path.
func EncodeComplex(v complex128) []byte {
	out := make([]byte, ComplexWidth)
	binary.LittleEndian.PutUint64(out[:8], math.Float64bits(real(v)))
	binary.LittleEndian.PutUint64(out[8:], math.Float64bits(imag(v)))
	return out
}
