package codec

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
)

// ErrShortBuffer is returned when a Decode call is given fewer bytes than
// its type's fixed encoding requires.
var ErrShortBuffer = errors.New("hxkv: short buffer decoding attribute value")

// stringCodec stores strings as raw bytes: already byte-wise comparable,
// so no transform is needed to keep them sortable.
type stringCodec struct{}

func (stringCodec) EncodedSize(v []byte) int { return len(v) }
func (stringCodec) Encode(v []byte, buf []byte) int {
	return copy(buf, v)
}
func (stringCodec) DecodedSize(encSz int) int { return encSz }
func (stringCodec) Decode(buf []byte) ([]byte, int, error) {
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, len(buf), nil
}
func (stringCodec) Fixed() bool    { return false }
func (stringCodec) Sortable() bool { return true }

// int64Codec stores signed 64-bit integers as sign-flipped big-endian: XOR
// the sign bit so that, under byte-wise comparison, negative numbers sort
// before positive ones the same way they do numerically.
type int64Codec struct{}

const int64EncSize = 8

func (int64Codec) EncodedSize([]byte) int { return int64EncSize }
func (int64Codec) Encode(v []byte, buf []byte) int {
	var n int64
	if len(v) >= 8 {
		n = int64(binary.LittleEndian.Uint64(v))
	}
	u := uint64(n) ^ (1 << 63)
	binary.BigEndian.PutUint64(buf, u)
	return int64EncSize
}
func (int64Codec) DecodedSize(int) int { return 8 }
func (int64Codec) Decode(buf []byte) ([]byte, int, error) {
	if len(buf) < int64EncSize {
		return nil, 0, ErrShortBuffer
	}
	u := binary.BigEndian.Uint64(buf[:int64EncSize])
	n := int64(u ^ (1 << 63))
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, uint64(n))
	return out, int64EncSize, nil
}
func (int64Codec) Fixed() bool    { return true }
func (int64Codec) Sortable() bool { return true }

// floatCodec stores IEEE-754 doubles using the standard sortable
// transform: for non-negative floats, flip the sign bit; for negative
// floats, flip every bit. This makes byte-wise comparison of the
// transformed bits agree with float comparison, including across the
// positive/negative boundary.
type floatCodec struct{}

const floatEncSize = 8

func (floatCodec) EncodedSize([]byte) int { return floatEncSize }
func (floatCodec) Encode(v []byte, buf []byte) int {
	var f float64
	if len(v) >= 8 {
		f = math.Float64frombits(binary.LittleEndian.Uint64(v))
	}
	binary.BigEndian.PutUint64(buf, sortableFloatBits(f))
	return floatEncSize
}
func (floatCodec) DecodedSize(int) int { return 8 }
func (floatCodec) Decode(buf []byte) ([]byte, int, error) {
	if len(buf) < floatEncSize {
		return nil, 0, ErrShortBuffer
	}
	bits := binary.BigEndian.Uint64(buf[:floatEncSize])
	f := unsortableFloatBits(bits)
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, math.Float64bits(f))
	return out, floatEncSize, nil
}
func (floatCodec) Fixed() bool    { return true }
func (floatCodec) Sortable() bool { return true }

func sortableFloatBits(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}

func unsortableFloatBits(bits uint64) float64 {
	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}

// compositeCodec covers list, set and map attributes. Their wire encoding
// is opaque to the data layer: it is stored and compared as raw bytes for
// equality checks only, never used to derive a range.
type compositeCodec struct{}

func (compositeCodec) EncodedSize(v []byte) int { return len(v) }
func (compositeCodec) Encode(v []byte, buf []byte) int {
	return copy(buf, v)
}
func (compositeCodec) DecodedSize(encSz int) int { return encSz }
func (compositeCodec) Decode(buf []byte) ([]byte, int, error) {
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, len(buf), nil
}
func (compositeCodec) Fixed() bool    { return false }
func (compositeCodec) Sortable() bool { return false }
