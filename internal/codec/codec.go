// Package codec implements the per-attribute-type encoders that turn wire
// values into the order-preserving (for primitives) or opaque (for
// composites) byte strings the key-space and index layers store.
package codec

import (
	"github.com/hxkv/hxkv/internal/schema"
)

// Codec knows how to size, encode and decode one attribute type for
// storage as part of an object key, an object value, or an index entry.
// Primitive codecs (string, int64, float) are order-preserving: comparing
// two encoded values byte-for-byte agrees with comparing the decoded
// values. Composite codecs (list, set, map) are not: they support equality
// checks only, never range iteration.
type Codec interface {
	// EncodedSize returns the number of bytes Encode will write for v.
	EncodedSize(v []byte) int
	// Encode writes the encoded form of v into buf, which must be at
	// least EncodedSize(v) bytes, and returns the number of bytes
	// written.
	Encode(v []byte, buf []byte) int
	// DecodedSize returns the number of bytes Decode will produce when
	// given an encoded buffer of length encSz.
	DecodedSize(encSz int) int
	// Decode reads an encoded value from buf and returns the decoded
	// wire value plus the number of input bytes consumed.
	Decode(buf []byte) (v []byte, consumed int, err error)
	// Fixed reports whether every encoded value of this type has the
	// same size, regardless of content.
	Fixed() bool
	// Sortable reports whether byte-comparison of encoded values agrees
	// with the type's natural ordering, i.e. whether the type supports
	// range queries at all.
	Sortable() bool
}

// Lookup returns the codec for an attribute type, mirroring index_info's
// per-type registry in the original implementation.
func Lookup(t schema.AttrType) Codec {
	switch t {
	case schema.AttrString:
		return stringCodec{}
	case schema.AttrInt64:
		return int64Codec{}
	case schema.AttrFloat:
		return floatCodec{}
	case schema.AttrList:
		return compositeCodec{}
	case schema.AttrSet:
		return compositeCodec{}
	case schema.AttrMap:
		return compositeCodec{}
	default:
		return nil
	}
}
