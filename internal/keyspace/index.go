package keyspace

import (
	"github.com/hxkv/hxkv/internal/codec"
	"github.com/hxkv/hxkv/internal/schema"
)

// indexPrefixSize is the size of the tag + region_id + attr prefix shared
// by every index entry.
const indexPrefixSize = 1 + 8 + 2

func putIndexPrefix(buf []byte, region schema.RegionID, attr schema.AttrID) {
	buf[0] = TagIndex
	putUint64(buf[1:9], uint64(region))
	putUint16(buf[9:11], uint16(attr))
}

// EncodeIndexPrefix builds the bare tag+region+attr prefix of an index
// entry, used to seek to the start of one attribute's index namespace.
func EncodeIndexPrefix(region schema.RegionID, attr schema.AttrID) []byte {
	buf := make([]byte, indexPrefixSize)
	putIndexPrefix(buf, region, attr)
	return buf
}

// EncodeIndexEntry builds a full index entry: prefix, value, object key,
// and (only when both codecs are variable-length) a trailing big-endian
// key length so the decoder can split value from key unambiguously.
func EncodeIndexEntry(region schema.RegionID, attr schema.AttrID, valCodec, keyCodec codec.Codec, value, key []byte) []byte {
	valSz := valCodec.EncodedSize(value)
	keySz := keyCodec.EncodedSize(key)
	variable := !valCodec.Fixed() && !keyCodec.Fixed()

	sz := indexPrefixSize + valSz + keySz
	if variable {
		sz += 4
	}

	buf := make([]byte, sz)
	putIndexPrefix(buf, region, attr)
	off := indexPrefixSize
	off += valCodec.Encode(value, buf[off:])
	off += keyCodec.Encode(key, buf[off:])

	if variable {
		putUint32(buf[off:], uint32(keySz))
	}

	return buf
}

// DecodedIndexEntry is the parsed form of a full index entry.
type DecodedIndexEntry struct {
	Region schema.RegionID
	Attr   schema.AttrID
	Value  []byte
	Key    []byte
}

// DecodeIndexEntry reverses EncodeIndexEntry. valCodec and keyCodec must
// be the same codecs used to encode the entry.
func DecodeIndexEntry(buf []byte, valCodec, keyCodec codec.Codec) (DecodedIndexEntry, error) {
	var out DecodedIndexEntry

	if len(buf) < indexPrefixSize || buf[0] != TagIndex {
		return out, ErrMalformedKey
	}

	out.Region = schema.RegionID(getUint64(buf[1:9]))
	out.Attr = schema.AttrID(getUint16(buf[9:11]))
	rest := buf[indexPrefixSize:]

	switch {
	case valCodec.Fixed():
		sz := valCodec.EncodedSize(nil)
		if sz > len(rest) {
			return out, ErrMalformedKey
		}
		val, _, err := valCodec.Decode(rest[:sz])
		if err != nil {
			return out, err
		}
		key, _, err := keyCodec.Decode(rest[sz:])
		if err != nil {
			return out, err
		}
		out.Value, out.Key = val, key
	case keyCodec.Fixed():
		sz := keyCodec.EncodedSize(nil)
		if sz > len(rest) {
			return out, ErrMalformedKey
		}
		valBytes := rest[:len(rest)-sz]
		val, _, err := valCodec.Decode(valBytes)
		if err != nil {
			return out, err
		}
		key, _, err := keyCodec.Decode(rest[len(rest)-sz:])
		if err != nil {
			return out, err
		}
		out.Value, out.Key = val, key
	default:
		if len(rest) < 4 {
			return out, ErrMalformedKey
		}
		keySz := int(getUint32(rest[len(rest)-4:]))
		if keySz+4 > len(rest) {
			return out, ErrMalformedKey
		}
		valBytes := rest[:len(rest)-4-keySz]
		keyBytes := rest[len(rest)-4-keySz : len(rest)-4]
		val, _, err := valCodec.Decode(valBytes)
		if err != nil {
			return out, err
		}
		key, _, err := keyCodec.Decode(keyBytes)
		if err != nil {
			return out, err
		}
		out.Value, out.Key = val, key
	}

	return out, nil
}
