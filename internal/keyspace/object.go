package keyspace

import (
	"github.com/cockroachdb/errors"

	"github.com/hxkv/hxkv/internal/codec"
	"github.com/hxkv/hxkv/internal/schema"
)

// ErrMalformedKey is returned when decoding encounters a byte string that
// is too short or carries an unexpected tag for the namespace being
// decoded.
var ErrMalformedKey = errors.New("hxkv: malformed key-space entry")

// objectPrefixSize is the size of the tag + region_id prefix shared by
// every object key.
const objectPrefixSize = 1 + 8

// EncodeObjectKey builds the on-disk key for an object: tag 'o', the
// region id, then the key attribute encoded with its type's codec.
func EncodeObjectKey(region schema.RegionID, keyCodec codec.Codec, key []byte) []byte {
	sz := objectPrefixSize + keyCodec.EncodedSize(key)
	buf := make([]byte, sz)
	buf[0] = TagObject
	putUint64(buf[1:9], uint64(region))
	keyCodec.Encode(key, buf[objectPrefixSize:])
	return buf
}

// ObjectPrefix returns the bare tag+region prefix of the object
// namespace, the inclusive lower bound of a full-region scan regardless
// of the key attribute's codec or value distribution.
func ObjectPrefix(region schema.RegionID) []byte {
	buf := make([]byte, objectPrefixSize)
	buf[0] = TagObject
	putUint64(buf[1:9], uint64(region))
	return buf
}

// ObjectKeyUpperBound returns the exclusive upper bound of the object
// namespace for a region, i.e. the smallest key greater than every object
// key in that region. Used to scope a full-region cursor scan.
func ObjectKeyUpperBound(region schema.RegionID) []byte {
	buf := make([]byte, objectPrefixSize)
	buf[0] = TagObject
	putUint64(buf[1:9], uint64(region))
	EncodeBump(buf)
	return buf
}

// DecodeObjectKey reverses EncodeObjectKey, returning the region id and
// the decoded key attribute.
func DecodeObjectKey(buf []byte, keyCodec codec.Codec) (region schema.RegionID, key []byte, err error) {
	if len(buf) < objectPrefixSize || buf[0] != TagObject {
		return 0, nil, ErrMalformedKey
	}
	region = schema.RegionID(getUint64(buf[1:9]))
	key, _, err = keyCodec.Decode(buf[objectPrefixSize:])
	if err != nil {
		return 0, nil, err
	}
	return region, key, nil
}
