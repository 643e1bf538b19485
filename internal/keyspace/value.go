package keyspace

import "encoding/binary"

// Object and capture-log values are stored little-endian: they are read
// far more often on the hot get/put path than on the key-comparison path,
// so there is no reason to pay for order-preserving encoding here.

// EncodeObjectValue packs an object's version and its non-key attribute
// values (already wire-encoded by the caller) into a single value blob.
func EncodeObjectValue(version uint64, attrs [][]byte) []byte {
	sz := 8
	for _, a := range attrs {
		sz += 4 + len(a)
	}
	buf := make([]byte, sz)
	binary.LittleEndian.PutUint64(buf[:8], version)
	off := 8
	for _, a := range attrs {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(a)))
		off += 4
		off += copy(buf[off:], a)
	}
	return buf
}

// DecodeObjectValue reverses EncodeObjectValue.
func DecodeObjectValue(buf []byte) (version uint64, attrs [][]byte, err error) {
	if len(buf) < 8 {
		return 0, nil, ErrMalformedKey
	}
	version = binary.LittleEndian.Uint64(buf[:8])
	rest := buf[8:]
	for len(rest) > 0 {
		if len(rest) < 4 {
			return 0, nil, ErrMalformedKey
		}
		n := int(binary.LittleEndian.Uint32(rest[:4]))
		rest = rest[4:]
		if n > len(rest) {
			return 0, nil, ErrMalformedKey
		}
		v := make([]byte, n)
		copy(v, rest[:n])
		attrs = append(attrs, v)
		rest = rest[n:]
	}
	return version, attrs, nil
}

// EncodeKeyValue packs a capture-log entry: the object key, and, when
// present is true, the object's version and attribute values. A capture
// entry for a delete carries present=false and no value payload, letting
// state-transfer readers replay both puts and deletes from one stream.
func EncodeKeyValue(key []byte, present bool, version uint64, attrs [][]byte) []byte {
	body := []byte{}
	if present {
		body = EncodeObjectValue(version, attrs)
	}

	buf := make([]byte, 1+4+len(key)+len(body))
	if present {
		buf[0] = 1
	}
	binary.LittleEndian.PutUint32(buf[1:5], uint32(len(key)))
	off := 5
	off += copy(buf[off:], key)
	copy(buf[off:], body)
	return buf
}

// DecodeKeyValue reverses EncodeKeyValue.
func DecodeKeyValue(buf []byte) (key []byte, present bool, version uint64, attrs [][]byte, err error) {
	if len(buf) < 5 {
		return nil, false, 0, nil, ErrMalformedKey
	}
	present = buf[0] == 1
	keyLen := int(binary.LittleEndian.Uint32(buf[1:5]))
	if keyLen+5 > len(buf) {
		return nil, false, 0, nil, ErrMalformedKey
	}
	key = make([]byte, keyLen)
	copy(key, buf[5:5+keyLen])

	if present {
		version, attrs, err = DecodeObjectValue(buf[5+keyLen:])
		if err != nil {
			return nil, false, 0, nil, err
		}
	}

	return key, present, version, attrs, nil
}

