package keyspace

import "github.com/hxkv/hxkv/internal/schema"

// ackedSize is the fixed size of an acked-marker key: tag, region id,
// sending region id, inverted sequence id.
const ackedSize = 1 + 8 + 8 + 8

// EncodeAcked builds an acked-marker key. seqID is inverted
// (math.MaxUint64 - seqID) before encoding so that, under byte-wise
// compare, markers for increasing sequence ids sort in decreasing key
// order; MaxSeqID relies on this to find the highest acked seq with a
// single cursor seek to the smallest key in the (ri, regID) prefix.
func EncodeAcked(ri, regID schema.RegionID, seqID uint64) []byte {
	buf := make([]byte, ackedSize)
	buf[0] = TagAcked
	putUint64(buf[1:9], uint64(ri))
	putUint64(buf[9:17], uint64(regID))
	putUint64(buf[17:25], ^seqID)
	return buf
}

// AckedPrefix returns the tag+ri+regID prefix shared by every acked
// marker for one sending region within one receiving region.
func AckedPrefix(ri, regID schema.RegionID) []byte {
	buf := make([]byte, 1+8+8)
	buf[0] = TagAcked
	putUint64(buf[1:9], uint64(ri))
	putUint64(buf[9:17], uint64(regID))
	return buf
}

// DecodeAcked reverses EncodeAcked, returning the un-inverted seqID.
func DecodeAcked(buf []byte) (ri, regID schema.RegionID, seqID uint64, err error) {
	if len(buf) != ackedSize || buf[0] != TagAcked {
		return 0, 0, 0, ErrMalformedKey
	}
	ri = schema.RegionID(getUint64(buf[1:9]))
	regID = schema.RegionID(getUint64(buf[9:17]))
	seqID = ^getUint64(buf[17:25])
	return ri, regID, seqID, nil
}
