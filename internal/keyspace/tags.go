// Package keyspace packs and unpacks the namespace-tagged, order-preserving
// byte keys the store adapter reads and writes. Every key on disk starts
// with one of the tags below, chosen with the high bit clear so a tag byte
// never collides with a codec-encoded attribute value and so the tags sort
// into disjoint, contiguous ranges of the keyspace.
package keyspace

import "encoding/binary"

// Namespace tags. On disk they sort as 'a' < 'i' < 'o' < 't'.
const (
	TagAcked    byte = 'a' // acked marker: region_id, reg_id, inverted seq_id
	TagObject   byte = 'o' // object: region_id, key
	TagTransfer byte = 't' // capture/transfer log: capture_id, seq_no
	TagIndex    byte = 'i' // secondary index entry: region_id, attr, value, key[, key length]
)

// Metadata keys are bare literals outside the tagged namespaces; they never
// share a prefix with a tagged key because none of the tags above appear as
// the first byte of these strings.
const (
	MetaHyperdex = "hyperdex" // on-disk format version marker
	MetaState    = "state"    // persisted server_id / bind address
	MetaDirty    = "dirty"    // set on open, cleared on clean shutdown
)

// EncodeBump mutates buf in place into the smallest byte string strictly
// greater than buf, by incrementing it as a big-endian arbitrary-precision
// integer. It is used to turn an inclusive upper bound into an exclusive
// one for cost-estimation range scans. ok is false if buf is already the
// maximum possible string of its length (all 0xff), in which case the bump
// has no representable successor and the caller should treat the range as
// open-ended.
func EncodeBump(buf []byte) (ok bool) {
	for i := len(buf) - 1; i >= 0; i-- {
		if buf[i] != 0xff {
			buf[i]++
			return true
		}
		buf[i] = 0
	}
	return false
}

func putUint64(buf []byte, v uint64) { binary.BigEndian.PutUint64(buf, v) }
func putUint16(buf []byte, v uint16) { binary.BigEndian.PutUint16(buf, v) }
func putUint32(buf []byte, v uint32) { binary.BigEndian.PutUint32(buf, v) }

func getUint64(buf []byte) uint64 { return binary.BigEndian.Uint64(buf) }
func getUint16(buf []byte) uint16 { return binary.BigEndian.Uint16(buf) }
func getUint32(buf []byte) uint32 { return binary.BigEndian.Uint32(buf) }
