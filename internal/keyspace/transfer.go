package keyspace

import "github.com/hxkv/hxkv/internal/schema"

// transferSize is the fixed size of a capture/transfer log key: tag,
// capture id, sequence number.
const transferSize = 1 + 8 + 8

// EncodeTransfer builds a capture-log key. Entries within one capture
// stream sort by ascending seq, which is what lets the cleaner and the
// state-transfer reader walk a stream in order with a plain cursor scan.
func EncodeTransfer(capture schema.CaptureID, seq uint64) []byte {
	buf := make([]byte, transferSize)
	buf[0] = TagTransfer
	putUint64(buf[1:9], uint64(capture))
	putUint64(buf[9:17], seq)
	return buf
}

// TransferPrefix returns the tag+capture_id prefix shared by every entry
// in one capture stream, used to seek to its start and to bound a scan of
// the whole stream.
func TransferPrefix(capture schema.CaptureID) []byte {
	buf := make([]byte, 1+8)
	buf[0] = TagTransfer
	putUint64(buf[1:9], uint64(capture))
	return buf
}

// DecodeTransfer reverses EncodeTransfer.
func DecodeTransfer(buf []byte) (capture schema.CaptureID, seq uint64, err error) {
	if len(buf) != transferSize || buf[0] != TagTransfer {
		return 0, 0, ErrMalformedKey
	}
	capture = schema.CaptureID(getUint64(buf[1:9]))
	seq = getUint64(buf[9:17])
	return capture, seq, nil
}
