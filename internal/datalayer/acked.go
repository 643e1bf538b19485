package datalayer

import (
	"github.com/hxkv/hxkv/internal/keyspace"
	"github.com/hxkv/hxkv/internal/schema"
	"github.com/hxkv/hxkv/internal/store"
)

// CheckAcked reports whether a specific (ri, regID, seqID) marker has
// already been recorded, letting a replaying sender skip work it has
// already gotten an ack for.
func (d *Datalayer) CheckAcked(ri, regID schema.RegionID, seqID uint64) (bool, error) {
	r := d.st.BeginRead()
	defer r.Abort()

	_, ref, rc, err := r.Get(keyspace.EncodeAcked(ri, regID, seqID))
	if err != nil {
		if rc == store.NotFound {
			return false, nil
		}
		return false, err
	}
	ref.Close()
	return true, nil
}

// MarkAcked records that (ri, regID, seqID) has been received, regardless
// of whether it already was.
func (d *Datalayer) MarkAcked(ri, regID schema.RegionID, seqID uint64) error {
	rw := d.st.BeginReadWrite()
	if err := rw.Put(keyspace.EncodeAcked(ri, regID, seqID), nil); err != nil {
		rw.Abort()
		return err
	}
	return rw.Commit()
}

// MaxSeqID returns the highest sequence id acked for (ri, regID), by
// exploiting the inverted encoding: the first marker at or after the
// bare prefix carries the highest seqID within it.
func (d *Datalayer) MaxSeqID(ri, regID schema.RegionID) (seqID uint64, ok bool, err error) {
	r := d.st.BeginRead()
	defer r.Abort()

	cur, cerr := r.Cursor()
	if cerr != nil {
		return 0, false, cerr
	}
	defer cur.Close()

	prefix := keyspace.AckedPrefix(ri, regID)
	if !cur.SetRange(prefix) || !cur.Valid() || !hasPrefix(cur.Key(), prefix) {
		return 0, false, nil
	}

	_, _, seq, derr := keyspace.DecodeAcked(cur.Key())
	if derr != nil {
		return 0, false, derr
	}
	return seq, true, nil
}

// ClearAcked removes every acked marker for (ri, regID) with seqID below
// seqFloor, used once a sender has confirmed it will never resend below
// that floor; markers at or above seqFloor are left intact.
func (d *Datalayer) ClearAcked(ri, regID schema.RegionID, seqFloor uint64) error {
	rw := d.st.BeginReadWrite()

	cur, err := rw.Cursor()
	if err != nil {
		rw.Abort()
		return err
	}

	prefix := keyspace.AckedPrefix(ri, regID)
	for ok := cur.SetRange(prefix); ok && cur.Valid(); ok = cur.Next() {
		if !hasPrefix(cur.Key(), prefix) {
			break
		}
		_, _, seq, derr := keyspace.DecodeAcked(cur.Key())
		if derr != nil {
			cur.Close()
			rw.Abort()
			return derr
		}
		if seq >= seqFloor {
			continue
		}
		if err := cur.Del(); err != nil {
			cur.Close()
			rw.Abort()
			return err
		}
	}
	cur.Close()

	return rw.Commit()
}

// GetTransfer reads a single capture-log entry by (capture, seq), the
// primitive a state-transfer reader repeatedly calls with an
// incrementing seq to replay a stream in order.
func (d *Datalayer) GetTransfer(capture schema.CaptureID, seq uint64) (key []byte, present bool, obj Object, err error) {
	r := d.st.BeginRead()
	defer r.Abort()

	raw, ref, rc, gerr := r.Get(keyspace.EncodeTransfer(capture, seq))
	if gerr != nil {
		if rc == store.NotFound {
			return nil, false, Object{}, ErrNotFound
		}
		return nil, false, Object{}, gerr
	}
	defer ref.Close()

	k, pres, version, attrs, derr := keyspace.DecodeKeyValue(raw)
	if derr != nil {
		return nil, false, Object{}, ErrBadEncoding
	}

	if !pres {
		return k, false, Object{}, nil
	}

	full := make([][]byte, 0, len(attrs)+1)
	full = append(full, k)
	full = append(full, attrs...)
	return k, true, Object{Attrs: full, Version: version}, nil
}

func hasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}
