package datalayer

import (
	"time"

	"github.com/hxkv/hxkv/internal/keyspace"
	"github.com/hxkv/hxkv/internal/metrics"
	"github.com/hxkv/hxkv/internal/schema"
	"github.com/hxkv/hxkv/internal/store"
)

// Object is a decoded object: its full attribute vector (attrs[0] is the
// wire-encoded key, attrs[1:] the remaining attributes, in schema order)
// and its version.
type Object struct {
	Attrs   [][]byte
	Version uint64
}

// Get reads the current value of key in region. It never mutates the
// capture log or acked markers: those only change as a side effect of a
// write.
func (d *Datalayer) Get(region schema.RegionID, key []byte) (obj Object, err error) {
	defer func(start time.Time) { d.metrics.ObserveOp("get", time.Since(start), metrics.OutcomeOf(err)) }(time.Now())

	sc, err := d.lookupSchema(region)
	if err != nil {
		return Object{}, err
	}

	r := d.st.BeginRead()
	defer r.Abort()

	obj, err = d.getLocked(r, sc, region, key)
	return obj, err
}

func (d *Datalayer) getLocked(r txnReader, sc schema.Schema, region schema.RegionID, key []byte) (Object, error) {
	objKey := keyspace.EncodeObjectKey(region, keyCodec(sc), key)

	raw, ref, rc, err := r.Get(objKey)
	if err != nil {
		if rc == store.NotFound {
			return Object{}, ErrNotFound
		}
		return Object{}, err
	}
	defer ref.Close()

	version, attrs, err := keyspace.DecodeObjectValue(raw)
	if err != nil {
		return Object{}, ErrBadEncoding
	}
	if len(attrs)+1 != sc.Len() {
		return Object{}, ErrBadEncoding
	}

	full := make([][]byte, sc.Len())
	full[0] = append([]byte(nil), key...)
	copy(full[1:], attrs)

	return Object{Attrs: full, Version: version}, nil
}

// txnReader is the subset of store.ReadTxn/store.ReadWriteTxn that Get
// needs, letting getLocked run inside either kind of transaction.
type txnReader interface {
	Get(key []byte) (value []byte, ref *store.Reference, rc store.Returncode, err error)
}

// recordAckedAndTransfer applies the two side effects every successful
// write/delete carries: an acked marker when seqID is non-zero, and a
// capture-log entry when the region is currently being captured.
func (d *Datalayer) recordAckedAndTransfer(rw *store.ReadWriteTxn, ri, region schema.RegionID, seqID uint64, key []byte, present bool, obj Object) error {
	if seqID != 0 {
		if err := rw.Put(keyspace.EncodeAcked(ri, region, seqID), nil); err != nil {
			return err
		}
	}

	if capture, seq, ok := d.captureFor(region); ok {
		var kv []byte
		if present {
			kv = keyspace.EncodeKeyValue(key, true, obj.Version, obj.Attrs[1:])
		} else {
			kv = keyspace.EncodeKeyValue(key, false, 0, nil)
		}
		if err := rw.Put(keyspace.EncodeTransfer(capture, seq), kv); err != nil {
			return err
		}
	}

	return nil
}

// captureFor reports whether region is currently captured and, if so,
// the capture id and the next sequence number to use, advancing the
// in-memory counter.
func (d *Datalayer) captureFor(region schema.RegionID) (capture schema.CaptureID, seq uint64, ok bool) {
	capture, captured := d.captures.CaptureFor(region)
	if !captured {
		return 0, 0, false
	}
	seq, ok = d.nextCaptureSeq(region)
	if !ok {
		return 0, 0, false
	}
	return capture, seq, true
}

// Put installs a new object, unconditionally. It never removes stale
// index entries left over from a previous live value at the same key:
// create_index_changes is invoked with no old attribute vector, so an
// overwrite of a live key can leave dangling index entries pointing at
// the pre-existing value. Callers that may be overwriting a live key
// should route through UncertainPut instead, which reads the old value
// first and calls Overput when one exists.
func (d *Datalayer) Put(ri, region schema.RegionID, seqID uint64, key []byte, attrs [][]byte, version uint64) (err error) {
	defer func(start time.Time) { d.metrics.ObserveOp("put", time.Since(start), metrics.OutcomeOf(err)) }(time.Now())

	sc, err := d.lookupSchema(region)
	if err != nil {
		return err
	}
	sub, err := d.lookupSubspace(region)
	if err != nil {
		return err
	}

	rw := d.st.BeginReadWrite()

	objKey := keyspace.EncodeObjectKey(region, keyCodec(sc), key)
	if err := rw.Put(objKey, keyspace.EncodeObjectValue(version, attrs[1:])); err != nil {
		rw.Abort()
		return err
	}

	changes := createIndexChanges(sc, sub, region, key, nil, attrs)
	if err := applyIndexChanges(rw, changes); err != nil {
		rw.Abort()
		return err
	}

	obj := Object{Attrs: attrs, Version: version}
	if err := d.recordAckedAndTransfer(rw, ri, region, seqID, key, true, obj); err != nil {
		rw.Abort()
		return err
	}

	return rw.Commit()
}

// Del removes an object. oldAttrs is the attribute vector being removed,
// supplied by the caller rather than read back from the store, so that a
// caller already holding the old value (as UncertainDel does) does not
// pay for a second read inside the same logical operation.
func (d *Datalayer) Del(ri, region schema.RegionID, seqID uint64, key []byte, oldAttrs [][]byte) (err error) {
	defer func(start time.Time) { d.metrics.ObserveOp("del", time.Since(start), metrics.OutcomeOf(err)) }(time.Now())

	sc, err := d.lookupSchema(region)
	if err != nil {
		return err
	}
	sub, err := d.lookupSubspace(region)
	if err != nil {
		return err
	}

	rw := d.st.BeginReadWrite()

	objKey := keyspace.EncodeObjectKey(region, keyCodec(sc), key)
	_, ref, rc, err := rw.Get(objKey)
	if err != nil {
		rw.Abort()
		if rc == store.NotFound {
			return ErrNotFound
		}
		return err
	}
	ref.Close()

	if err := rw.Del(objKey); err != nil {
		rw.Abort()
		return err
	}

	changes := createIndexChanges(sc, sub, region, key, oldAttrs, nil)
	if err := applyIndexChanges(rw, changes); err != nil {
		rw.Abort()
		return err
	}

	if err := d.recordAckedAndTransfer(rw, ri, region, seqID, key, false, Object{}); err != nil {
		rw.Abort()
		return err
	}

	return rw.Commit()
}

// Overput replaces an object, correctly removing every stale index entry
// the old attribute vector produced. This is the only write path that
// computes a proper before/after index delta; Put deliberately does not.
func (d *Datalayer) Overput(ri, region schema.RegionID, seqID uint64, key []byte, oldAttrs, newAttrs [][]byte, version uint64) (err error) {
	defer func(start time.Time) { d.metrics.ObserveOp("overput", time.Since(start), metrics.OutcomeOf(err)) }(time.Now())

	sc, err := d.lookupSchema(region)
	if err != nil {
		return err
	}
	sub, err := d.lookupSubspace(region)
	if err != nil {
		return err
	}

	rw := d.st.BeginReadWrite()

	objKey := keyspace.EncodeObjectKey(region, keyCodec(sc), key)
	if err := rw.Put(objKey, keyspace.EncodeObjectValue(version, newAttrs[1:])); err != nil {
		rw.Abort()
		return err
	}

	changes := createIndexChanges(sc, sub, region, key, oldAttrs, newAttrs)
	if err := applyIndexChanges(rw, changes); err != nil {
		rw.Abort()
		return err
	}

	obj := Object{Attrs: newAttrs, Version: version}
	if err := d.recordAckedAndTransfer(rw, ri, region, seqID, key, true, obj); err != nil {
		rw.Abort()
		return err
	}

	return rw.Commit()
}

// UncertainDel deletes key without the caller needing to know whether it
// currently exists or what its value is: it reads the current value
// under a read-only transaction, validates it against the region's
// schema arity, copies the decoded attribute vector out, and only then
// aborts the read-only transaction and calls Del with the copied data.
// Decoding already allocates fresh backing arrays for every attribute
// (see keyspace.DecodeObjectValue), so nothing here aliases memory owned
// by the aborted transaction; the copy-before-abort structure is kept
// explicit anyway so the data flow does not depend on transaction
// lifetime at all.
func (d *Datalayer) UncertainDel(ri, region schema.RegionID, key []byte) (err error) {
	defer func(start time.Time) {
		d.metrics.ObserveOp("uncertain_del", time.Since(start), metrics.OutcomeOf(err))
	}(time.Now())

	sc, err := d.lookupSchema(region)
	if err != nil {
		return err
	}

	r := d.st.BeginRead()
	obj, getErr := d.getLocked(r, sc, region, key)
	abortErr := r.Abort()

	if getErr != nil {
		if getErr == ErrNotFound {
			return nil
		}
		return getErr
	}
	if abortErr != nil {
		return abortErr
	}

	return d.Del(ri, region, 0, key, obj.Attrs)
}

// UncertainPut writes key regardless of whether it currently exists: if
// it does, the old value is read first and the write becomes an Overput
// so stale index entries are cleaned up; if it does not, the write is a
// plain Put.
func (d *Datalayer) UncertainPut(ri, region schema.RegionID, key []byte, newAttrs [][]byte, version uint64) (err error) {
	defer func(start time.Time) {
		d.metrics.ObserveOp("uncertain_put", time.Since(start), metrics.OutcomeOf(err))
	}(time.Now())

	sc, err := d.lookupSchema(region)
	if err != nil {
		return err
	}

	r := d.st.BeginRead()
	obj, getErr := d.getLocked(r, sc, region, key)
	abortErr := r.Abort()

	if getErr != nil && getErr != ErrNotFound {
		return getErr
	}
	if abortErr != nil {
		return abortErr
	}

	if getErr == ErrNotFound {
		return d.Put(ri, region, 0, key, newAttrs, version)
	}
	return d.Overput(ri, region, 0, key, obj.Attrs, newAttrs, version)
}
