package store

import (
	"bytes"
	"io"

	"github.com/cockroachdb/pebble"
)

// ReadTxn is a read-only transaction: a pebble snapshot.
type ReadTxn struct {
	snap *pebble.Snapshot
}

// Get reads a single key. ref, when non-nil, owns the returned bytes and
// must be closed once the caller is done with them; Persist copies the
// bytes out so the snapshot can be released early.
func (t *ReadTxn) Get(key []byte) (value []byte, ref *Reference, rc Returncode, err error) {
	v, closer, gerr := t.snap.Get(key)
	if gerr != nil {
		rc, err = wrapErr(gerr)
		return nil, nil, rc, err
	}
	return v, &Reference{closer: closer}, Success, nil
}

// Cursor opens a cursor over this transaction's view of the keyspace.
func (t *ReadTxn) Cursor() (*Cursor, error) {
	iter := t.snap.NewIter(nil)
	return &Cursor{iter: iter}, nil
}

// Abort discards the transaction, releasing the snapshot.
func (t *ReadTxn) Abort() error {
	if err := t.snap.Close(); err != nil {
		_, wrapped := wrapErr(err)
		return wrapped
	}
	return nil
}

// ReadWriteTxn is a read-write transaction: an indexed batch, so cursors
// and Gets opened from it see its own uncommitted writes.
type ReadWriteTxn struct {
	db    *pebble.DB
	batch *pebble.Batch
}

// Get reads a single key, honoring this transaction's own uncommitted
// writes.
func (t *ReadWriteTxn) Get(key []byte) (value []byte, ref *Reference, rc Returncode, err error) {
	v, closer, gerr := t.batch.Get(key)
	if gerr != nil {
		rc, err = wrapErr(gerr)
		return nil, nil, rc, err
	}
	return v, &Reference{closer: closer}, Success, nil
}

// Put installs or overwrites a key.
func (t *ReadWriteTxn) Put(key, value []byte) error {
	if err := t.batch.Set(key, value, nil); err != nil {
		_, wrapped := wrapErr(err)
		return wrapped
	}
	return nil
}

// Del removes a key. It is not an error for the key to already be absent.
func (t *ReadWriteTxn) Del(key []byte) error {
	if err := t.batch.Delete(key, nil); err != nil {
		_, wrapped := wrapErr(err)
		return wrapped
	}
	return nil
}

// Cursor opens a cursor over this transaction's view of the keyspace,
// including its own uncommitted writes.
func (t *ReadWriteTxn) Cursor() (*Cursor, error) {
	iter := t.batch.NewIter(nil)
	return &Cursor{iter: iter, batch: t.batch}, nil
}

// Commit applies every write made through this transaction atomically.
func (t *ReadWriteTxn) Commit() error {
	if err := t.batch.Commit(pebble.Sync); err != nil {
		_, wrapped := wrapErr(err)
		return wrapped
	}
	return nil
}

// Abort discards every write made through this transaction.
func (t *ReadWriteTxn) Abort() error {
	if err := t.batch.Close(); err != nil {
		_, wrapped := wrapErr(err)
		return wrapped
	}
	return nil
}

// Cursor walks an ordered range of the keyspace. A cursor opened from a
// ReadWriteTxn can also delete the entry it currently points to; a cursor
// opened from a ReadTxn cannot (Del returns an error).
type Cursor struct {
	iter  *pebble.Iterator
	batch *pebble.Batch
}

// SetRange positions the cursor at the first key greater than or equal to
// prefix.
func (c *Cursor) SetRange(prefix []byte) bool {
	return c.iter.SeekGE(prefix)
}

// SetExact positions the cursor at key only if it is present exactly.
func (c *Cursor) SetExact(key []byte) bool {
	return c.iter.SeekGE(key) && bytes.Equal(c.iter.Key(), key)
}

// Valid reports whether the cursor currently points at an entry.
func (c *Cursor) Valid() bool { return c.iter.Valid() }

// Key returns the current entry's key. Only valid while Valid() is true,
// and only until the next cursor movement.
func (c *Cursor) Key() []byte { return c.iter.Key() }

// Value returns the current entry's value, under the same validity rules
// as Key.
func (c *Cursor) Value() []byte { return c.iter.Value() }

// Next advances the cursor.
func (c *Cursor) Next() bool { return c.iter.Next() }

// Del removes the entry the cursor currently points to. Only valid on a
// cursor opened from a ReadWriteTxn.
func (c *Cursor) Del() error {
	if c.batch == nil {
		return ErrInvalidCursorOp
	}
	if err := c.batch.Delete(c.iter.Key(), nil); err != nil {
		_, wrapped := wrapErr(err)
		return wrapped
	}
	return nil
}

// Close releases the cursor's resources.
func (c *Cursor) Close() error {
	if err := c.iter.Close(); err != nil {
		_, wrapped := wrapErr(err)
		return wrapped
	}
	return nil
}

// Reference is a move-only, zero-copy handle onto a value read from the
// store. Persist copies the bytes out so the caller can retain them past
// the reference's Close.
type Reference struct {
	closer io.Closer
	value  []byte
}

// Persist copies the referenced bytes into a caller-owned slice and
// releases the underlying snapshot/batch resource early.
func (r *Reference) Persist(value []byte) []byte {
	out := make([]byte, len(value))
	copy(out, value)
	r.Close()
	return out
}

// Close releases the resource backing this reference. Safe to call
// multiple times.
func (r *Reference) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}
