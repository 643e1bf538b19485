package datalayer

import (
	"encoding/binary"

	"github.com/hxkv/hxkv/internal/keyspace"
	"github.com/hxkv/hxkv/internal/store"
)

// CurrentFormatVersion is written under keyspace.MetaHyperdex on Setup and
// checked on Initialize; a mismatch means the on-disk format predates this
// binary and must not be opened blindly.
const CurrentFormatVersion = 1

// metaHyperdexKey, metaStateKey and metaDirtyKey are the literal
// (untagged) metadata keys living outside every namespace tag.
var (
	metaHyperdexKey = []byte(keyspace.MetaHyperdex)
	metaStateKey    = []byte(keyspace.MetaState)
	metaDirtyKey    = []byte(keyspace.MetaDirty)
)

// State is the small piece of identity persisted across restarts: the
// server id assigned at first Setup and the address it last bound to.
type State struct {
	ServerID uint64
	BindAddr string
}

// Setup initializes a brand-new store: writes the format version marker
// and the initial server state. Callers must not call Setup against a
// store that has already been set up; use Initialize to open an
// existing one.
func (d *Datalayer) Setup(st State) error {
	rw := d.st.BeginReadWrite()

	verBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(verBuf, CurrentFormatVersion)
	if err := rw.Put(metaHyperdexKey, verBuf); err != nil {
		rw.Abort()
		return err
	}
	if err := rw.Put(metaStateKey, encodeState(st)); err != nil {
		rw.Abort()
		return err
	}
	if err := rw.Put(metaDirtyKey, []byte{1}); err != nil {
		rw.Abort()
		return err
	}

	return rw.Commit()
}

// Initialize opens an existing store, validating its format version and
// reporting whether it was left dirty by an unclean shutdown. Callers
// that get dirty=true should run a consistency pass (or at minimum log
// a warning) before serving traffic.
func (d *Datalayer) Initialize() (st State, dirty bool, err error) {
	r := d.st.BeginRead()
	defer r.Abort()

	verBytes, verRef, rc, err := r.Get(metaHyperdexKey)
	if err != nil {
		if rc != store.NotFound {
			return State{}, false, err
		}
		// No format-version marker. A genuinely fresh store has no state
		// marker either; one present without the other means the version
		// marker was lost or stripped from a store that was already set
		// up, which is tampering, not first boot.
		_, stRef, stRC, stErr := r.Get(metaStateKey)
		if stRC == store.Success {
			stRef.Close()
			return State{}, false, ErrTampered
		}
		if stErr != nil && stRC != store.NotFound {
			return State{}, false, stErr
		}
		return State{}, false, ErrBadEncoding
	}
	defer verRef.Close()
	if len(verBytes) != 4 || binary.LittleEndian.Uint32(verBytes) != CurrentFormatVersion {
		return State{}, false, ErrBadEncoding
	}

	stBytes, stRef, rc, err := r.Get(metaStateKey)
	if err != nil {
		if rc == store.NotFound {
			return State{}, false, ErrBadEncoding
		}
		return State{}, false, err
	}
	defer stRef.Close()
	st, err = decodeState(stBytes)
	if err != nil {
		return State{}, false, err
	}

	_, dirtyRef, rc, err := r.Get(metaDirtyKey)
	if err != nil && rc != store.NotFound {
		return State{}, false, err
	}
	if dirtyRef != nil {
		defer dirtyRef.Close()
	}
	dirty = rc == store.Success

	return st, dirty, nil
}

// SaveState persists an updated server state, e.g. after a bind address
// changes.
func (d *Datalayer) SaveState(st State) error {
	rw := d.st.BeginReadWrite()
	if err := rw.Put(metaStateKey, encodeState(st)); err != nil {
		rw.Abort()
		return err
	}
	return rw.Commit()
}

// ClearDirty removes the dirty marker, recording a clean shutdown. It is
// idempotent: deleting an absent key is not an error.
func (d *Datalayer) ClearDirty() error {
	rw := d.st.BeginReadWrite()
	if err := rw.Del(metaDirtyKey); err != nil {
		rw.Abort()
		return err
	}
	return rw.Commit()
}

// MarkDirty (re)installs the dirty marker; the daemon calls it once at
// startup, after Initialize/Setup, so that if the process dies before
// ClearDirty the next Initialize can detect it.
func (d *Datalayer) MarkDirty() error {
	rw := d.st.BeginReadWrite()
	if err := rw.Put(metaDirtyKey, []byte{1}); err != nil {
		rw.Abort()
		return err
	}
	return rw.Commit()
}

func encodeState(st State) []byte {
	addr := []byte(st.BindAddr)
	buf := make([]byte, 8+4+len(addr))
	binary.LittleEndian.PutUint64(buf[:8], st.ServerID)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(addr)))
	copy(buf[12:], addr)
	return buf
}

func decodeState(buf []byte) (State, error) {
	if len(buf) < 12 {
		return State{}, ErrBadEncoding
	}
	id := binary.LittleEndian.Uint64(buf[:8])
	n := int(binary.LittleEndian.Uint32(buf[8:12]))
	if n+12 > len(buf) {
		return State{}, ErrBadEncoding
	}
	return State{ServerID: id, BindAddr: string(buf[12 : 12+n])}, nil
}
