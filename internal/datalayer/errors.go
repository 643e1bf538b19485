package datalayer

import "github.com/cockroachdb/errors"

var (
	// ErrUnknownRegion is returned whenever an operation names a region
	// the injected Registry has no schema or subspace for.
	ErrUnknownRegion = errors.New("hxkv: unknown region")
	// ErrBadEncoding is returned when a stored object's value blob does
	// not match the number of attributes the region's current schema
	// declares, mirroring the original's arity check in uncertain_del
	// and uncertain_put.
	ErrBadEncoding = errors.New("hxkv: object encoding does not match schema")
	// ErrNotFound is returned by Get/Del when the object does not exist,
	// and by GetTransfer when the capture-log entry does not exist.
	ErrNotFound = errors.New("hxkv: object not found")
	// ErrPaused is not returned by any operation in this package: Pause
	// only parks the background cleaner, and writes proceed while it is
	// parked.
	ErrPaused = errors.New("hxkv: data layer is paused")
	// ErrTampered is returned by Initialize when the format-version
	// marker is absent but the state marker is present: a genuinely
	// fresh store has neither, so this combination means something
	// removed or corrupted the version marker on a store that was
	// already set up. Callers must treat this as fatal, never as an
	// invitation to Setup over it.
	ErrTampered = errors.New("hxkv: store metadata is tampered")
)
