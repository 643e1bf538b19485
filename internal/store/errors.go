package store

import (
	"errors"
	"io/fs"
	"strings"

	cockroacherrors "github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

// Returncode classifies every outcome the store adapter can report, so
// callers can switch on a small closed set instead of inspecting
// pebble-specific error values directly.
type Returncode uint8

const (
	Success Returncode = iota
	NotFound
	BadEncoding
	Corruption
	IoError
	DbError
)

func (r Returncode) String() string {
	switch r {
	case Success:
		return "success"
	case NotFound:
		return "not found"
	case BadEncoding:
		return "bad encoding"
	case Corruption:
		return "corruption"
	case IoError:
		return "io error"
	case DbError:
		return "db error"
	default:
		return "unknown"
	}
}

// Sentinel errors matching each Returncode, for errors.Is-style checks.
var (
	ErrNotFound        = errors.New("hxkv: not found")
	ErrBadEncoding     = errors.New("hxkv: bad encoding")
	ErrCorruption      = errors.New("hxkv: corruption")
	ErrIoError         = errors.New("hxkv: io error")
	ErrDbError         = errors.New("hxkv: db error")
	ErrInvalidCursorOp = errors.New("hxkv: cursor does not support this operation")
)

func sentinelFor(rc Returncode) error {
	switch rc {
	case NotFound:
		return ErrNotFound
	case BadEncoding:
		return ErrBadEncoding
	case Corruption:
		return ErrCorruption
	case IoError:
		return ErrIoError
	default:
		return ErrDbError
	}
}

// wrapErr classifies an error from pebble or the filesystem into a
// Returncode and wraps it with cockroachdb/errors for stack context,
// keeping the sentinel as the switchable identity.
func wrapErr(err error) (Returncode, error) {
	if err == nil {
		return Success, nil
	}

	if errors.Is(err, pebble.ErrNotFound) {
		return NotFound, cockroacherrors.Mark(cockroacherrors.Wrap(err, "hxkv: not found"), ErrNotFound)
	}

	// pebble does not export a distinct corruption error type; it surfaces
	// on-disk corruption as a plain error whose message is prefixed
	// "pebble: corruption:".
	if strings.Contains(err.Error(), "corruption") {
		return Corruption, cockroacherrors.Mark(cockroacherrors.Wrap(err, "hxkv: corruption"), ErrCorruption)
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return IoError, cockroacherrors.Mark(cockroacherrors.Wrap(err, "hxkv: io error"), ErrIoError)
	}

	return DbError, cockroacherrors.Mark(cockroacherrors.Wrap(err, "hxkv: db error"), ErrDbError)
}
