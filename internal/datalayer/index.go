package datalayer

import (
	"bytes"

	"github.com/hxkv/hxkv/internal/keyspace"
	"github.com/hxkv/hxkv/internal/schema"
	"github.com/hxkv/hxkv/internal/store"
)

// indexChange is one secondary-index entry to add or remove, computed by
// diffing an object's old and new attribute values against a region's
// indexed attribute set.
type indexChange struct {
	entry []byte
	add   bool
}

// createIndexChanges computes the index-entry deltas for a single write.
// oldAttrs is nil for a fresh insert (nothing to remove); newAttrs is nil
// for a delete (nothing to add). attrs is indexed by AttrID, attrs[0]
// being the object's key.
//
// This mirrors index_primitive.cc's index_changes: for every indexed
// attribute whose encoded value differs between old and new, the old
// entry is removed and the new one added; unchanged attributes produce
// no change at all, and a delete-only or insert-only call produces
// changes on only one side.
func createIndexChanges(sc schema.Schema, sub schema.Subspace, region schema.RegionID, key []byte, oldAttrs, newAttrs [][]byte) []indexChange {
	kc := keyCodec(sc)
	var changes []indexChange

	for _, attr := range sub.IndexedAttrs() {
		vc := attrCodec(sc, attr)

		var oldVal, newVal []byte
		if oldAttrs != nil {
			oldVal = oldAttrs[attr]
		}
		if newAttrs != nil {
			newVal = newAttrs[attr]
		}

		if oldAttrs != nil && newAttrs != nil && bytes.Equal(oldVal, newVal) {
			continue
		}

		if oldAttrs != nil {
			entry := keyspace.EncodeIndexEntry(region, attr, vc, kc, oldVal, key)
			changes = append(changes, indexChange{entry: entry, add: false})
		}
		if newAttrs != nil {
			entry := keyspace.EncodeIndexEntry(region, attr, vc, kc, newVal, key)
			changes = append(changes, indexChange{entry: entry, add: true})
		}
	}

	return changes
}

// applyIndexChanges writes every computed change into an open read-write
// transaction.
func applyIndexChanges(rw *store.ReadWriteTxn, changes []indexChange) error {
	for _, c := range changes {
		if c.add {
			if err := rw.Put(c.entry, nil); err != nil {
				return err
			}
		} else {
			if err := rw.Del(c.entry); err != nil {
				return err
			}
		}
	}
	return nil
}
