package datalayer

import (
	"bytes"

	"github.com/hxkv/hxkv/internal/codec"
	"github.com/hxkv/hxkv/internal/keyspace"
	"github.com/hxkv/hxkv/internal/query"
	"github.com/hxkv/hxkv/internal/schema"
	"github.com/hxkv/hxkv/internal/store"
)

// Iterator walks a candidate set of object keys within one region. Cost
// is a snapshot taken when the iterator is built, not a running count of
// remaining work, so the planner can compare candidates before choosing
// one to actually walk. Sorted reports whether keys come out in object
// key order; regionIterator and an equality-derived index iterator are
// sorted by object key, everything else is not. "Sorted" means sorted by
// InternalKey, not by Key: for an int64 or float attribute, Key returns
// the decoded wire value, whose byte order does not match numeric order,
// while InternalKey returns the same sortable encoding the object and
// index namespaces are actually keyed by, and is what a merge-join must
// compare against.
type Iterator interface {
	Valid() bool
	Next() bool
	Key() []byte
	InternalKey() []byte
	Sorted() bool
	Cost() uint64
	Close() error
}

// Snapshot is a point-in-time read-only view of the store that every
// iterator built from it shares, so a multi-iterator search sees one
// consistent version of the data. Close only after every iterator built
// from it has been closed.
type Snapshot struct {
	txn *store.ReadTxn
}

// MakeSnapshot opens a new read-only view of the store.
func (d *Datalayer) MakeSnapshot() *Snapshot {
	return &Snapshot{txn: d.st.BeginRead()}
}

// Close releases the snapshot.
func (s *Snapshot) Close() error {
	return s.txn.Abort()
}

// GetFromIterator fetches the object an iterator currently points at,
// using the same snapshot the iterator was built from so the result is
// consistent with whatever the iterator's cursor observed.
func (d *Datalayer) GetFromIterator(snap *Snapshot, region schema.RegionID, it Iterator) (Object, error) {
	sc, err := d.lookupSchema(region)
	if err != nil {
		return Object{}, err
	}
	return d.getLocked(snap.txn, sc, region, it.Key())
}

// emptyIterator never yields anything, used for a search whose derived
// ranges are self-contradictory.
type emptyIterator struct{}

func (emptyIterator) Valid() bool         { return false }
func (emptyIterator) Next() bool          { return false }
func (emptyIterator) Key() []byte         { return nil }
func (emptyIterator) InternalKey() []byte { return nil }
func (emptyIterator) Sorted() bool        { return true }
func (emptyIterator) Cost() uint64        { return 0 }
func (emptyIterator) Close() error        { return nil }

// regionIterator performs a full, unfiltered scan of every object key in
// a region, in key order.
type regionIterator struct {
	cur       *store.Cursor
	kc        codec.Codec
	prefixLen int
	upper     []byte
	cost      uint64
	valid     bool
	key       []byte
	encKey    []byte
}

func newRegionIterator(st *store.Store, txn *store.ReadTxn, region schema.RegionID, kc codec.Codec) (*regionIterator, error) {
	lower := keyspace.ObjectPrefix(region)
	upper := keyspace.ObjectKeyUpperBound(region)

	cost, err := st.ApproximateRangeSize(lower, upper)
	if err != nil {
		return nil, err
	}

	cur, err := txn.Cursor()
	if err != nil {
		return nil, err
	}

	it := &regionIterator{cur: cur, kc: kc, prefixLen: len(lower), upper: upper, cost: cost}
	it.valid = cur.SetRange(lower)
	it.advance()
	return it, nil
}

func (it *regionIterator) advance() {
	if !it.valid || !it.cur.Valid() || bytes.Compare(it.cur.Key(), it.upper) >= 0 {
		it.valid = false
		return
	}
	raw := it.cur.Key()
	_, key, err := keyspace.DecodeObjectKey(raw, it.kc)
	if err != nil {
		it.valid = false
		return
	}
	it.key = key
	it.encKey = append([]byte(nil), raw[it.prefixLen:]...)
}

func (it *regionIterator) Valid() bool { return it.valid }
func (it *regionIterator) Next() bool {
	if !it.valid {
		return false
	}
	it.valid = it.cur.Next()
	it.advance()
	return it.valid
}
func (it *regionIterator) Key() []byte         { return it.key }
func (it *regionIterator) InternalKey() []byte { return it.encKey }
func (it *regionIterator) Sorted() bool        { return true }
func (it *regionIterator) Cost() uint64        { return it.cost }
func (it *regionIterator) Close() error        { return it.cur.Close() }

// MakeRegionIterator builds a full-scan iterator over a region, the
// access path used when a search has no usable indexed checks at all.
func (d *Datalayer) MakeRegionIterator(snap *Snapshot, region schema.RegionID) (Iterator, error) {
	sc, err := d.lookupSchema(region)
	if err != nil {
		return nil, err
	}
	return newRegionIterator(d.st, snap.txn, region, keyCodec(sc))
}

// indexIterator walks the run of index entries for one attribute falling
// within a derived Range, yielding the object keys they reference.
// Sorted reports true only when the Range collapsed from an equality
// check: an equality range's entries share one value and so sort purely
// by object key, but a genuine inequality range's entries sort primarily
// by value, which does not imply an object-key order an intersect merge
// could rely on.
type indexIterator struct {
	cur        *store.Cursor
	valCodec   codec.Codec
	keyCodec   codec.Codec
	r          query.Range
	attrPrefix []byte
	sorted     bool
	cost       uint64
	valid      bool
	key        []byte
	encKey     []byte
}

func newIndexIterator(st *store.Store, txn *store.ReadTxn, region schema.RegionID, attr schema.AttrID, valCodec, keyCodec codec.Codec, r query.Range) (*indexIterator, error) {
	attrPrefix := keyspace.EncodeIndexPrefix(region, attr)

	// r.Start/r.End are already codec-encoded (query.Check.Value's
	// contract), the same sortable byte form index entries are keyed by,
	// so the seek bound is a plain concatenation rather than another
	// pass through valCodec.Encode.
	lower := attrPrefix
	if r.HasStart {
		lower = append(append([]byte(nil), attrPrefix...), r.Start...)
	}

	// costUpper is an approximation only: bounding the disk-usage estimate
	// by the start of the End value's run rather than its exact end
	// slightly undercounts a range iterator's true cost, which is
	// acceptable for a planner heuristic that only needs to compare
	// candidates against each other.
	costUpper := append([]byte(nil), attrPrefix...)
	keyspace.EncodeBump(costUpper)
	if r.HasEnd {
		costUpper = append(append([]byte(nil), attrPrefix...), r.End...)
	}

	cost, err := st.ApproximateRangeSize(lower, costUpper)
	if err != nil {
		return nil, err
	}

	cur, err := txn.Cursor()
	if err != nil {
		return nil, err
	}

	equality := r.HasStart && r.HasEnd && r.StartInclusive && r.EndInclusive && bytes.Equal(r.Start, r.End)

	it := &indexIterator{
		cur:        cur,
		valCodec:   valCodec,
		keyCodec:   keyCodec,
		r:          r,
		attrPrefix: attrPrefix,
		sorted:     equality,
		cost:       cost,
	}
	it.valid = cur.SetRange(lower)
	it.advance()
	return it, nil
}

func (it *indexIterator) advance() {
	for it.valid && it.cur.Valid() {
		raw := it.cur.Key()
		if !bytes.HasPrefix(raw, it.attrPrefix) {
			it.valid = false
			return
		}

		dec, err := keyspace.DecodeIndexEntry(raw, it.valCodec, it.keyCodec)
		if err != nil {
			it.valid = false
			return
		}

		// dec.Value is the decoded wire value; re-encode it to compare
		// against r.Start/r.End, which are already in the sortable
		// encoded form query.Check.Value carries.
		encVal := make([]byte, it.valCodec.EncodedSize(dec.Value))
		it.valCodec.Encode(dec.Value, encVal)

		if it.r.HasStart && !it.r.StartInclusive && bytes.Equal(encVal, it.r.Start) {
			it.valid = it.cur.Next()
			continue
		}

		if it.r.HasEnd {
			cmp := bytes.Compare(encVal, it.r.End)
			if cmp > 0 || (cmp == 0 && !it.r.EndInclusive) {
				it.valid = false
				return
			}
		}

		it.key = dec.Key

		// dec.Key is the decoded wire value, whose byte order can disagree
		// with the object namespace's actual key order (e.g. int64 and
		// float keys). Re-encode it into the same sortable form the object
		// and index namespaces are keyed by, so a merge-join can compare
		// entries from this iterator against a regionIterator's encoded
		// keys directly.
		enc := make([]byte, it.keyCodec.EncodedSize(dec.Key))
		it.keyCodec.Encode(dec.Key, enc)
		it.encKey = enc
		return
	}
	it.valid = false
}

func (it *indexIterator) Valid() bool { return it.valid }
func (it *indexIterator) Next() bool {
	if !it.valid {
		return false
	}
	it.valid = it.cur.Next()
	it.advance()
	return it.valid
}
func (it *indexIterator) Key() []byte         { return it.key }
func (it *indexIterator) InternalKey() []byte { return it.encKey }
func (it *indexIterator) Sorted() bool        { return it.sorted }
func (it *indexIterator) Cost() uint64        { return it.cost }
func (it *indexIterator) Close() error        { return it.cur.Close() }

// intersectIterator merge-joins any number of key-sorted iterators,
// yielding only keys present in every one of them. Every input must
// report Sorted() true.
type intersectIterator struct {
	items       []Iterator
	key         []byte
	internalKey []byte
	valid       bool
}

func newIntersectIterator(items []Iterator) *intersectIterator {
	it := &intersectIterator{items: items}
	it.valid = len(items) > 0
	it.settle()
	return it
}

// settle advances every item forward until they all agree on the same
// key, or one runs out. The merge-join compares InternalKey, the
// sortable encoding every Sorted() input actually shares a byte order
// with; Key (the decoded wire value) would agree for string keys but
// not for int64 or float ones.
func (it *intersectIterator) settle() {
	if !it.valid {
		return
	}
	for {
		for _, item := range it.items {
			if !item.Valid() {
				it.valid = false
				return
			}
		}

		maxKey := it.items[0].InternalKey()
		for _, item := range it.items[1:] {
			if bytes.Compare(item.InternalKey(), maxKey) > 0 {
				maxKey = item.InternalKey()
			}
		}

		allEqual := true
		for _, item := range it.items {
			if !bytes.Equal(item.InternalKey(), maxKey) {
				allEqual = false
				if !advanceTo(item, maxKey) {
					it.valid = false
					return
				}
			}
		}

		if allEqual {
			it.key = it.items[0].Key()
			it.internalKey = maxKey
			return
		}
	}
}

// advanceTo moves item forward, without an explicit seek primitive on
// Iterator, until it reaches or passes target.
func advanceTo(item Iterator, target []byte) bool {
	for item.Valid() && bytes.Compare(item.InternalKey(), target) < 0 {
		if !item.Next() {
			return false
		}
	}
	return item.Valid()
}

func (it *intersectIterator) Valid() bool { return it.valid }
func (it *intersectIterator) Next() bool {
	if !it.valid {
		return false
	}
	for _, item := range it.items {
		if !item.Next() {
			it.valid = false
			return false
		}
	}
	it.settle()
	return it.valid
}
func (it *intersectIterator) Key() []byte         { return it.key }
func (it *intersectIterator) InternalKey() []byte { return it.internalKey }
func (it *intersectIterator) Sorted() bool        { return true }
func (it *intersectIterator) Cost() uint64 {
	// An intersection can never produce more matches than its cheapest
	// input scans, so its cost is bounded by the minimum of its inputs.
	min := it.items[0].Cost()
	for _, item := range it.items[1:] {
		if item.Cost() < min {
			min = item.Cost()
		}
	}
	return min
}
func (it *intersectIterator) Close() error {
	var firstErr error
	for _, item := range it.items {
		if err := item.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// searchIterator wraps an access-path iterator with a post-filter that
// re-checks every original predicate against the object's actual
// attribute values, so the result set is correct even when the access
// path only partially enforced (or entirely ignored) some of the checks.
type searchIterator struct {
	d      *Datalayer
	snap   *Snapshot
	sc     schema.Schema
	region schema.RegionID
	inner  Iterator
	checks []query.Check
}

func newSearchIterator(d *Datalayer, snap *Snapshot, sc schema.Schema, region schema.RegionID, inner Iterator, checks []query.Check) *searchIterator {
	s := &searchIterator{d: d, snap: snap, sc: sc, region: region, inner: inner, checks: checks}
	s.skipToMatch()
	return s
}

func (s *searchIterator) matches() bool {
	obj, err := s.d.getLocked(s.snap.txn, s.sc, s.region, s.inner.Key())
	if err != nil {
		return false
	}
	for _, c := range s.checks {
		if int(c.Attr) >= len(obj.Attrs) || !query.Evaluate(c, obj.Attrs[c.Attr]) {
			return false
		}
	}
	return true
}

func (s *searchIterator) skipToMatch() {
	for s.inner.Valid() && !s.matches() {
		s.inner.Next()
	}
}

func (s *searchIterator) Valid() bool         { return s.inner.Valid() }
func (s *searchIterator) Key() []byte         { return s.inner.Key() }
func (s *searchIterator) InternalKey() []byte { return s.inner.InternalKey() }
func (s *searchIterator) Sorted() bool        { return s.inner.Sorted() }
func (s *searchIterator) Cost() uint64        { return s.inner.Cost() }
func (s *searchIterator) Close() error        { return s.inner.Close() }
func (s *searchIterator) Next() bool {
	if !s.inner.Next() {
		return false
	}
	s.skipToMatch()
	return s.inner.Valid()
}

