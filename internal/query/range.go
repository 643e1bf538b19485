package query

import (
	"bytes"

	"github.com/hxkv/hxkv/internal/schema"
)

// Range is a candidate [start, end] range on one attribute's encoded byte
// representation, derived from a set of Checks. It mirrors the original
// range_searches.h output: a half- or fully-bounded interval that the
// datalayer's index iterator turns into an ordered cursor walk.
type Range struct {
	Attr    schema.AttrID
	Type    schema.AttrType
	HasStart, HasEnd             bool
	StartInclusive, EndInclusive bool
	Start, End                   []byte
	// Invalid means the checks that produced this range are self
	// contradictory (e.g. two different equality values, or an empty
	// interval); the caller must short-circuit the whole query to an empty
	// result set.
	Invalid bool
}

// rangeCollapsible reports whether a predicate participates in range
// derivation. Every other predicate is left for per-object post-filtering
// only.
func rangeCollapsible(p Predicate) bool {
	switch p {
	case PredicateEquals, PredicateLessEqual, PredicateLessThan,
		PredicateGreaterEqual, PredicateGreaterThan:
		return true
	default:
		return false
	}
}

// DeriveRanges collapses a flat list of checks into one Range per attribute
// they touch. A single PredicateFail check anywhere short-circuits the
// entire query: DeriveRanges then returns a single Range with Invalid set.
func DeriveRanges(checks []Check) []Range {
	for _, c := range checks {
		if c.Predicate == PredicateFail {
			return []Range{{Invalid: true}}
		}
	}

	byAttr := make(map[schema.AttrID]*Range)
	order := make([]schema.AttrID, 0, len(checks))

	get := func(c Check) *Range {
		r, ok := byAttr[c.Attr]
		if !ok {
			r = &Range{Attr: c.Attr, Type: c.Type}
			byAttr[c.Attr] = r
			order = append(order, c.Attr)
		}
		return r
	}

	for _, c := range checks {
		if !rangeCollapsible(c.Predicate) {
			continue
		}

		r := get(c)

		switch c.Predicate {
		case PredicateEquals:
			if r.HasStart {
				cmp := bytes.Compare(c.Value, r.Start)
				if cmp < 0 || (cmp == 0 && !r.StartInclusive) {
					r.Invalid = true
				}
			}
			if r.HasEnd {
				cmp := bytes.Compare(c.Value, r.End)
				if cmp > 0 || (cmp == 0 && !r.EndInclusive) {
					r.Invalid = true
				}
			}
			r.HasStart, r.HasEnd = true, true
			r.StartInclusive, r.EndInclusive = true, true
			r.Start, r.End = c.Value, c.Value
		case PredicateGreaterEqual, PredicateGreaterThan:
			inclusive := c.Predicate == PredicateGreaterEqual
			tightenStart(r, c.Value, inclusive)
		case PredicateLessEqual, PredicateLessThan:
			inclusive := c.Predicate == PredicateLessEqual
			tightenEnd(r, c.Value, inclusive)
		}
	}

	ranges := make([]Range, 0, len(order))
	for _, attr := range order {
		r := byAttr[attr]
		if !r.Invalid && r.HasStart && r.HasEnd {
			cmp := bytes.Compare(r.Start, r.End)
			if cmp > 0 || (cmp == 0 && !(r.StartInclusive && r.EndInclusive)) {
				r.Invalid = true
			}
		}
		ranges = append(ranges, *r)
	}

	return ranges
}

func tightenStart(r *Range, value []byte, inclusive bool) {
	if !r.HasStart || bytes.Compare(value, r.Start) > 0 ||
		(bytes.Equal(value, r.Start) && !inclusive) {
		r.HasStart = true
		r.Start = value
		r.StartInclusive = inclusive
	}
}

func tightenEnd(r *Range, value []byte, inclusive bool) {
	if !r.HasEnd || bytes.Compare(value, r.End) < 0 ||
		(bytes.Equal(value, r.End) && !inclusive) {
		r.HasEnd = true
		r.End = value
		r.EndInclusive = inclusive
	}
}
