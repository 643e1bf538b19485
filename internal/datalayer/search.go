package datalayer

import (
	"github.com/hxkv/hxkv/internal/query"
	"github.com/hxkv/hxkv/internal/schema"
)

// costCutoff is the factor by which a sorted intersection's estimated
// cost must undercut a full region scan for the planner to use it: the
// intersection wins only when its cost times costCutoff is at most the
// full scan's cost, otherwise the full scan (or a cheaper unsorted
// candidate) is used instead.
const costCutoff = 4

// MakeSearchIterator builds the access-path iterator for a set of
// attribute checks: it derives per-attribute ranges, builds an index
// iterator for every range on an indexed, range-capable attribute,
// intersects whichever of those come back naturally sorted by object
// key, and falls back to a full region scan when no indexed access path
// is cheap enough to be worth using. Every candidate ultimately produced
// is wrapped in a post-filter that re-validates every original check,
// so an imprecise or partially-applied access path can never leak a
// false match.
func (d *Datalayer) MakeSearchIterator(snap *Snapshot, region schema.RegionID, checks []query.Check) (Iterator, error) {
	sc, err := d.lookupSchema(region)
	if err != nil {
		return nil, err
	}
	sub, err := d.lookupSubspace(region)
	if err != nil {
		return nil, err
	}

	ranges := query.DeriveRanges(checks)
	for _, r := range ranges {
		if r.Invalid {
			d.metrics.ObserveSearchPlan("empty")
			return emptyIterator{}, nil
		}
	}

	kc := keyCodec(sc)

	var sorted, unsorted []Iterator
	closeAll := func(items []Iterator) {
		for _, it := range items {
			it.Close()
		}
	}

	for _, r := range ranges {
		if !sub.Indexed(r.Attr) {
			continue
		}
		vc := attrCodec(sc, r.Attr)
		if vc == nil || !vc.Sortable() {
			continue
		}

		it, err := newIndexIterator(d.st, snap.txn, region, r.Attr, vc, kc, r)
		if err != nil {
			closeAll(sorted)
			closeAll(unsorted)
			return nil, err
		}

		if it.Sorted() {
			sorted = append(sorted, it)
		} else {
			unsorted = append(unsorted, it)
		}
	}

	full, err := newRegionIterator(d.st, snap.txn, region, kc)
	if err != nil {
		closeAll(sorted)
		closeAll(unsorted)
		return nil, err
	}

	best, strategy := pickBestAccessPath(sorted, unsorted, full)
	d.metrics.ObserveSearchPlan(strategy)

	return newSearchIterator(d, snap, sc, region, best, checks), nil
}

// pickBestAccessPath applies the planner's cost policy: an intersection
// of the sorted candidates wins outright if it is cheap enough relative
// to a full scan; otherwise the cheapest of a full scan and every
// unsorted candidate wins, since at that point none of the sorted
// candidates earned their keep. The returned strategy label names which
// branch was taken, for metrics.
func pickBestAccessPath(sorted, unsorted []Iterator, full *regionIterator) (Iterator, string) {
	var intersect Iterator
	if len(sorted) > 0 {
		intersect = newIntersectIterator(sorted)
	}

	if intersect != nil && intersect.Cost()*costCutoff <= full.Cost() {
		for _, u := range unsorted {
			u.Close()
		}
		full.Close()
		return intersect, "sorted_intersection"
	}

	if intersect != nil {
		intersect.Close()
	}

	candidates := append([]Iterator{Iterator(full)}, unsorted...)
	best := candidates[0]
	strategy := "full_scan"
	for _, c := range candidates[1:] {
		if c.Cost() < best.Cost() {
			best = c
			strategy = "unsorted"
		}
	}
	for _, c := range candidates {
		if c != best {
			c.Close()
		}
	}
	return best, strategy
}
