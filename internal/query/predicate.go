// Package query holds the predicate types the search planner consumes and
// the logic that collapses a set of per-attribute checks into ranges,
// mirroring the original common/range_searches.h.
package query

import "github.com/hxkv/hxkv/internal/schema"

// Predicate names the comparison a Check applies.
type Predicate uint8

const (
	PredicateFail Predicate = iota
	PredicateEquals
	PredicateLessThan
	PredicateLessEqual
	PredicateGreaterThan
	PredicateGreaterEqual
	PredicateRegex
	PredicateLengthEquals
	PredicateContains
)

// Check is a single per-attribute predicate supplied by the caller of a
// search. Value is the already-encoded comparison operand.
type Check struct {
	Attr      schema.AttrID
	Type      schema.AttrType
	Predicate Predicate
	Value     []byte
}
