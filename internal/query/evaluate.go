package query

import (
	"bytes"
	"encoding/binary"
	"regexp"

	"github.com/hxkv/hxkv/internal/codec"
)

// Evaluate reports whether a single wire-encoded attribute value satisfies
// a check. It is the post-filter every search result is re-validated
// against, regardless of which access path (index range, intersection,
// full scan) produced the candidate key, so a check an access path only
// partially enforced (or didn't enforce at all) can never leak a false
// match into the result set.
func Evaluate(c Check, attrValue []byte) bool {
	switch c.Predicate {
	case PredicateFail:
		return false
	case PredicateEquals, PredicateLessThan, PredicateLessEqual, PredicateGreaterThan, PredicateGreaterEqual:
		return evaluateOrdered(c, attrValue)
	case PredicateLengthEquals:
		if len(c.Value) != 8 {
			return false
		}
		return uint64(len(attrValue)) == binary.LittleEndian.Uint64(c.Value)
	case PredicateContains:
		return bytes.Contains(attrValue, c.Value)
	case PredicateRegex:
		re, err := regexp.Compile(string(c.Value))
		if err != nil {
			return false
		}
		return re.Match(attrValue)
	default:
		return false
	}
}

func evaluateOrdered(c Check, attrValue []byte) bool {
	cd := codec.Lookup(c.Type)
	if cd == nil || !cd.Sortable() {
		return false
	}

	encoded := make([]byte, cd.EncodedSize(attrValue))
	cd.Encode(attrValue, encoded)

	cmp := bytes.Compare(encoded, c.Value)
	switch c.Predicate {
	case PredicateEquals:
		return cmp == 0
	case PredicateLessThan:
		return cmp < 0
	case PredicateLessEqual:
		return cmp <= 0
	case PredicateGreaterThan:
		return cmp > 0
	case PredicateGreaterEqual:
		return cmp >= 0
	default:
		return false
	}
}

