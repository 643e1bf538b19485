// Package schema defines the read-only inputs the data layer consumes from
// the coordinator/config layer: attribute schemas, subspace index
// declarations, and the small set of collaborators the data layer calls
// back into (capture bookkeeping, state-transfer reporting).
package schema

import "sort"

// AttrType names the type of a schema attribute. Codecs are looked up by
// this value (see internal/codec).
type AttrType uint8

const (
	AttrString AttrType = iota
	AttrInt64
	AttrFloat
	AttrList
	AttrSet
	AttrMap
)

func (t AttrType) String() string {
	switch t {
	case AttrString:
		return "string"
	case AttrInt64:
		return "int64"
	case AttrFloat:
		return "float"
	case AttrList:
		return "list"
	case AttrSet:
		return "set"
	case AttrMap:
		return "map"
	default:
		return "unknown"
	}
}

// Attribute describes one schema attribute. Attribute 0 of a Schema is
// always the object's key.
type Attribute struct {
	Name string
	Type AttrType
}

// Schema is the ordered attribute list for a region. It is immutable for
// the lifetime of a configuration.
type Schema struct {
	Attrs []Attribute
}

// KeyType returns the type of attribute 0, the object's key.
func (s Schema) KeyType() AttrType {
	return s.Attrs[0].Type
}

// Len is the number of attributes, including the key.
func (s Schema) Len() int {
	return len(s.Attrs)
}

// Subspace reports which attributes of a region are indexed.
type Subspace interface {
	// Indexed reports whether attr is covered by a secondary index.
	Indexed(attr AttrID) bool
	// IndexedAttrs returns every indexed attribute id, in ascending order.
	IndexedAttrs() []AttrID
}

// StaticSubspace is a Subspace backed by a fixed set, useful for tests and
// the reference registry.
type StaticSubspace struct {
	attrs map[AttrID]bool
}

// NewStaticSubspace builds a Subspace that indexes exactly the given
// attribute ids.
func NewStaticSubspace(attrs ...AttrID) *StaticSubspace {
	m := make(map[AttrID]bool, len(attrs))
	for _, a := range attrs {
		m[a] = true
	}
	return &StaticSubspace{attrs: m}
}

func (s *StaticSubspace) Indexed(attr AttrID) bool {
	return s.attrs[attr]
}

func (s *StaticSubspace) IndexedAttrs() []AttrID {
	out := make([]AttrID, 0, len(s.attrs))
	for a := range s.attrs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
