package schema

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// StaticRegistry is a reference Registry implementation backed by an
// in-memory map, optionally loaded from a YAML fixture file. It exists so
// cmd/hxkvd can run standalone against a fixture without a real
// coordinator; production deployments inject their own Registry.
type StaticRegistry struct {
	mu     sync.RWMutex
	schema map[RegionID]Schema
	sub    map[RegionID]Subspace
}

// NewStaticRegistry creates an empty registry.
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{
		schema: make(map[RegionID]Schema),
		sub:    make(map[RegionID]Subspace),
	}
}

// Put registers the schema and subspace for a region.
func (r *StaticRegistry) Put(region RegionID, sc Schema, sub Subspace) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schema[region] = sc
	r.sub[region] = sub
}

func (r *StaticRegistry) Schema(region RegionID) (Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sc, ok := r.schema[region]
	return sc, ok
}

func (r *StaticRegistry) Subspace(region RegionID) (Subspace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.sub[region]
	return sub, ok
}

// Regions returns every region id currently registered, in no particular
// order. Used by cmd/hxkvd to adopt every region a fixture declares at
// startup.
func (r *StaticRegistry) Regions() []RegionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RegionID, 0, len(r.schema))
	for region := range r.schema {
		out = append(out, region)
	}
	return out
}

// fixtureFile is the on-disk shape of a schema fixture, deliberately
// simple: one entry per region.
type fixtureFile struct {
	Regions []struct {
		Region  uint64   `yaml:"region"`
		Attrs   []string `yaml:"attrs"`   // "name:type" pairs, attr 0 is the key
		Indexed []int    `yaml:"indexed"` // attribute indices carrying a secondary index
	} `yaml:"regions"`
}

var attrTypeNames = map[string]AttrType{
	"string": AttrString,
	"int64":  AttrInt64,
	"float":  AttrFloat,
	"list":   AttrList,
	"set":    AttrSet,
	"map":    AttrMap,
}

// LoadFixture populates a StaticRegistry from a YAML file in the fixture
// format described by fixtureFile above. Used only for local
// development and tests; production callers supply their own Registry.
func LoadFixture(path string) (*StaticRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hxkv: read schema fixture: %w", err)
	}

	var f fixtureFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("hxkv: parse schema fixture: %w", err)
	}

	reg := NewStaticRegistry()

	for _, r := range f.Regions {
		attrs := make([]Attribute, 0, len(r.Attrs))
		for _, spec := range r.Attrs {
			name, typ, err := splitAttrSpec(spec)
			if err != nil {
				return nil, fmt.Errorf("hxkv: region %d: %w", r.Region, err)
			}
			attrs = append(attrs, Attribute{Name: name, Type: typ})
		}

		indexed := make([]AttrID, 0, len(r.Indexed))
		for _, i := range r.Indexed {
			indexed = append(indexed, AttrID(i))
		}
		sort.Slice(indexed, func(i, j int) bool { return indexed[i] < indexed[j] })

		reg.Put(RegionID(r.Region), Schema{Attrs: attrs}, NewStaticSubspace(indexed...))
	}

	return reg, nil
}

func splitAttrSpec(spec string) (name string, typ AttrType, err error) {
	for i := 0; i < len(spec); i++ {
		if spec[i] == ':' {
			name = spec[:i]
			typeName := spec[i+1:]
			t, ok := attrTypeNames[typeName]
			if !ok {
				return "", 0, fmt.Errorf("unknown attribute type %q", typeName)
			}
			return name, t, nil
		}
	}
	return "", 0, fmt.Errorf("malformed attribute spec %q, want name:type", spec)
}
