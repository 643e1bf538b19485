package schema

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStaticRegistryPutAndLookup(t *testing.T) {
	reg := NewStaticRegistry()
	sc := Schema{Attrs: []Attribute{{Name: "key", Type: AttrString}}}
	sub := NewStaticSubspace(0)

	reg.Put(1, sc, sub)

	got, ok := reg.Schema(1)
	if !ok || len(got.Attrs) != 1 {
		t.Fatalf("Schema(1) = %+v, %v", got, ok)
	}
	if _, ok := reg.Schema(2); ok {
		t.Fatalf("Schema(2) should be unknown")
	}
}

func TestStaticRegistryRegions(t *testing.T) {
	reg := NewStaticRegistry()
	reg.Put(1, Schema{}, NewStaticSubspace())
	reg.Put(2, Schema{}, NewStaticSubspace())

	got := reg.Regions()
	seen := map[RegionID]bool{}
	for _, r := range got {
		seen[r] = true
	}
	if len(seen) != 2 || !seen[1] || !seen[2] {
		t.Errorf("Regions() = %v, want {1, 2}", got)
	}
}

func TestLoadFixture(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.yaml")
	yaml := `
regions:
  - region: 1
    attrs: ["key:string", "name:string", "age:int64"]
    indexed: [1, 2]
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reg, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	sc, ok := reg.Schema(1)
	if !ok {
		t.Fatalf("region 1 not loaded")
	}
	if len(sc.Attrs) != 3 || sc.Attrs[0].Name != "key" || sc.Attrs[2].Type != AttrInt64 {
		t.Fatalf("got %+v", sc.Attrs)
	}

	sub, ok := reg.Subspace(1)
	if !ok {
		t.Fatalf("subspace 1 not loaded")
	}
	if !sub.Indexed(1) || !sub.Indexed(2) || sub.Indexed(0) {
		t.Errorf("unexpected index declarations for region 1")
	}
}

func TestLoadFixtureRejectsUnknownType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.yaml")
	yaml := `
regions:
  - region: 1
    attrs: ["key:nonsense"]
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := LoadFixture(path); err == nil {
		t.Fatalf("expected an error for an unknown attribute type")
	}
}

func TestLoadFixtureMissingFile(t *testing.T) {
	if _, err := LoadFixture("/does/not/exist.yaml"); err == nil {
		t.Fatalf("expected an error for a missing fixture file")
	}
}
