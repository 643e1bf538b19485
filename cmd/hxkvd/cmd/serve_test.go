package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hxkv/hxkv/internal/config"
	"github.com/hxkv/hxkv/internal/datalayer"
	"github.com/hxkv/hxkv/internal/logging"
	"github.com/hxkv/hxkv/internal/metrics"
	"github.com/hxkv/hxkv/internal/schema"
)

func openTestDatalayer(t *testing.T) *datalayer.Datalayer {
	t.Helper()
	d, err := datalayer.Open(datalayer.Config{
		StorePath: t.TempDir(),
		MaxSizeMB: 1,
		Threads:   1,
		Registry:  schema.NewStaticRegistry(),
		Captures:  schema.NewStaticCaptures(),
		Transfers: schema.NewStaticTransferSink(),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Teardown(); err != nil {
			t.Errorf("Teardown: %v", err)
		}
	})
	return d
}

func TestLoadRegistryEmptyWhenNoFixture(t *testing.T) {
	reg, regions, err := loadRegistry(config.Config{})
	if err != nil {
		t.Fatalf("loadRegistry: %v", err)
	}
	if reg == nil {
		t.Fatalf("expected a non-nil empty registry")
	}
	if len(regions) != 0 {
		t.Errorf("regions = %v, want none", regions)
	}
}

func TestLoadRegistryFromFixture(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.yaml")
	yaml := "regions:\n  - region: 1\n    attrs: [\"key:string\"]\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reg, regions, err := loadRegistry(config.Config{SchemaFile: path})
	if err != nil {
		t.Fatalf("loadRegistry: %v", err)
	}
	if len(regions) != 1 || regions[0] != 1 {
		t.Errorf("regions = %v, want [1]", regions)
	}
	if _, ok := reg.Schema(1); !ok {
		t.Errorf("expected region 1 to resolve in the loaded registry")
	}
}

func TestLoadRegistryFixtureNotFound(t *testing.T) {
	if _, _, err := loadRegistry(config.Config{SchemaFile: "/does/not/exist.yaml"}); err == nil {
		t.Fatalf("expected an error for a missing fixture")
	}
}

func TestInitializeStateFreshStoreMintsServerID(t *testing.T) {
	d := openTestDatalayer(t)
	log := logging.New("test", logging.Error)

	cfg := config.Config{BindAddr: "127.0.0.1:1"}
	if err := initializeState(d, cfg, log); err != nil {
		t.Fatalf("initializeState: %v", err)
	}

	st, dirty, err := d.Initialize()
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if st.ServerID == 0 {
		t.Errorf("expected a nonzero minted server id")
	}
	if st.BindAddr != cfg.BindAddr {
		t.Errorf("BindAddr = %q, want %q", st.BindAddr, cfg.BindAddr)
	}
	if !dirty {
		t.Errorf("expected dirty=true immediately after a fresh Setup")
	}
}

func TestInitializeStateResumeUpdatesBindAddr(t *testing.T) {
	d := openTestDatalayer(t)
	log := logging.New("test", logging.Error)

	if err := initializeState(d, config.Config{BindAddr: "127.0.0.1:1"}, log); err != nil {
		t.Fatalf("initializeState (first): %v", err)
	}
	first, _, err := d.Initialize()
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if err := initializeState(d, config.Config{BindAddr: "127.0.0.1:2"}, log); err != nil {
		t.Fatalf("initializeState (second): %v", err)
	}
	second, _, err := d.Initialize()
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if second.ServerID != first.ServerID {
		t.Errorf("ServerID changed across a resume: %d -> %d", first.ServerID, second.ServerID)
	}
	if second.BindAddr != "127.0.0.1:2" {
		t.Errorf("BindAddr = %q, want updated address", second.BindAddr)
	}
}

func TestUuidBytesLength(t *testing.T) {
	if len(uuidBytes()) != 8 {
		t.Errorf("uuidBytes() length = %d, want 8", len(uuidBytes()))
	}
}

func TestSampleApproximateSizeStopsCleanly(t *testing.T) {
	d := openTestDatalayer(t)
	m := metrics.New()

	stop := sampleApproximateSize(d, m)
	stop()
}
