package config

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hxkv/hxkv/internal/logging"
)

func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	BindFlags(cmd)
	return cmd
}

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	cmd := newTestCommand()

	cfg, err := Load(cmd)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path != "data" {
		t.Errorf("Path = %q, want data", cfg.Path)
	}
	if cfg.MaxSizeMB != 1024 {
		t.Errorf("MaxSizeMB = %d, want 1024", cfg.MaxSizeMB)
	}
	if cfg.Threads != 4 {
		t.Errorf("Threads = %d, want 4", cfg.Threads)
	}
	if cfg.LogLevel != logging.Info {
		t.Errorf("LogLevel = %v, want Info", cfg.LogLevel)
	}
}

func TestLoadRespectsExplicitFlags(t *testing.T) {
	viper.Reset()
	cmd := newTestCommand()
	if err := cmd.Flags().Set("path", "/tmp/store"); err != nil {
		t.Fatalf("Set path: %v", err)
	}
	if err := cmd.Flags().Set("log-level", "debug"); err != nil {
		t.Fatalf("Set log-level: %v", err)
	}

	cfg, err := Load(cmd)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path != "/tmp/store" {
		t.Errorf("Path = %q, want /tmp/store", cfg.Path)
	}
	if cfg.LogLevel != logging.Debug {
		t.Errorf("LogLevel = %v, want Debug", cfg.LogLevel)
	}
}

func TestLoadRejectsNonPositiveMaxSize(t *testing.T) {
	viper.Reset()
	cmd := newTestCommand()
	if err := cmd.Flags().Set("max-size-mb", "0"); err != nil {
		t.Fatalf("Set max-size-mb: %v", err)
	}

	if _, err := Load(cmd); err == nil {
		t.Fatalf("expected an error for max-size-mb=0")
	}
}

func TestLoadRejectsNonPositiveThreads(t *testing.T) {
	viper.Reset()
	cmd := newTestCommand()
	if err := cmd.Flags().Set("threads", "-1"); err != nil {
		t.Fatalf("Set threads: %v", err)
	}

	if _, err := Load(cmd); err == nil {
		t.Fatalf("expected an error for threads=-1")
	}
}
