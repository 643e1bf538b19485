// Package config resolves hxkvd's daemon configuration from flags,
// environment variables, and .env files, layered the way the teacher's
// cmd/serve package does it.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hxkv/hxkv/internal/logging"
)

// Config holds the resolved daemon configuration: where the store lives,
// how big it may grow, how many background compaction threads pebble may
// use, which schema fixture to load in standalone mode, and at what level
// to log.
type Config struct {
	Path        string
	MaxSizeMB   int
	Threads     int
	BindAddr    string
	MetricsAddr string
	SchemaFile  string
	LogLevel    logging.Level
}

// BindFlags registers every config-controlled flag on cmd, mirroring the
// teacher's serve command: flags carry the defaults, viper layers env vars
// and .env files on top at read time.
func BindFlags(cmd *cobra.Command) {
	cmd.Flags().String("path", "data", "Directory used for the on-disk store")
	cmd.Flags().Int("max-size-mb", 1024, "Soft size budget for the store, in megabytes")
	cmd.Flags().Int("threads", 4, "Number of background compaction threads")
	cmd.Flags().String("bind-addr", "127.0.0.1:8080", "Address the daemon reports as its own in its persisted state")
	cmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address the /metrics endpoint listens on")
	cmd.Flags().String("schema-file", "", "Path to a YAML schema fixture for standalone mode (see internal/schema/static.go)")
	cmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

// Load reads .env files, binds cmd's flags into viper, and returns the
// resolved Config. Precedence, high to low: explicit flags, environment
// variables prefixed HXKV_, .env / .env.local, flag defaults.
func Load(cmd *cobra.Command) (Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("hxkv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}

	cfg := Config{
		Path:        viper.GetString("path"),
		MaxSizeMB:   viper.GetInt("max-size-mb"),
		Threads:     viper.GetInt("threads"),
		BindAddr:    viper.GetString("bind-addr"),
		MetricsAddr: viper.GetString("metrics-addr"),
		SchemaFile:  viper.GetString("schema-file"),
		LogLevel:    logging.ParseLevel(viper.GetString("log-level")),
	}

	if cfg.Path == "" {
		return Config{}, fmt.Errorf("path must not be empty")
	}
	if cfg.MaxSizeMB <= 0 {
		return Config{}, fmt.Errorf("max-size-mb must be positive, got %d", cfg.MaxSizeMB)
	}
	if cfg.Threads <= 0 {
		return Config{}, fmt.Errorf("threads must be positive, got %d", cfg.Threads)
	}

	return cfg, nil
}
