package cmd

import (
	"context"
	"encoding/binary"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hxkv/hxkv/internal/config"
	"github.com/hxkv/hxkv/internal/datalayer"
	"github.com/hxkv/hxkv/internal/logging"
	"github.com/hxkv/hxkv/internal/metrics"
	"github.com/hxkv/hxkv/internal/schema"
)

// sizeSampleInterval controls how often the daemon publishes the store's
// approximate on-disk size to the metrics set.
const sizeSampleInterval = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the hxkv data layer daemon",
	RunE:  runServe,
}

func init() {
	config.BindFlags(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}

	log := logging.New("hxkvd", cfg.LogLevel)

	registry, regions, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	captures := schema.NewStaticCaptures()
	sink := schema.NewStaticTransferSink()
	m := metrics.New()

	d, err := datalayer.Open(datalayer.Config{
		StorePath: cfg.Path,
		MaxSizeMB: cfg.MaxSizeMB,
		Threads:   cfg.Threads,
		Registry:  registry,
		Captures:  captures,
		Transfers: sink,
		Metrics:   m,
	})
	if err != nil {
		return fmt.Errorf("open data layer: %w", err)
	}
	defer func() {
		if err := d.Teardown(); err != nil {
			log.Errorf("teardown: %v", err)
		}
	}()

	if err := initializeState(d, cfg, log); err != nil {
		return err
	}

	if err := d.MarkDirty(); err != nil {
		return fmt.Errorf("mark dirty: %w", err)
	}

	d.Adopt(regions)
	log.Infof("adopted %d region(s)", len(regions))

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: m.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics server: %v", err)
		}
	}()

	stopSampling := sampleApproximateSize(d, m)
	defer stopSampling()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	log.Infof("hxkvd running, store=%s metrics=%s", cfg.Path, cfg.MetricsAddr)
	<-sigCh
	log.Infof("shutting down")

	if err := d.ClearDirty(); err != nil {
		log.Errorf("clear dirty: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(ctx); err != nil {
		log.Errorf("metrics server shutdown: %v", err)
	}

	return nil
}

// initializeState runs the setup/resume branch of the startup protocol: a
// fresh store gets a server id minted here (the data layer itself never
// mints one) and its initial state persisted; an existing store just has
// its bind address refreshed if it changed.
func initializeState(d *datalayer.Datalayer, cfg config.Config, log *logging.Logger) error {
	st, dirty, err := d.Initialize()
	if err == datalayer.ErrTampered {
		return fmt.Errorf("initialize: %w: store has a state marker but no format-version marker, refusing to start", err)
	}
	if err == datalayer.ErrBadEncoding {
		serverID := binary.BigEndian.Uint64(uuidBytes())
		st = datalayer.State{ServerID: serverID, BindAddr: cfg.BindAddr}
		if err := d.Setup(st); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
		log.Infof("initialized new store, server_id=%d", st.ServerID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	if dirty {
		log.Warnf("store was left dirty by a previous run, resuming anyway")
	}
	if st.BindAddr != cfg.BindAddr {
		st.BindAddr = cfg.BindAddr
		if err := d.SaveState(st); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}
	log.Infof("resumed store, server_id=%d", st.ServerID)
	return nil
}

func uuidBytes() []byte {
	id := uuid.New()
	return id[:8]
}

func loadRegistry(cfg config.Config) (schema.Registry, []schema.RegionID, error) {
	if cfg.SchemaFile == "" {
		return schema.NewStaticRegistry(), nil, nil
	}
	reg, err := schema.LoadFixture(cfg.SchemaFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load schema fixture: %w", err)
	}
	return reg, reg.Regions(), nil
}

// sampleApproximateSize periodically publishes the store's on-disk size
// estimate to m until the returned stop function is called.
func sampleApproximateSize(d *datalayer.Datalayer, m *metrics.Metrics) func() {
	ticker := time.NewTicker(sizeSampleInterval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				m.SetApproximateSize(d.ApproximateSize())
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}
