// Package datalayer is the write engine, search planner and background
// cleaner sitting on top of internal/store, internal/keyspace and
// internal/codec: it is where an object write becomes a coordinated
// update of the object row, its secondary-index entries, its acked
// marker and its capture-log entry, all inside one store transaction.
package datalayer

import (
	"sync"

	"github.com/hxkv/hxkv/internal/codec"
	"github.com/hxkv/hxkv/internal/metrics"
	"github.com/hxkv/hxkv/internal/schema"
	"github.com/hxkv/hxkv/internal/store"
)

// Datalayer is the single entry point upper layers call into. It has no
// back-reference to whatever process embeds it: schema, subspace and
// capture information all arrive through the three injected
// collaborators below.
type Datalayer struct {
	st        *store.Store
	registry  schema.Registry
	captures  schema.Captures
	transfers schema.TransferSink
	metrics   *metrics.Metrics

	// countersMu guards counters and is shared with the cleaner's
	// condition variables (cleanerCond, pauseCond), mirroring the
	// original's single mutex backing two condvars.
	countersMu sync.Mutex
	counters   map[schema.RegionID]uint64

	cleanerCond *sync.Cond
	pauseCond   *sync.Cond

	needPause    bool
	paused       bool
	needCleaning bool
	shutdown     bool
	transferSet  map[schema.CaptureID]bool

	cleanerDone chan struct{}

	lastCleanErrMu sync.Mutex
	lastCleanErr   error
}

// Config bundles the injected collaborators and the store options
// forwarded to internal/store.Open.
type Config struct {
	StorePath string
	MaxSizeMB int
	Threads   int

	Registry  schema.Registry
	Captures  schema.Captures
	Transfers schema.TransferSink

	// Metrics is optional; a fresh, unregistered set is created if nil,
	// so callers that don't care about metrics (most tests) never see a
	// nil pointer inside the write engine.
	Metrics *metrics.Metrics
}

// Open opens the backing store and starts the cleaner. Setup/Initialize
// concerns (the "hyperdex"/"state"/"dirty" metadata protocol) are
// handled separately by Setup so tests can exercise them independently
// of the store's lifecycle.
func Open(cfg Config) (*Datalayer, error) {
	st, err := store.Open(store.Options{
		Path:      cfg.StorePath,
		MaxSizeMB: cfg.MaxSizeMB,
		Threads:   cfg.Threads,
	})
	if err != nil {
		return nil, err
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}

	d := &Datalayer{
		st:          st,
		registry:    cfg.Registry,
		captures:    cfg.Captures,
		transfers:   cfg.Transfers,
		metrics:     m,
		counters:    make(map[schema.RegionID]uint64),
		transferSet: make(map[schema.CaptureID]bool),
	}
	d.cleanerCond = sync.NewCond(&d.countersMu)
	d.pauseCond = sync.NewCond(&d.countersMu)

	d.cleanerDone = make(chan struct{})
	go d.cleanerLoop()

	return d, nil
}

// Teardown signals the cleaner to exit, waits for it, and closes the
// store.
func (d *Datalayer) Teardown() error {
	d.countersMu.Lock()
	d.shutdown = true
	d.cleanerCond.Broadcast()
	d.countersMu.Unlock()

	<-d.cleanerDone

	return d.st.Close()
}

// ApproximateSize forwards to the store adapter's disk usage estimate.
func (d *Datalayer) ApproximateSize() uint64 {
	return d.st.ApproximateSize()
}

// Adopt replaces the capture-counter map with fresh entries for the
// given regions (all starting at zero), the reconfigurer's step 3.
// Callers must call Adopt only between Pause and Unpause.
func (d *Datalayer) Adopt(regions []schema.RegionID) {
	d.countersMu.Lock()
	defer d.countersMu.Unlock()

	fresh := make(map[schema.RegionID]uint64, len(regions))
	for _, r := range regions {
		fresh[r] = 0
	}
	d.counters = fresh
}

func (d *Datalayer) lookupSchema(region schema.RegionID) (schema.Schema, error) {
	sc, ok := d.registry.Schema(region)
	if !ok {
		return schema.Schema{}, ErrUnknownRegion
	}
	return sc, nil
}

func (d *Datalayer) lookupSubspace(region schema.RegionID) (schema.Subspace, error) {
	sub, ok := d.registry.Subspace(region)
	if !ok {
		return nil, ErrUnknownRegion
	}
	return sub, nil
}

// nextCaptureSeq returns the next sequence number for region's capture
// stream and advances the in-memory counter. ok is false if the region
// has no counter, meaning it is not currently captured.
func (d *Datalayer) nextCaptureSeq(region schema.RegionID) (seq uint64, ok bool) {
	d.countersMu.Lock()
	defer d.countersMu.Unlock()

	count, ok := d.counters[region]
	if !ok {
		return 0, false
	}
	d.counters[region] = count + 1
	return count, true
}

// keyCodec resolves the key attribute's codec for a region, the one
// every object/index/full-scan key encoding needs.
func keyCodec(sc schema.Schema) codec.Codec {
	return codec.Lookup(sc.KeyType())
}

// attrCodec resolves the codec for a non-key attribute.
func attrCodec(sc schema.Schema, attr schema.AttrID) codec.Codec {
	return codec.Lookup(sc.Attrs[attr].Type)
}
