package schema

import "sync"

// StaticCaptures is a reference Captures implementation backed by an
// in-memory map. Production deployments derive this from the live
// configuration; tests and cmd/hxkvd's standalone mode use this directly.
type StaticCaptures struct {
	mu    sync.RWMutex
	byRid map[RegionID]CaptureID
	live  map[CaptureID]bool
}

func NewStaticCaptures() *StaticCaptures {
	return &StaticCaptures{
		byRid: make(map[RegionID]CaptureID),
		live:  make(map[CaptureID]bool),
	}
}

// SetCapture marks region as captured under id.
func (c *StaticCaptures) SetCapture(region RegionID, id CaptureID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byRid[region] = id
	c.live[id] = true
}

// StopCapture marks id as no longer a live captured region.
func (c *StaticCaptures) StopCapture(id CaptureID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.live[id] = false
}

func (c *StaticCaptures) CaptureFor(region RegionID) (CaptureID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byRid[region]
	if !ok {
		return 0, false
	}
	return id, c.live[id]
}

func (c *StaticCaptures) IsCapturedRegion(id CaptureID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.live[id]
}

// StaticTransferSink records ReportWiped calls, useful for tests asserting
// E4's "exactly one report_wiped" property.
type StaticTransferSink struct {
	mu    sync.Mutex
	Wiped []CaptureID
}

func NewStaticTransferSink() *StaticTransferSink {
	return &StaticTransferSink{}
}

func (s *StaticTransferSink) ReportWiped(id CaptureID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Wiped = append(s.Wiped, id)
}
