package schema

// Registry is the read-only collaborator that supplies per-region schema
// and subspace information. In the real deployment this is backed by the
// coordinator's configuration; the data layer never mutates it.
//
// Modeled as an injected interface rather than a back-reference to the
// daemon, so the data layer has no cyclic ownership of its parent.
type Registry interface {
	// Schema returns the attribute schema for a region. ok is false if the
	// region is unknown to the current configuration.
	Schema(region RegionID) (sc Schema, ok bool)
	// Subspace returns the index declarations for a region.
	Subspace(region RegionID) (sub Subspace, ok bool)
}

// Captures is the read-only collaborator that answers whether, and under
// which capture stream, a region is currently being state-transferred.
type Captures interface {
	// CaptureFor returns the capture id logging mutations for region, and
	// whether the region is currently captured at all.
	CaptureFor(region RegionID) (id CaptureID, captured bool)
	// IsCapturedRegion reports whether a capture id still names a live
	// captured region (used by the cleaner to decide whether a capture
	// stream found on disk is stale).
	IsCapturedRegion(id CaptureID) bool
}

// TransferSink receives cleaner notifications about capture streams. The
// cleaner reports an id before deciding whether to wipe it, so an id can
// be reported while its stream is still live, and reported more than once.
type TransferSink interface {
	ReportWiped(id CaptureID)
}
