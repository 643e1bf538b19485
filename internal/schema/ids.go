package schema

// RegionID identifies a partition of the key space.
type RegionID uint64

// CaptureID identifies one state-transfer capture stream.
type CaptureID uint64

// AttrID indexes into a Schema's attribute list. Attribute 0 is the key.
type AttrID uint16
