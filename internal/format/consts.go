package format

// On-region layout constants.
//
// The durable region begins with a fixed two-field header that records the
// location of the most recently committed root snapshot. Everything from
// HeaderSize onward is allocator-managed space.

const (
	// RootOffsetField is the region offset of the 8-byte big-endian
	// root snapshot offset.
	RootOffsetField = 0

	// RootLengthField is the region offset of the 8-byte big-endian
	// root snapshot length.
	RootLengthField = 8

	// HeaderSize is the size of the root header in bytes. Offsets below
	// HeaderSize are reserved and never handed out by the allocator.
	HeaderSize = 16

	// PageShift is log2 of the region page size.
	PageShift = 16

	// PageSize is the granularity at which the durable region grows.
	// The region size is always a whole number of pages.
	PageSize = 1 << PageShift
)
