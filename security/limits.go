package security

import "time"

// Limits bounds the resources spent on a single input document.
// A zero field means "no limit" for that dimension.
type Limits struct {
	// Maximum decompressed stream size (prevent zip bombs). Default: 100 MB.
	MaxDecompressedSize int64

	// Maximum indirect reference depth. Default: 100.
	MaxIndirectDepth int

	// Maximum XRef chain depth (Prev entries). Default: 50.
	MaxXRefDepth int

	// Maximum nesting of arrays and dictionaries. Default: 100.
	MaxNestingDepth int

	// Maximum string length (bytes). Default: 10 MB.
	MaxStringLength int64

	// Maximum raw stream length (bytes). Default: 50 MB.
	MaxStreamLength int64

	// Maximum number of pages walked in the page tree. Default: 100,000.
	MaxPages int

	// Maximum image dimension in pixels per side. Default: 20,000.
	MaxImageDimension int

	// Maximum decode time per stream. Default: 30s.
	MaxDecodeTime time.Duration
}

// DefaultLimits returns a Limits struct with safe default values.
func DefaultLimits() Limits {
	return Limits{
		MaxDecompressedSize: 100 * 1024 * 1024,
		MaxIndirectDepth:    100,
		MaxXRefDepth:        50,
		MaxNestingDepth:     100,
		MaxStringLength:     10 * 1024 * 1024,
		MaxStreamLength:     50 * 1024 * 1024,
		MaxPages:            100000,
		MaxImageDimension:   20000,
		MaxDecodeTime:       30 * time.Second,
	}
}
