package document

import (
	"github.com/wudi/thaipdf/observability"
	"github.com/wudi/thaipdf/recovery"
	"github.com/wudi/thaipdf/security"
	"github.com/wudi/thaipdf/thai"
)

// GlyphPolicy decides what happens to characters no font in the chain
// can draw.
type GlyphPolicy int

const (
	// FailOnMissing rejects the insertion with ErrMissingGlyph.
	FailOnMissing GlyphPolicy = iota
	// Notdef draws the character with the primary font's .notdef glyph.
	Notdef
)

// Option configures a Document at Open.
type Option func(*Document)

func WithLogger(l observability.Logger) Option {
	return func(d *Document) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithTracer(t observability.Tracer) Option {
	return func(d *Document) {
		if t != nil {
			d.tracer = t
		}
	}
}

// WithLimits bounds parsing, decoding and image sizes.
func WithLimits(l security.Limits) Option {
	return func(d *Document) { d.limits = l }
}

// WithRecovery sets how damaged input is handled. The default is
// lenient; pass recovery.NewStrictStrategy() to fail fast.
func WithRecovery(s recovery.Strategy) Option {
	return func(d *Document) { d.recovery = s }
}

// WithSubsetting embeds only the glyphs in use. On by default.
func WithSubsetting(on bool) Option {
	return func(d *Document) { d.subset = on }
}

// WithCompression Flate-compresses rewritten content, fonts and images.
// On by default.
func WithCompression(on bool) Option {
	return func(d *Document) { d.compress = on }
}

func WithMissingGlyphs(p GlyphPolicy) Option {
	return func(d *Document) { d.missing = p }
}

// WithSegmenter replaces the segmenter used by InsertWrappedText.
func WithSegmenter(s *thai.Segmenter) Option {
	return func(d *Document) {
		if s != nil {
			d.segmenter = s
		}
	}
}
