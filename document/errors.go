package document

import (
	"errors"
	"fmt"

	"github.com/wudi/thaipdf/images"
	"github.com/wudi/thaipdf/parser"
)

var (
	ErrCorrupt                = errors.New("corrupt document")
	ErrUnsupportedVersion     = errors.New("unsupported PDF version")
	ErrInvalidPage            = errors.New("invalid page")
	ErrUnknownFont            = errors.New("unknown font")
	ErrNoFontSelected         = errors.New("no font selected")
	ErrMissingGeometry        = errors.New("page has no usable bounding box")
	ErrUnsupportedImageFormat = errors.New("unsupported image format")
	ErrInvalidFont            = errors.New("invalid font")
	ErrMissingGlyph           = errors.New("no font covers character")
)

// openError classifies a parser failure. The cause stays reachable
// through errors.Is.
func openError(err error) error {
	if errors.Is(err, parser.ErrUnsupportedVersion) {
		return fmt.Errorf("%w: %w", ErrUnsupportedVersion, err)
	}
	return fmt.Errorf("%w: %w", ErrCorrupt, err)
}

func fontError(id string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInvalidFont, id, err)
}

func imageError(err error) error {
	if errors.Is(err, images.ErrUnsupportedFormat) {
		return fmt.Errorf("%w: %w", ErrUnsupportedImageFormat, err)
	}
	return err
}

func pageError(page, count int) error {
	return fmt.Errorf("%w: %d (document has %d pages)", ErrInvalidPage, page, count)
}
