package document

import (
	"fmt"

	"github.com/wudi/thaipdf/images"
	"github.com/wudi/thaipdf/observability"
)

// InsertImage draws a JPEG or PNG stretched to w x h with its top-left
// corner at (x, y).
func (d *Document) InsertImage(data []byte, page int, x, y, w, h float64) error {
	return d.InsertImageScaled(data, page, x, y, w, h, images.Stretch)
}

// InsertImageScaled draws an image sized inside w x h by mode. Identical
// payloads share one XObject across the document.
func (d *Document) InsertImageScaled(data []byte, page int, x, y, w, h float64, mode images.ScaleMode) error {
	t := d.begin()
	if err := d.planImage(t, data, page, x, y, w, h, mode); err != nil {
		return err
	}
	t.commit()
	return nil
}

func (d *Document) planImage(t *txn, data []byte, page int, x, y, w, h float64, mode images.ScaleMode) error {
	box, err := d.box(page)
	if err != nil {
		return err
	}
	key := images.KeyOf(data)
	im, ok := d.images[key]
	if !ok {
		img, err := images.Load(data)
		if err != nil {
			return imageError(err)
		}
		if limit := d.limits.MaxImageDimension; limit > 0 && (img.Width > limit || img.Height > limit) {
			return fmt.Errorf("%w: %dx%d exceeds %d pixels per side", ErrUnsupportedImageFormat, img.Width, img.Height, limit)
		}
		im = &imageResource{img: img}
	}
	pc, err := t.page(page)
	if err != nil {
		return err
	}

	dw, dh := images.Size(mode, im.img.Width, im.img.Height, w, h)
	m := box.Placement(x, y, dw, dh)
	t.apply = append(t.apply, func() {
		if existing, ok := d.images[key]; ok {
			im = existing
		} else {
			im.ref = d.raw.Reserve()
			d.images[key] = im
		}
		pc.ops.Save().Concat(m).DrawXObject(pc.imageName(d, im)).Restore()
		d.logger.Debug("image inserted",
			observability.Int("page", page),
			observability.String("format", im.img.Format.String()),
			observability.String("scale", mode.String()),
			observability.Float64("width", dw),
			observability.Float64("height", dh))
	})
	return nil
}
