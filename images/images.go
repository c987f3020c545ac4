// Package images turns JPEG and PNG payloads into PDF image XObjects.
package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/image/draw"

	"github.com/wudi/thaipdf/filters"
	"github.com/wudi/thaipdf/ir/raw"
)

// ErrUnsupportedFormat reports a payload that is neither JPEG nor PNG.
var ErrUnsupportedFormat = errors.New("unsupported image format")

type Format int

const (
	FormatJPEG Format = iota + 1
	FormatPNG
)

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	}
	return "unknown"
}

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}

// Detect identifies the payload by its magic bytes.
func Detect(data []byte) (Format, error) {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG, nil
	case bytes.HasPrefix(data, pngMagic):
		return FormatPNG, nil
	}
	return 0, ErrUnsupportedFormat
}

// Key identifies a payload for de-duplication.
type Key [32]byte

func KeyOf(data []byte) Key { return blake2b.Sum256(data) }

// Image is a decoded payload ready to be written as an XObject.
type Image struct {
	Format     Format
	Width      int
	Height     int
	ColorSpace string
	Key        Key

	data   []byte // DCT payload or raw samples
	decode []float64
}

// Load probes and decodes data. JPEG payloads are kept as-is for
// DCTDecode; PNG payloads are decoded to 8-bit samples with any alpha
// composited onto white.
func Load(data []byte) (*Image, error) {
	format, err := Detect(data)
	if err != nil {
		return nil, err
	}
	img := &Image{Format: format, Key: KeyOf(data)}
	switch format {
	case FormatJPEG:
		err = img.loadJPEG(data)
	case FormatPNG:
		err = img.loadPNG(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedFormat, format, err)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return nil, fmt.Errorf("%w: empty %s image", ErrUnsupportedFormat, format)
	}
	return img, nil
}

func (img *Image) loadJPEG(data []byte) error {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return err
	}
	img.Width, img.Height = cfg.Width, cfg.Height
	img.data = data
	switch cfg.ColorModel {
	case color.GrayModel:
		img.ColorSpace = "DeviceGray"
	case color.CMYKModel:
		// Adobe CMYK JPEGs store inverted samples.
		img.ColorSpace = "DeviceCMYK"
		img.decode = []float64{1, 0, 1, 0, 1, 0, 1, 0}
	default:
		img.ColorSpace = "DeviceRGB"
	}
	return nil
}

func (img *Image) loadPNG(data []byte) error {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}
	b := src.Bounds()
	img.Width, img.Height = b.Dx(), b.Dy()

	switch src.(type) {
	case *image.Gray, *image.Gray16:
		gray := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
		draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)
		img.ColorSpace = "DeviceGray"
		img.data = packRows(gray.Pix, gray.Stride, img.Width, img.Height)
		return nil
	}

	rgba := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	draw.Draw(rgba, rgba.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Over)
	samples := make([]byte, 0, img.Width*img.Height*3)
	for y := 0; y < img.Height; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+4*img.Width]
		for x := 0; x < len(row); x += 4 {
			samples = append(samples, row[x], row[x+1], row[x+2])
		}
	}
	img.ColorSpace = "DeviceRGB"
	img.data = samples
	return nil
}

func packRows(pix []byte, stride, w, h int) []byte {
	if stride == w {
		return pix[:w*h]
	}
	out := make([]byte, 0, w*h)
	for y := 0; y < h; y++ {
		out = append(out, pix[y*stride:y*stride+w]...)
	}
	return out
}

// XObject builds the image stream. Decoded samples are Flate-compressed
// when compress is set; JPEG payloads always pass through as DCTDecode.
func (img *Image) XObject(compress bool) *raw.StreamObj {
	d := raw.Dict()
	d.Set("Type", raw.NameLiteral("XObject"))
	d.Set("Subtype", raw.NameLiteral("Image"))
	d.Set("Width", raw.NumberInt(int64(img.Width)))
	d.Set("Height", raw.NumberInt(int64(img.Height)))
	d.Set("ColorSpace", raw.NameLiteral(img.ColorSpace))
	d.Set("BitsPerComponent", raw.NumberInt(8))
	if img.decode != nil {
		d.Set("Decode", raw.Numbers(img.decode...))
	}
	data := img.data
	switch {
	case img.Format == FormatJPEG:
		d.Set("Filter", raw.NameLiteral("DCTDecode"))
	case compress:
		d.Set("Filter", raw.NameLiteral("FlateDecode"))
		data = filters.FlateEncode(data)
	}
	return raw.NewStream(d, data)
}
