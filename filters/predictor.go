package filters

import (
	"errors"

	"github.com/wudi/thaipdf/ir/raw"
)

// applyPredictor reverses the TIFF (2) or PNG (10-15) predictor named in
// params. Predictor 1 or an absent entry leaves data untouched.
func applyPredictor(data []byte, params *raw.DictObj) ([]byte, error) {
	predictor := intParam(params, "Predictor", 1)
	if predictor <= 1 {
		return data, nil
	}
	colors := max(intParam(params, "Colors", 1), 1)
	bpc := max(intParam(params, "BitsPerComponent", 8), 1)
	columns := max(intParam(params, "Columns", 1), 1)

	bpp := max((colors*bpc+7)/8, 1)
	rowLen := (colors*bpc*columns + 7) / 8
	if predictor == 2 {
		return tiffPredictor(data, rowLen, bpp, bpc)
	}
	if predictor >= 10 {
		return pngPredictor(data, rowLen, bpp)
	}
	return nil, errors.New("unsupported predictor")
}

func tiffPredictor(data []byte, rowLen, bpp, bpc int) ([]byte, error) {
	if bpc != 8 {
		return nil, errors.New("tiff predictor supports 8 bits per component only")
	}
	out := append([]byte(nil), data...)
	for row := 0; row+rowLen <= len(out); row += rowLen {
		for i := row + bpp; i < row+rowLen; i++ {
			out[i] += out[i-bpp]
		}
	}
	return out, nil
}

func pngPredictor(data []byte, rowLen, bpp int) ([]byte, error) {
	stride := rowLen + 1
	rows := len(data) / stride
	out := make([]byte, 0, rows*rowLen)
	prev := make([]byte, rowLen)
	for r := 0; r < rows; r++ {
		chunk := data[r*stride : (r+1)*stride]
		ft := chunk[0]
		cur := append([]byte(nil), chunk[1:]...)
		for i := range cur {
			var left, up, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			up = prev[i]
			switch ft {
			case 0:
			case 1:
				cur[i] += left
			case 2:
				cur[i] += up
			case 3:
				cur[i] += byte((int(left) + int(up)) / 2)
			case 4:
				cur[i] += paeth(left, up, upLeft)
			default:
				return nil, errors.New("invalid png predictor row filter")
			}
		}
		out = append(out, cur...)
		prev = cur
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
