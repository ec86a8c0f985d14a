package filters

import "fmt"

// unpredict reverses the predictor named in params. Predictor 1 or a
// missing entry leaves data untouched.
func unpredict(data []byte, params Params) ([]byte, error) {
	predictor := params.Int("Predictor", 1)
	switch {
	case predictor <= 1:
		return data, nil
	case predictor == 2:
		return tiffPredictor(data, params)
	case predictor >= 10 && predictor <= 15:
		return pngPredictor(data, params)
	}
	return nil, fmt.Errorf("unsupported predictor %d", predictor)
}

func predictorGeometry(params Params) (bpp, rowLen int, err error) {
	colors := params.Int("Colors", 1)
	bpc := params.Int("BitsPerComponent", 8)
	columns := params.Int("Columns", 1)
	if colors < 1 || columns < 1 || bpc < 1 {
		return 0, 0, fmt.Errorf("invalid predictor parameters")
	}
	bpp = (colors*bpc + 7) / 8
	rowLen = (colors*bpc*columns + 7) / 8
	return bpp, rowLen, nil
}

func tiffPredictor(data []byte, params Params) ([]byte, error) {
	if bpc := params.Int("BitsPerComponent", 8); bpc != 8 {
		return nil, fmt.Errorf("TIFF predictor with %d bits per component is not supported", bpc)
	}
	bpp, rowLen, err := predictorGeometry(params)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	for row := 0; row+rowLen <= len(out); row += rowLen {
		for i := row + bpp; i < row+rowLen; i++ {
			out[i] += out[i-bpp]
		}
	}
	return out, nil
}

// pngPredictor decodes rows that each start with a PNG filter-type byte.
// A short final row is decoded as far as it goes.
func pngPredictor(data []byte, params Params) ([]byte, error) {
	bpp, rowLen, err := predictorGeometry(params)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(data))
	prev := make([]byte, rowLen)
	cur := make([]byte, rowLen)
	for pos := 0; pos < len(data); pos += rowLen + 1 {
		end := pos + 1 + rowLen
		if end > len(data) {
			end = len(data)
		}
		filter := data[pos]
		src := data[pos+1 : end]
		for i := range cur {
			cur[i] = 0
		}
		copy(cur, src)
		for i := 0; i < len(src); i++ {
			var left, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]
			switch filter {
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
				return nil, fmt.Errorf("unknown PNG filter type %d", filter)
			}
		}
		out = append(out, cur[:len(src)]...)
		prev, cur = cur, prev
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := absInt(p-int(a)), absInt(p-int(b)), absInt(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
