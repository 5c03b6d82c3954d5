package filters

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Params holds the decode parameters of a stream dictionary (/DecodeParms)
// converted to plain Go values.
type Params map[string]interface{}

// Int returns the integer parameter key, or def when it is absent or not numeric.
func (p Params) Int(key string, def int) int {
	if p == nil {
		return def
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// FlateDecode inflates zlib data and undoes any TIFF or PNG predictor named
// in params. Truncated input is tolerated when some data could be recovered,
// since many producers omit the zlib checksum.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("flate: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil && (len(out) == 0 || (err != io.ErrUnexpectedEOF && err != zlib.ErrChecksum)) {
		return nil, fmt.Errorf("flate: %w", err)
	}

	predictor := params.Int("Predictor", 1)
	switch {
	case predictor <= 1:
		return out, nil
	case predictor == 2:
		return undoTIFF(out, params)
	case predictor >= 10 && predictor <= 15:
		return undoPNG(out, params)
	default:
		return nil, fmt.Errorf("flate: unsupported predictor %d", predictor)
	}
}

// FlateEncode deflates data at the default compression level.
func FlateEncode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("flate: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("flate: %w", err)
	}
	return buf.Bytes(), nil
}

func rowGeometry(params Params) (bpp, rowLen int, err error) {
	colors := params.Int("Colors", 1)
	bpc := params.Int("BitsPerComponent", 8)
	columns := params.Int("Columns", 1)
	if bpc != 8 {
		return 0, 0, fmt.Errorf("predictor: %d bits per component not supported", bpc)
	}
	return colors, colors * columns, nil
}

func undoTIFF(data []byte, params Params) ([]byte, error) {
	bpp, rowLen, err := rowGeometry(params)
	if err != nil {
		return nil, err
	}
	if rowLen == 0 || len(data)%rowLen != 0 {
		return nil, fmt.Errorf("predictor: %d bytes is not a whole number of %d-byte rows", len(data), rowLen)
	}
	out := append([]byte(nil), data...)
	for start := 0; start < len(out); start += rowLen {
		row := out[start : start+rowLen]
		for i := bpp; i < len(row); i++ {
			row[i] += row[i-bpp]
		}
	}
	return out, nil
}

// undoPNG reverses PNG row filters. Every encoded row carries a leading
// filter-type byte, so the stride is rowLen+1.
func undoPNG(data []byte, params Params) ([]byte, error) {
	bpp, rowLen, err := rowGeometry(params)
	if err != nil {
		return nil, err
	}
	stride := rowLen + 1
	if len(data)%stride != 0 {
		return nil, fmt.Errorf("predictor: %d bytes is not a whole number of %d-byte rows", len(data), stride)
	}

	rows := len(data) / stride
	out := make([]byte, rows*rowLen)
	prev := make([]byte, rowLen)
	for r := 0; r < rows; r++ {
		kind := data[r*stride]
		src := data[r*stride+1 : (r+1)*stride]
		cur := out[r*rowLen : (r+1)*rowLen]
		for i := range cur {
			var left, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]
			switch kind {
			case 0:
				cur[i] = src[i]
			case 1:
				cur[i] = src[i] + left
			case 2:
				cur[i] = src[i] + up
			case 3:
				cur[i] = src[i] + byte((int(left)+int(up))/2)
			case 4:
				cur[i] = src[i] + paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("predictor: unknown PNG filter %d on row %d", kind, r)
			}
		}
		prev = cur
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
	default:
		return c
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
