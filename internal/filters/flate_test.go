package filters

import (
	"bytes"
	"testing"
)

func mustEncode(t *testing.T, data []byte) []byte {
	t.Helper()
	packed, err := FlateEncode(data)
	if err != nil {
		t.Fatalf("FlateEncode: %v", err)
	}
	return packed
}

func TestFlateRoundTrip(t *testing.T) {
	content := []byte("q 1 0 0 1 20 20 cm /Fm1 Do Q\n")
	got, err := FlateDecode(mustEncode(t, content), nil)
	if err != nil {
		t.Fatalf("FlateDecode: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("got %q, want %q", got, content)
	}
}

func TestFlateTruncatedInput(t *testing.T) {
	content := bytes.Repeat([]byte("0 0 m 100 0 l S\n"), 200)
	packed := mustEncode(t, content)

	// Drop the adler32 trailer the way sloppy producers do.
	got, err := FlateDecode(packed[:len(packed)-4], nil)
	if err != nil {
		t.Fatalf("FlateDecode: %v", err)
	}
	if !bytes.HasPrefix(content, got) || len(got) == 0 {
		t.Errorf("expected a non-empty prefix of the content, got %d bytes", len(got))
	}
}

func TestFlatePredictors(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		raw    []byte
		want   []byte
	}{
		{
			name:   "png none",
			params: Params{"Predictor": 10, "Columns": 3},
			raw:    []byte{0, 1, 2, 3, 0, 4, 5, 6},
			want:   []byte{1, 2, 3, 4, 5, 6},
		},
		{
			name:   "png sub",
			params: Params{"Predictor": 11, "Columns": 3},
			raw:    []byte{1, 1, 1, 1},
			want:   []byte{1, 2, 3},
		},
		{
			name:   "png up",
			params: Params{"Predictor": 12, "Columns": 2},
			raw:    []byte{2, 5, 7, 2, 1, 1},
			want:   []byte{5, 7, 6, 8},
		},
		{
			name:   "png average",
			params: Params{"Predictor": 13, "Columns": 2},
			raw:    []byte{3, 4, 4, 3, 2, 2},
			want:   []byte{4, 6, 4, 7},
		},
		{
			name:   "png paeth",
			params: Params{"Predictor": 14, "Columns": 2},
			raw:    []byte{4, 10, 20, 4, 1, 1},
			want:   []byte{10, 30, 11, 31},
		},
		{
			name:   "tiff",
			params: Params{"Predictor": 2, "Columns": 3},
			raw:    []byte{1, 1, 1},
			want:   []byte{1, 2, 3},
		},
		{
			name:   "xref stream widths",
			params: Params{"Predictor": 12, "Columns": int64(4)},
			raw:    []byte{2, 1, 0, 0, 15, 2, 0, 0, 1, 3},
			want:   []byte{1, 0, 0, 15, 1, 0, 1, 18},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FlateDecode(mustEncode(t, tt.raw), tt.params)
			if err != nil {
				t.Fatalf("FlateDecode: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlatePredictorErrors(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		raw    []byte
	}{
		{"ragged rows", Params{"Predictor": 12, "Columns": 4}, []byte{0, 1, 2}},
		{"unknown row filter", Params{"Predictor": 12, "Columns": 1}, []byte{9, 1}},
		{"sixteen bit", Params{"Predictor": 12, "Columns": 1, "BitsPerComponent": 16}, []byte{0, 1}},
		{"unsupported predictor", Params{"Predictor": 7}, []byte{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FlateDecode(mustEncode(t, tt.raw), tt.params); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestFlateDecodeGarbage(t *testing.T) {
	if _, err := FlateDecode([]byte("not zlib"), nil); err == nil {
		t.Error("expected an error for non-zlib input")
	}
}
