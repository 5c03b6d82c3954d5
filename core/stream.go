package core

import (
	"fmt"

	"github.com/wadansyaku/band-part-key-app/internal/filters"
)

// Decode returns the stream data with every filter in /Filter undone.
// Image codecs (DCT, JPX, JBIG2, CCITT) are left encoded; content that
// reaches them is passed through unchanged.
func (s *Stream) Decode() ([]byte, error) {
	var names []Name
	var params []Object
	switch f := s.Dict.Get("Filter").(type) {
	case nil:
		return s.Data, nil
	case Name:
		names = []Name{f}
		params = []Object{s.Dict.Get("DecodeParms")}
	case Array:
		dp, _ := s.Dict.GetArray("DecodeParms")
		for i, item := range f {
			name, ok := item.(Name)
			if !ok {
				return nil, fmt.Errorf("filter %d is %T, not a name", i, item)
			}
			names = append(names, name)
			params = append(params, dp.Get(i))
		}
	default:
		return nil, fmt.Errorf("invalid /Filter type %T", f)
	}

	data := s.Data
	for i, name := range names {
		var err error
		data, err = decodeFilter(string(name), data, toParams(params[i]))
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", name, err)
		}
	}
	return data, nil
}

func decodeFilter(name string, data []byte, params filters.Params) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		return filters.FlateDecode(data, params)
	case "ASCIIHexDecode", "AHx":
		return filters.ASCIIHexDecode(data)
	case "ASCII85Decode", "A85":
		return filters.ASCII85Decode(data)
	case "RunLengthDecode", "RL":
		return filters.RunLengthDecode(data)
	case "DCTDecode", "DCT", "JPXDecode", "JBIG2Decode", "CCITTFaxDecode", "CCF":
		return data, nil
	}
	return nil, fmt.Errorf("unsupported filter")
}

func toParams(obj Object) filters.Params {
	dict, ok := obj.(Dict)
	if !ok {
		return nil
	}
	params := make(filters.Params, len(dict))
	for k, v := range dict {
		switch o := v.(type) {
		case Int:
			params[k] = int(o)
		case Real:
			params[k] = float64(o)
		case Bool:
			params[k] = bool(o)
		case Name:
			params[k] = string(o)
		default:
			params[k] = v
		}
	}
	return params
}

// NewFlateStream returns a stream holding data compressed with FlateDecode.
func NewFlateStream(dict Dict, data []byte) (*Stream, error) {
	packed, err := filters.FlateEncode(data)
	if err != nil {
		return nil, err
	}
	if dict == nil {
		dict = Dict{}
	}
	dict["Filter"] = Name("FlateDecode")
	return &Stream{Dict: dict, Data: packed}, nil
}
