// Package filters implements the PDF stream filters needed to read source
// scores and write the extracted part document.
//
// Decoding covers FlateDecode (with TIFF and PNG predictors, which
// cross-reference streams rely on), ASCIIHexDecode, ASCII85Decode and
// RunLengthDecode. Encoding is limited to FlateDecode, used for the content
// streams of composed output pages:
//
//	raw, err := filters.FlateDecode(data, filters.Params{"Predictor": 12, "Columns": 5})
//	packed, err := filters.FlateEncode(content)
package filters
