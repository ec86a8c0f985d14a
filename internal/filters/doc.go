// Package filters implements the PDF stream filters needed to read page
// content, object streams and cross-reference streams.
//
// FlateDecode and LZWDecode accept a Params map carrying the stream's
// DecodeParms entries; both honour the TIFF (2) and PNG (10-15) predictors.
// ASCIIHexDecode, ASCII85Decode and RunLengthDecode take no parameters.
//
//	decoded, err := filters.FlateDecode(data, filters.Params{"Predictor": 12, "Columns": 5})
//
// Image codecs (DCT, JPX, JBIG2, CCITT) are deliberately absent: raster
// data is never interpreted.
package filters
