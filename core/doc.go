// Package core provides the low-level PDF object model and the byte-level
// parsing that the document engine is built on.
//
// The package works on an in-memory copy of the document. A [Lexer] turns
// raw bytes into tokens, a [Parser] turns tokens into objects, and an
// [XRefTable] maps object numbers to the byte offsets (or object stream
// slots) where each object lives.
//
// # Object Types
//
// PDF defines eight basic object types, all implemented as types satisfying
// the Object interface:
//
//   - [Null]
//   - [Bool]
//   - [Int]
//   - [Real]
//   - [String] (literal and hexadecimal strings both decode to raw bytes)
//   - [Name]
//   - [Array]
//   - [Dict]
//
// [Stream] couples a dictionary with raw data and [IndirectRef] references an
// object by number and generation.
//
// # Cross-Reference Data
//
// [LoadXRef] follows the startxref pointer and the /Prev chain through
// classic xref tables (PDF 1.0-1.4) and xref streams (PDF 1.5+).
// [RebuildXRef] recovers damaged files by scanning for "n g obj" headers;
// the reader uses it when LoadXRef fails.
//
// # Stream Decoding
//
// [Stream.Decode] applies the /Filter chain: FlateDecode, LZWDecode,
// ASCIIHexDecode, ASCII85Decode and RunLengthDecode, including PNG and TIFF
// predictors. Image-only filters (DCT, JPX, JBIG2, CCITT) pass data through
// untouched because the geometry pipeline never needs pixels.
package core
