// Package reader opens an in-memory PDF and resolves its objects.
//
//	r, err := reader.New(data)
//	if err != nil {
//	    return err
//	}
//	n, _ := r.NumPages()
//	page, _ := r.Page(0) // 0-indexed
//
// New checks the header, loads the cross-reference data and falls back to
// a full-file scan when that data is damaged or points at the wrong
// objects. Documents with an /Encrypt entry are rejected with
// core.ErrEncrypted.
//
// Resolved objects are cached. A Reader is safe for concurrent use; the
// page tree and the object cache are guarded internally.
//
// Info dictionary strings are text strings in PDFDocEncoding or UTF-16;
// [DecodeTextString] turns them into Go strings.
package reader
