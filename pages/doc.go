// Package pages walks the document catalog and page tree.
//
// A [PageTree] flattens the /Pages hierarchy into document order on first
// use. Each [Page] carries the attributes it inherits from its ancestors
// (MediaBox, CropBox, Resources and Rotate), so callers never climb the
// tree themselves:
//
//	tree := pages.NewPageTree(pagesDict, resolver)
//	page, _ := tree.Page(0) // 0-indexed
//	box := page.MediaBox()
//	content, _ := page.ContentData()
//
// Damaged trees are read leniently: nodes without /Type are classified by
// the presence of /Kids, reference cycles are skipped and /Count is
// ignored in favour of the leaves actually found.
package pages
