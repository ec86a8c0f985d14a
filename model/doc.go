// Package model holds the form geometry produced for each page and the
// accumulated result for a document.
//
// Lengths and positions are in form units (see package pdfunit) unless a
// field says otherwise. Colors are indices into the form palette; an index
// of -1 comes with the original "#rrggbb" value.
//
// [FromSurface] turns the primitives recorded while rendering a page into
// a [PageGeometry]:
//
//   - stroked horizontal and vertical segments become HLines and VLines;
//     diagonal segments are dropped, and so are short thick segments
//     (width below 4 px and length below four widths)
//   - filled rectangles become Fills, except rectangles less than one pixel
//     thick, which become lines
//   - other filled shapes are dropped
//   - shown strings become Texts; strings sharing a baseline that abut are
//     merged into one item with several styled runs
package model
