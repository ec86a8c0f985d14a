// Package graphicsstate tracks the PDF graphics state while a content
// stream is interpreted.
//
// The state covers the current transformation matrix, line width, stroke
// and fill colors and the text state (font, spacing, text matrices). A
// [Stack] implements the q/Q save and restore operators:
//
//	st := graphicsstate.NewStack(baseCTM)
//	st.Save()                  // q
//	st.Current().Concat(m)     // cm
//	st.Current().LineWidth = 2 // w
//	st.Restore()               // Q
//
// [Path] collects the segments of the path under construction in user
// space. Painting operators read the path together with the CTM to emit
// device-space primitives.
//
// Matrices are seehuhn.de/go/geom/matrix values in PDF order: a point p is
// mapped as p × M, and A.Mul(B) applies A first.
package graphicsstate
