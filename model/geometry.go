package model

import "time"

// LineSegment is a horizontal or vertical rule. HLines run left to right
// from (X, Y); VLines run top to bottom. W is the stroke width in device
// pixels and L the length in form units.
type LineSegment struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	W             float64 `json:"w"`
	L             float64 `json:"l"`
	Color         int     `json:"clr"`
	OriginalColor string  `json:"oc,omitempty"`
}

// FillRegion is a filled rectangle with its top-left corner at (X, Y).
type FillRegion struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	W             float64 `json:"w"`
	H             float64 `json:"h"`
	Color         int     `json:"clr"`
	OriginalColor string  `json:"oc,omitempty"`
}

// FontStyle is the style of one text run. Size is in points.
type FontStyle struct {
	FaceID int     `json:"face"`
	Size   float64 `json:"size"`
	Bold   bool    `json:"bold,omitempty"`
	Italic bool    `json:"italic,omitempty"`
}

// TextRun is a piece of a text item shown in one style.
type TextRun struct {
	Text  string    `json:"t"`
	Style FontStyle `json:"ts"`
}

// TextItem is a string positioned by its top-left corner. Text is the
// concatenation of the runs.
type TextItem struct {
	X             float64   `json:"x"`
	Y             float64   `json:"y"`
	W             float64   `json:"w"`
	Color         int       `json:"clr"`
	OriginalColor string    `json:"oc,omitempty"`
	Text          string    `json:"text"`
	Runs          []TextRun `json:"runs"`
}

// RenderStats describes the work a render did.
type RenderStats struct {
	Operators int           `json:"operators"`
	Paths     int           `json:"paths"`
	TextRuns  int           `json:"textRuns"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

// PageGeometry is the form layout of one page. A page whose render failed
// keeps its dimensions, stats and Err, and nothing else.
type PageGeometry struct {
	Width  float64       `json:"width"`
	Height float64       `json:"height"`
	HLines []LineSegment `json:"hLines"`
	VLines []LineSegment `json:"vLines"`
	Fills  []FillRegion  `json:"fills"`
	Texts  []TextItem    `json:"texts"`
	Stats  RenderStats   `json:"stats"`
	Err    string        `json:"error,omitempty"`
}

// DocumentResult is the accumulated output for one document. Pages is in
// page order; PageWidth is the first page's width.
type DocumentResult struct {
	Pages         []PageGeometry    `json:"pages"`
	PageWidth     float64           `json:"pageWidth"`
	DocumentInfo  map[string]string `json:"info,omitempty"`
	MetadataTitle string            `json:"title"`
}

// Clone returns a deep copy of r.
func (r DocumentResult) Clone() DocumentResult {
	out := r
	out.Pages = append([]PageGeometry(nil), r.Pages...)
	if r.DocumentInfo != nil {
		out.DocumentInfo = make(map[string]string, len(r.DocumentInfo))
		for k, v := range r.DocumentInfo {
			out.DocumentInfo[k] = v
		}
	}
	return out
}
