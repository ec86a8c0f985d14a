package engine

import (
	"testing"

	"github.com/tsawler/pdfform/canvas"
)

func TestAxisRect(t *testing.T) {
	tests := []struct {
		name string
		pts  []canvas.Point
		want canvas.Rect
		ok   bool
	}{
		{
			name: "clockwise",
			pts:  []canvas.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5}, {X: 0, Y: 5}},
			want: canvas.Rect{W: 10, H: 5},
			ok:   true,
		},
		{
			name: "closed with repeated start",
			pts:  []canvas.Point{{X: 2, Y: 3}, {X: 2, Y: 9}, {X: 8, Y: 9}, {X: 8, Y: 3}, {X: 2, Y: 3}},
			want: canvas.Rect{X: 2, Y: 3, W: 6, H: 6},
			ok:   true,
		},
		{
			name: "bow tie",
			pts:  []canvas.Point{{X: 0, Y: 0}, {X: 10, Y: 5}, {X: 10, Y: 0}, {X: 0, Y: 5}},
		},
		{
			name: "rotated square",
			pts:  []canvas.Point{{X: 5, Y: 0}, {X: 10, Y: 5}, {X: 5, Y: 10}, {X: 0, Y: 5}},
		},
		{
			name: "triangle",
			pts:  []canvas.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}},
		},
	}
	for _, tt := range tests {
		got, ok := axisRect(tt.pts)
		if ok != tt.ok || got != tt.want {
			t.Errorf("%s: expected %+v/%v, got %+v/%v", tt.name, tt.want, tt.ok, got, ok)
		}
	}
}

func TestProperties(t *testing.T) {
	p := Properties{"dc:title": "Form", "dc:description": ""}
	if !p.Has("dc:title") || p.Get("dc:title") != "Form" {
		t.Errorf("Expected dc:title to be Form, got %q", p.Get("dc:title"))
	}
	if p.Has("dc:description") || p.Has("dc:creator") {
		t.Error("Expected empty and missing properties to be absent")
	}
}
