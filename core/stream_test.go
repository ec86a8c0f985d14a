package core

import (
	"errors"
	"testing"

	"github.com/tsawler/pdfform/internal/pdftest"
)

func TestStreamDecode(t *testing.T) {
	content := []byte("0 0 m 10 0 l S")
	tests := []struct {
		name   string
		stream *Stream
	}{
		{"no filter", &Stream{Dict: Dict{}, Data: content}},
		{"flate", &Stream{Dict: Dict{"Filter": Name("FlateDecode")}, Data: pdftest.Deflate(content)}},
		{"chain", &Stream{
			Dict: Dict{"Filter": Array{Name("AHx"), Name("Fl")}},
			Data: []byte(hexEncode(pdftest.Deflate(content)) + ">"),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.stream.Decode()
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if string(got) != string(content) {
				t.Errorf("Expected %q, got %q", content, got)
			}
		})
	}
}

func TestStreamDecodeErrors(t *testing.T) {
	crypt := &Stream{Dict: Dict{"Filter": Name("Crypt")}}
	if _, err := crypt.Decode(); !errors.Is(err, ErrEncrypted) {
		t.Errorf("Expected ErrEncrypted, got %v", err)
	}
	unknown := &Stream{Dict: Dict{"Filter": Name("Bogus")}}
	if _, err := unknown.Decode(); err == nil {
		t.Error("Expected error for unknown filter")
	}
	image := &Stream{Dict: Dict{"Filter": Name("DCTDecode")}, Data: []byte{0xff, 0xd8}}
	if got, err := image.Decode(); err != nil || len(got) != 2 {
		t.Errorf("Expected image data to pass through, got %v (%v)", got, err)
	}
}

func TestObjectStream(t *testing.T) {
	body := []byte("10 0 11 6 (ten) [1 2]")
	stm, err := NewObjectStream(&Stream{
		Dict: Dict{"Type": Name("ObjStm"), "N": Int(2), "First": Int(10)},
		Data: body,
	})
	if err != nil {
		t.Fatalf("NewObjectStream failed: %v", err)
	}
	obj, num, err := stm.GetObjectByIndex(1)
	if err != nil {
		t.Fatalf("GetObjectByIndex failed: %v", err)
	}
	if num != 11 {
		t.Errorf("Expected object 11, got %d", num)
	}
	if arr, ok := obj.(Array); !ok || len(arr) != 2 {
		t.Errorf("Expected two element array, got %v", obj)
	}
	if _, _, err := stm.GetObjectByIndex(2); err == nil {
		t.Error("Expected out of range error")
	}
	if _, err := NewObjectStream(&Stream{Dict: Dict{"Type": Name("XRef")}}); err == nil {
		t.Error("Expected error for non object stream")
	}
}

func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, 0, len(b)*2)
	for _, c := range b {
		out = append(out, digits[c>>4], digits[c&0xf])
	}
	return string(out)
}
