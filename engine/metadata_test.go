package engine

import (
	"testing"

	"golang.org/x/text/language"
	"seehuhn.de/go/xmp"
)

func TestLocalizedText(t *testing.T) {
	withDefault := xmp.Localized{Default: xmp.NewText("Default Title")}
	withDefault.Set(language.German, "Titel")

	tests := []struct {
		name string
		in   xmp.Localized
		want string
	}{
		{"empty", xmp.Localized{}, ""},
		{"default wins", withDefault, "Default Title"},
		{
			name: "first tag without default",
			in: xmp.Localized{V: map[language.Tag]xmp.Text{
				language.French: xmp.NewText("Titre"),
				language.German: xmp.NewText("Titel"),
			}},
			want: "Titel",
		},
		{
			name: "skips empty alternatives",
			in: xmp.Localized{V: map[language.Tag]xmp.Text{
				language.German:  xmp.NewText(""),
				language.English: xmp.NewText("Title"),
			}},
			want: "Title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := localizedText(tt.in); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
