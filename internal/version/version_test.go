package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestColoredKeepsText(t *testing.T) {
	defer func(v string, nc bool) { Version, color.NoColor = v, nc }(Version, color.NoColor)
	color.NoColor = true

	for _, tc := range []struct{ in, want string }{
		{"1.2.3", "1.2.3"},
		{"0.1.0-dev", "0.1.0-dev"},
		{"nightly", "nightly"},
	} {
		Version = tc.in
		if got := Colored(); got != tc.want {
			t.Errorf("Colored() with %q = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestColoredPaintsParts(t *testing.T) {
	defer func(v string, nc bool) { Version, color.NoColor = v, nc }(Version, color.NoColor)
	color.NoColor = false
	Version = "1.2.3"
	if got := Colored(); got == "1.2.3" {
		t.Fatal("no color codes with color forced on")
	}
}
