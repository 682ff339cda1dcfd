package slugger

import "testing"

func TestFromTitle(t *testing.T) {
	cases := map[string]string{
		"My Great Startup!":  "my-great-startup",
		"  spaced   out  ":   "spaced-out",
		"Café Nöir":          "cafe-noir",
		"already-slugged":    "already-slugged",
		"Robots & Rockets 2": "robots-rockets-2",
	}
	for title, want := range cases {
		if got := FromTitle(title); got != want {
			t.Errorf("FromTitle(%q) = %q, want %q", title, got, want)
		}
	}
}
