// Package slugger derives URL-safe slugs for startup titles.
package slugger

import (
	gslug "github.com/gosimple/slug"
)

// FromTitle lower-cases the title and collapses non-alphanumeric runs into
// separators.
func FromTitle(title string) string {
	return gslug.Make(title)
}
