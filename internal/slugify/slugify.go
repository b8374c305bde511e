// Package slugify turns titles and index names into filesystem-safe slugs.
package slugify

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/starford/ansuz/internal/checksum"
)

var nonAlnumRe = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// IndexSlug names the listing page of a whole section and is never handed
// out to a name.
const IndexSlug = "index"

// Make lower-cases s, collapses every run of characters that are not letters
// or digits into one hyphen, and trims leading and trailing hyphens.
// The result may be empty.
func Make(s string) string {
	return strings.Trim(nonAlnumRe.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// Unique assigns a distinct slug to every name. Names are processed in sorted
// order, so the assignment only depends on the set of names: the first name
// to claim a slug keeps it and later ones get -2, -3, ... suffixes. Names
// that slug to "" use a short content hash instead. IndexSlug is taken from
// the start, so a name like "Index" becomes "index-2".
func Unique(names []string) map[string]string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	out := make(map[string]string, len(sorted))
	taken := make(map[string]struct{}, len(sorted)+1)
	taken[IndexSlug] = struct{}{}
	for _, name := range sorted {
		if _, done := out[name]; done {
			continue
		}
		base := Make(name)
		if base == "" {
			base = checksum.Short(name)
		}
		s := base
		for n := 2; ; n++ {
			if _, clash := taken[s]; !clash {
				break
			}
			s = base + "-" + strconv.Itoa(n)
		}
		taken[s] = struct{}{}
		out[name] = s
	}
	return out
}
