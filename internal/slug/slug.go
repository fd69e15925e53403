// Package slug normalizes product names into the identifiers used as
// deduplication keys across the catalog.
package slug

import "strings"

// Make converts a name into a lowercase, hyphen-separated slug. Runs of
// non-alphanumeric characters collapse into a single hyphen and leading or
// trailing hyphens are trimmed.
func Make(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
