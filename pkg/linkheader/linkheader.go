// Package linkheader parses GitHub-style "Link" response headers into a
// relation -> URL mapping used for cursor pagination.
//
// A Link header is a comma-separated list of entries of the form
//
//	<https://api.github.com/notifications?page=2>; rel="next"
//
// Only http/https URLs are accepted, and a relation name is a run of word
// characters. Entries that do not match this shape contribute nothing.
package linkheader

import "regexp"

var linkRe = regexp.MustCompile(`<(?P<url>https?://[^>\s]+)>;\s*rel="(?P<rel>\w+)"`)

// Parse extracts every well-formed link entry from a raw header value.
// Malformed entries are skipped without aborting the rest of the header.
// When the same relation name appears more than once, the last occurrence
// wins. Parse never fails; an input with no valid entries yields an empty
// map.
func Parse(raw string) map[string]string {
	links := make(map[string]string)
	for _, m := range linkRe.FindAllStringSubmatch(raw, -1) {
		links[m[2]] = m[1]
	}
	return links
}
