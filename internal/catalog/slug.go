package catalog

import "strings"

// DeriveSlug turns a hub identifier (or any path-like id) into a catalog
// slug: the author prefix up to the first separator is dropped, the rest
// is lower-cased, and every run of characters outside [a-z0-9], further
// separators included, collapses to a single hyphen with leading and
// trailing hyphens stripped. Deriving from an already-valid slug is the
// identity.
func DeriveSlug(id string) string {
	seg := id
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[i+1:]
	}
	seg = strings.ToLower(seg)
	var b strings.Builder
	b.Grow(len(seg))
	pendingHyphen := false
	for _, r := range seg {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}
