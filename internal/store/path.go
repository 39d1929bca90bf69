package store

import "golang.org/x/text/unicode/norm"

// canonicalPath normalizes a document path to NFC so Unicode-equivalent
// spellings address the same document. Paths are opaque keys otherwise; no
// filesystem semantics are implied.
func canonicalPath(path string) string {
	return norm.NFC.String(path)
}
