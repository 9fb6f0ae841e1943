package record

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// HashTerm normalizes s (lowercase, trim, non-ASCII folded) and returns its
// 64-bit term key (spec §3 "Term key"). The same function is used for
// ingestion and query-time tokenization so the two sides agree on keys.
func HashTerm(s string) uint64 {
	return xxhash.Sum64String(Normalize(s))
}

// HashString returns the 64-bit hash of raw bytes, used for URL/host
// hashing where the caller has already canonicalized the input (§6 URL
// parser contract).
func HashString(s string) uint64 {
	return xxhash.Sum64String(s)
}

// Normalize lowercases, trims, and ASCII-folds a term the way every term
// key is derived (spec §3): non-ASCII runes are dropped rather than
// transliterated, matching the C++ source's fold-to-ASCII behavior of
// discarding bytes outside the 7-bit range after lowercasing.
func Normalize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
