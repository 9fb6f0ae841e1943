package indexer

import "strings"

// FieldConfig names one input column and the base score its terms
// contribute (spec §4.F step 5).
type FieldConfig struct {
	Column    int
	BaseScore float32
}

// wordMap accumulates term_hash -> score for one document across every
// configured field. Duplicate occurrences of the same term within one
// field collapse additively only once per field (spec §4.F step 5,
// grounded on full_text_indexer.cpp's word-map accumulation).
type wordMap map[uint64]float32

func newWordMap() wordMap { return wordMap{} }

// addField folds words' term hashes into m, each contributing baseScore
// at most once regardless of how many times it repeats in words.
func (m wordMap) addField(words []string, baseScore float32, hash func(string) uint64) {
	seen := make(map[uint64]bool, len(words))
	for _, w := range words {
		h := hash(w)
		if seen[h] {
			continue
		}
		seen[h] = true
		m[h] += baseScore
	}
}

// synthesizeHostTokens adds site:/link: synthetic tokens derived from
// the host's dot-separated components, scored at boost*harmonic (spec
// §4.F step 6, grounded on CCUrlIndexer.cpp's host-component indexing).
func (m wordMap) synthesizeHostTokens(host string, harmonic, boost float32, hash func(string) uint64) {
	if host == "" {
		return
	}
	score := harmonic * boost

	m[hash("site:"+host)] += score

	parts := strings.Split(host, ".")
	for i := range parts {
		suffix := strings.Join(parts[i:], ".")
		if suffix == "" {
			continue
		}
		m[hash("link:"+suffix)] += score
	}
}
