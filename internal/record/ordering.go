package record

import "sort"

// SortByValue sorts items ascending by Value, the total order every
// posting list variant shares (spec §4.A).
func SortByValue[T Posting[T]](items []T) {
	sort.Slice(items, func(i, j int) bool { return items[i].GetValue() < items[j].GetValue() })
}

// Dedupe collapses a Value-ascending-sorted slice to one record per
// distinct Value, keeping the highest-scoring copy and summing the
// occurrence counts of the collapsed duplicates (spec §9 Open Question:
// "the specification states max; verify against tests").
func Dedupe[T Posting[T]](sorted []T) []T {
	if len(sorted) == 0 {
		return sorted
	}
	out := make([]T, 0, len(sorted))
	i := 0
	for i < len(sorted) {
		best := sorted[i]
		count := best.GetCount()
		j := i + 1
		for j < len(sorted) && sorted[j].GetValue() == sorted[i].GetValue() {
			count += sorted[j].GetCount()
			if sorted[j].GetScore() > best.GetScore() {
				best = sorted[j]
			}
			j++
		}
		out = append(out, best.WithCount(count))
		i = j
	}
	return out
}

// FinalizeOrder applies the truncation + sectioning rule of spec §4.C step
// 3: lists no longer than sectionSize stay value-ascending as-is; longer
// lists are sorted by score descending, truncated to sectionSize*maxSections,
// then re-ordered into sections of sectionSize each sorted value-ascending
// (spec §3 invariants, "sectioned sorted order").
func FinalizeOrder[T Posting[T]](items []T, sectionSize, maxSections int) []T {
	if len(items) <= sectionSize {
		return items
	}
	sort.Slice(items, func(i, j int) bool { return items[i].GetScore() > items[j].GetScore() })

	maxPerTerm := sectionSize * maxSections
	if len(items) > maxPerTerm {
		items = items[:maxPerTerm]
	}

	for section := 0; section < maxSections; section++ {
		start := section * sectionSize
		if start >= len(items) {
			break
		}
		end := start + sectionSize
		stop := false
		if end > len(items) {
			end = len(items)
			stop = true
		}
		chunk := items[start:end]
		sort.Slice(chunk, func(i, j int) bool { return chunk[i].GetValue() < chunk[j].GetValue() })
		if stop {
			break
		}
	}
	return items
}
