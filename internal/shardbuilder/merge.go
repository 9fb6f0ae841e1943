package shardbuilder

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alexandria-search/engine/internal/record"
	"github.com/alexandria-search/engine/internal/shardfile"
)

// Merge folds the current shard file plus the pending caches into a new
// shard file (spec §4.C merge()): read existing + cache, dedupe by max
// score, truncate/section oversized lists, write pages grouped by slot,
// fsync and atomically replace, then truncate the caches.
func (b *Builder[T]) Merge(lock *sync.Mutex) error {
	if !acquireLock(lock, b.cfg.LockTimeout) {
		return fmt.Errorf("shardbuilder: merge shard %d: %w", b.shardID, ErrContention)
	}
	defer lock.Unlock()

	// Flush any still-pending in-memory postings first so a merge right
	// after a burst of Add calls doesn't lose them.
	b.addMu.Lock()
	keys := b.pendingKeys
	recs := b.pendingRecords
	b.pendingKeys = nil
	b.pendingRecords = nil
	b.addMu.Unlock()
	if len(keys) > 0 {
		if err := withRetry(b.cfg.IoRetryAttempts, b.cfg.IoRetryBackoff, func() error {
			return appendCache(b.paths, b.codec, keys, recs)
		}); err != nil {
			return fmt.Errorf("shardbuilder: flush pending before merge: %w: %w", ErrIoTransient, err)
		}
	}

	cache, _, err := shardfile.ReadAll(b.paths.data, b.codec)
	if err != nil {
		log.Warnw("shard file unreadable, rebuilding from caches only", "shard", b.shardID, "index", b.name, "err", err)
		cache = map[uint64][]T{}
	}

	if err := readCache(b.paths, b.codec, cache); err != nil {
		return fmt.Errorf("shardbuilder: read cache: %w", err)
	}

	writer, err := shardfile.CreateWriter(b.paths.data, b.paths.dir, b.cfg, b.codec)
	if err != nil {
		return fmt.Errorf("shardbuilder: create writer: %w", err)
	}

	// Map iteration order is randomized, but the page format requires a
	// page's keys array ascending by value (spec.md §3) and merging the
	// same cumulative input twice must yield byte-identical output (spec
	// §8 idempotence). Collect and sort keys explicitly before grouping,
	// so within-slot key order and slot write order are both deterministic.
	sortedKeys := make([]uint64, 0, len(cache))
	for key := range cache {
		sortedKeys = append(sortedKeys, key)
	}
	sort.Slice(sortedKeys, func(i, j int) bool { return sortedKeys[i] < sortedKeys[j] })

	bySlot := map[uint64][]shardfile.PendingKey[T]{}
	for _, key := range sortedKeys {
		postings := cache[key]
		record.SortByValue(postings)
		deduped := record.Dedupe(postings)
		total := len(deduped)
		finalOrder := record.FinalizeOrder(deduped, b.cfg.SectionSize, b.cfg.MaxSections)

		slot := key % b.cfg.ShardHashTableSize
		bySlot[slot] = append(bySlot[slot], shardfile.PendingKey[T]{
			Key:     key,
			Records: finalOrder,
			Total:   total,
		})
	}

	slots := make([]uint64, 0, len(bySlot))
	for slot := range bySlot {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })

	for _, slot := range slots {
		if err := writer.WriteSlot(slot, bySlot[slot]); err != nil {
			writer.Abort()
			return fmt.Errorf("shardbuilder: write slot %d: %w", slot, err)
		}
	}

	if err := withRetry(b.cfg.IoRetryAttempts, b.cfg.IoRetryBackoff, writer.Commit); err != nil {
		writer.Abort()
		return fmt.Errorf("shardbuilder: commit: %w: %w", ErrIoTransient, err)
	}

	if err := truncateCache(b.paths); err != nil {
		return fmt.Errorf("shardbuilder: truncate cache after merge: %w", err)
	}

	log.Infow("merged shard", "shard", b.shardID, "index", b.name, "keys", len(cache))
	return nil
}
