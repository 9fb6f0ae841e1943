// Package shardbuilder implements the shard builder (spec §4.C): in-memory
// accumulation of postings for one shard of one logical index, spilled to
// append-only cache files and periodically compacted into a shard file.
package shardbuilder

import (
	"fmt"
	"sync"

	logging "github.com/ipfs/go-log/v2"

	"github.com/alexandria-search/engine/internal/config"
	"github.com/alexandria-search/engine/internal/record"
	"github.com/alexandria-search/engine/internal/shardfile"
)

var log = logging.Logger("shardbuilder")

// Builder accumulates postings for one shard of one logical index and
// produces the on-disk shard file. The per-shard mutex guarding
// Append/Merge is owned by the caller (spec §4.E: "a per-shard lock array
// is shared across indexers of the same logical index") and passed in,
// not held by Builder itself, so several indexer goroutines writing to
// different shards of the same index progress independently while
// sharing one lock per shard.
type Builder[T record.Posting[T]] struct {
	name    string
	shardID int
	cfg     *config.Config
	codec   shardfile.Codec[T]
	paths   paths

	addMu          sync.Mutex
	pendingKeys    []uint64
	pendingRecords []T
}

// New constructs a shard builder for shardID of logical index name.
func New[T record.Posting[T]](name string, shardID int, cfg *config.Config, codec shardfile.Codec[T]) *Builder[T] {
	return &Builder[T]{
		name:    name,
		shardID: shardID,
		cfg:     cfg,
		codec:   codec,
		paths:   shardPaths(cfg, name, shardID),
	}
}

// Add pushes (key, record) to the in-memory pending vectors. O(1)
// amortized (spec §4.C).
func (b *Builder[T]) Add(key uint64, rec T) {
	b.addMu.Lock()
	b.pendingKeys = append(b.pendingKeys, key)
	b.pendingRecords = append(b.pendingRecords, rec)
	b.addMu.Unlock()
}

// Full reports whether the in-memory pending set exceeds the configured
// byte threshold (spec §4.C full()).
func (b *Builder[T]) Full() bool {
	b.addMu.Lock()
	defer b.addMu.Unlock()
	return int64(len(b.pendingRecords)*b.codec.Size) > b.cfg.CacheFlushBytes
}

// ShouldMerge reports whether the combined on-disk cache size exceeds the
// larger merge threshold (spec §4.C should_merge()).
func (b *Builder[T]) ShouldMerge() (bool, error) {
	size, err := cacheSize(b.paths)
	if err != nil {
		return false, err
	}
	return size > b.cfg.MergeThresholdBytes, nil
}

// Append flushes the pending vectors to the two cache files under lock,
// then clears them (spec §4.C append()). Durability is fsync on Merge,
// not on every Append.
func (b *Builder[T]) Append(lock *sync.Mutex) error {
	if !acquireLock(lock, b.cfg.LockTimeout) {
		return fmt.Errorf("shardbuilder: append shard %d: %w", b.shardID, ErrContention)
	}
	defer lock.Unlock()

	b.addMu.Lock()
	keys := b.pendingKeys
	recs := b.pendingRecords
	b.pendingKeys = nil
	b.pendingRecords = nil
	b.addMu.Unlock()

	if len(keys) == 0 {
		return nil
	}

	if err := withRetry(b.cfg.IoRetryAttempts, b.cfg.IoRetryBackoff, func() error {
		return appendCache(b.paths, b.codec, keys, recs)
	}); err != nil {
		log.Errorw("append failed", "shard", b.shardID, "index", b.name, "err", err)
		return fmt.Errorf("shardbuilder: append shard %d: %w: %w", b.shardID, ErrIoTransient, err)
	}
	log.Debugw("appended cache", "shard", b.shardID, "index", b.name, "records", len(recs))
	return nil
}

// Truncate drops pending postings, empties both cache files (leaving them
// present) and empties the shard file (spec §4.C truncate()).
func (b *Builder[T]) Truncate() error {
	b.addMu.Lock()
	b.pendingKeys = nil
	b.pendingRecords = nil
	b.addMu.Unlock()

	if err := truncateCache(b.paths); err != nil {
		return err
	}
	return shardfile.Truncate(b.paths.data, b.paths.dir, b.cfg)
}

// ShardID returns this builder's shard identifier.
func (b *Builder[T]) ShardID() int { return b.shardID }

// CacheBytes returns the combined on-disk size of this shard's cache
// files, for reporting (e.g. CLI progress output).
func (b *Builder[T]) CacheBytes() (int64, error) {
	return cacheSize(b.paths)
}
