// Package shardedindex fans postings out to the N shard builders of one
// logical index by term_hash mod N (spec §4.E).
package shardedindex

import (
	"fmt"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/errgroup"

	"github.com/alexandria-search/engine/internal/config"
	"github.com/alexandria-search/engine/internal/record"
	"github.com/alexandria-search/engine/internal/shardbuilder"
	"github.com/alexandria-search/engine/internal/shardfile"
)

var log = logging.Logger("shardedindex")

// Index owns the N shard builders of one logical index and dispatches
// postings to shards[term_hash mod N]. The per-shard lock array is
// shared with any other Index instance indexing the same logical index
// name concurrently (spec §4.E), so callers construct Locks once per
// name and pass it to every Index built for that name.
type Index[T record.Posting[T]] struct {
	name     string
	cfg      *config.Config
	shards   []*shardbuilder.Builder[T]
	locks    []*sync.Mutex
}

// NewLocks allocates one mutex per shard, shared across all Index
// instances for one logical index.
func NewLocks(cfg *config.Config) []*sync.Mutex {
	locks := make([]*sync.Mutex, cfg.NumShards)
	for i := range locks {
		locks[i] = &sync.Mutex{}
	}
	return locks
}

// New constructs a sharded index over cfg.NumShards shard builders for
// logical index name. locks must have length cfg.NumShards and must be
// shared with any concurrent indexer writing to the same name.
func New[T record.Posting[T]](name string, cfg *config.Config, codec shardfile.Codec[T], locks []*sync.Mutex) (*Index[T], error) {
	if len(locks) != cfg.NumShards {
		return nil, fmt.Errorf("shardedindex: locks length %d != NumShards %d", len(locks), cfg.NumShards)
	}
	shards := make([]*shardbuilder.Builder[T], cfg.NumShards)
	for i := range shards {
		shards[i] = shardbuilder.New[T](name, i, cfg, codec)
	}
	return &Index[T]{name: name, cfg: cfg, shards: shards, locks: locks}, nil
}

// Add dispatches (termHash, rec) to shards[termHash mod N] (spec §4.E
// add()).
func (ix *Index[T]) Add(termHash uint64, rec T) {
	shard := termHash % uint64(ix.cfg.NumShards)
	ix.shards[shard].Add(termHash, rec)
}

// Shard returns the builder for a given shard id, for callers that drive
// one shard's Append or Merge directly.
func (ix *Index[T]) Shard(i int) *shardbuilder.Builder[T] {
	return ix.shards[i]
}

// NumShards returns the number of shard builders.
func (ix *Index[T]) NumShards() int { return len(ix.shards) }

// CacheBytes sums the on-disk cache size across every shard, for
// reporting (e.g. CLI progress output).
func (ix *Index[T]) CacheBytes() (int64, error) {
	var total int64
	for i, shard := range ix.shards {
		n, err := shard.CacheBytes()
		if err != nil {
			return 0, fmt.Errorf("shardedindex: cache bytes shard %d: %w", i, err)
		}
		total += n
	}
	return total, nil
}

// WriteCacheUnder spills every full shard's pending postings to its
// cache files; full shards are appended concurrently, each under its own
// lock (spec §4.E write_cache_under(locks[])).
func (ix *Index[T]) WriteCacheUnder() error {
	g := new(errgroup.Group)
	for i, shard := range ix.shards {
		i, shard := i, shard
		if !shard.Full() {
			continue
		}
		g.Go(func() error {
			if err := shard.Append(ix.locks[i]); err != nil {
				return fmt.Errorf("shardedindex: append shard %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// FlushCache forces append() on every shard regardless of fullness
// (spec §4.F "Batch finish": flush_cache).
func (ix *Index[T]) FlushCache() error {
	g := new(errgroup.Group)
	for i, shard := range ix.shards {
		i, shard := i, shard
		g.Go(func() error {
			if err := shard.Append(ix.locks[i]); err != nil {
				return fmt.Errorf("shardedindex: flush shard %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// MergeLargeUnder merges every shard whose on-disk cache exceeds the
// merge threshold; those shards are merged concurrently, each under its
// own lock (spec §4.E merge_large_under(locks[])).
func (ix *Index[T]) MergeLargeUnder() error {
	g := new(errgroup.Group)
	for i, shard := range ix.shards {
		i, shard := i, shard
		should, err := shard.ShouldMerge()
		if err != nil {
			return fmt.Errorf("shardedindex: should_merge shard %d: %w", i, err)
		}
		if !should {
			continue
		}
		g.Go(func() error {
			if err := shard.Merge(ix.locks[i]); err != nil {
				return fmt.Errorf("shardedindex: merge shard %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	log.Infow("merge pass complete", "index", ix.name)
	return nil
}
