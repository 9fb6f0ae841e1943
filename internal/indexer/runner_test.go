package indexer

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexandria-search/engine/internal/collab"
	"github.com/alexandria-search/engine/internal/config"
	"github.com/alexandria-search/engine/internal/domainmap"
	"github.com/alexandria-search/engine/internal/partition"
	"github.com/alexandria-search/engine/internal/record"
	"github.com/alexandria-search/engine/internal/shardbuilder"
	"github.com/alexandria-search/engine/internal/shardedindex"
	"github.com/alexandria-search/engine/internal/shardfile"
)

type fakeFetcher struct{ rows string }

func (f fakeFetcher) OpenBatch(ctx context.Context, batchID string) ([]io.ReadCloser, error) {
	return []io.ReadCloser{io.NopCloser(strings.NewReader(f.rows))}, nil
}

type fakeURLParser struct{}

func (fakeURLParser) Parse(rawURL string) (collab.URLParts, error) {
	host := strings.TrimPrefix(rawURL, "http://")
	if i := strings.Index(host, "/"); i >= 0 {
		host = host[:i]
	}
	return collab.URLParts{
		Host:         host,
		HostHash:     record.HashString(host),
		DomainHash:   record.HashString(host),
		URLHash:      record.HashString(rawURL),
		CanonicalURL: rawURL,
	}, nil
}

type fakeExtractor struct{}

func (fakeExtractor) Words(s string) []string         { return strings.Fields(s) }
func (fakeExtractor) ExpandedWords(s string) []string { return strings.Fields(s) }

type fakePrior struct{}

func (fakePrior) Harmonic(url string) float32 { return 1.0 }

func TestProcessBatchIndexesOwnedRows(t *testing.T) {
	cfg := config.Small()
	cfg.Root = t.TempDir()
	cfg.Partitions = 1
	cfg.ClusterNodes = 1

	planner := partition.New(cfg.Partitions, cfg.ClusterNodes)
	domains := domainmap.New(cfg, "test")
	locks := shardedindex.NewLocks(cfg)
	pages, err := shardedindex.New[record.Page]("page_text", cfg, shardfile.PageCodec, locks)
	require.NoError(t, err)

	fields := []FieldConfig{{Column: 0, BaseScore: 1}}
	r := New(cfg, planner, 0, 0, domains, pages, fakeURLParser{}, fakeExtractor{}, fakePrior{}, fields, nil)

	rows := "http://url1.com/test\thello world\n"
	stats, err := r.ProcessBatch(context.Background(), fakeFetcher{rows: rows}, "batch-1")
	require.NoError(t, err)
	require.Equal(t, 1, stats.RowsProcessed)
	require.Equal(t, 1, domains.Len())

	require.NoError(t, pages.MergeLargeUnder())
	for i := 0; i < cfg.NumShards; i++ {
		require.NoError(t, pages.Shard(i).Merge(locks[i]))
	}

	urlHash := record.HashString("http://url1.com/test")
	require.True(t, domains.Has(urlHash))
}

func TestProcessBatchSkipsMalformedRows(t *testing.T) {
	cfg := config.Small()
	cfg.Root = t.TempDir()
	planner := partition.New(1, 1)
	domains := domainmap.New(cfg, "test")
	locks := shardedindex.NewLocks(cfg)
	pages, err := shardedindex.New[record.Page]("page_text", cfg, shardfile.PageCodec, locks)
	require.NoError(t, err)

	fields := []FieldConfig{{Column: 0, BaseScore: 1}}
	r := New(cfg, planner, 0, 0, domains, pages, fakeURLParser{}, fakeExtractor{}, fakePrior{}, fields, nil)

	rows := "\nhttp://url2.com/\ttext\n"
	stats, err := r.ProcessBatch(context.Background(), fakeFetcher{rows: rows}, "batch-2")
	require.NoError(t, err)
	require.Equal(t, 1, stats.RowsProcessed)
	require.Equal(t, 1, stats.RowsSkipped)
}

func TestProcessBatchSkipsForeignPartition(t *testing.T) {
	cfg := config.Small()
	cfg.Root = t.TempDir()
	planner := partition.New(8, 1)
	domains := domainmap.New(cfg, "test")
	locks := shardedindex.NewLocks(cfg)
	pages, err := shardedindex.New[record.Page]("page_text", cfg, shardfile.PageCodec, locks)
	require.NoError(t, err)

	fields := []FieldConfig{{Column: 0, BaseScore: 1}}
	// partitionID 7 almost certainly doesn't own every hash in a tiny
	// fixed corpus; verify at least that ownership is enforced, not
	// bypassed, by comparing against the planner directly.
	r := New(cfg, planner, 7, 0, domains, pages, fakeURLParser{}, fakeExtractor{}, fakePrior{}, fields, nil)

	urlHash := record.HashString("http://url1.com/test")
	owned := planner.ShouldIndex(urlHash, 7, 0)

	rows := "http://url1.com/test\thello\n"
	stats, err := r.ProcessBatch(context.Background(), fakeFetcher{rows: rows}, "batch-3")
	require.NoError(t, err)
	if owned {
		require.Equal(t, 1, stats.RowsProcessed)
	} else {
		require.Equal(t, 0, stats.RowsProcessed)
		require.Equal(t, 1, stats.RowsSkipped)
	}
}

// TestProcessBatchDefersOnWriteCacheContentionThenFlushSucceeds covers the
// propagation policy half of spec §7 kind 4 that applies to the
// background cache writer: a periodic write_cache_under call that hits
// lock contention defers rather than aborting the batch. Every shard
// lock is held when the mid-batch write_cache fires and released shortly
// after, so it is still free by the time the end-of-batch flush_cache
// call needs it.
func TestProcessBatchDefersOnWriteCacheContentionThenFlushSucceeds(t *testing.T) {
	cfg := config.Small()
	cfg.Root = t.TempDir()
	cfg.CacheFlushBytes = 0 // any pending record makes a shard "full"
	cfg.LockTimeout = 30 * time.Millisecond

	planner := partition.New(1, 1)
	domains := domainmap.New(cfg, "test")
	locks := shardedindex.NewLocks(cfg)
	pages, err := shardedindex.New[record.Page]("page_text", cfg, shardfile.PageCodec, locks)
	require.NoError(t, err)

	for _, l := range locks {
		l.Lock()
	}
	time.AfterFunc(50*time.Millisecond, func() {
		for _, l := range locks {
			l.Unlock()
		}
	})

	fields := []FieldConfig{{Column: 0, BaseScore: 1}}
	r := New(cfg, planner, 0, 0, domains, pages, fakeURLParser{}, fakeExtractor{}, fakePrior{}, fields, nil)
	r.writeCacheEvery = 1

	rows := "http://url1.com/test\thello world\n"
	stats, err := r.ProcessBatch(context.Background(), fakeFetcher{rows: rows}, "batch-defer")
	require.NoError(t, err, "contention on the periodic write_cache call should defer, not abort the batch")
	require.Equal(t, 1, stats.RowsProcessed)
}

// TestProcessBatchPropagatesFatalOnFlushCacheContention covers the other
// half: the end-of-batch flush_cache call is the synchronous path, so
// lock contention there aborts the batch wrapped in ErrFatal (spec §7
// kind 4 "propagates").
func TestProcessBatchPropagatesFatalOnFlushCacheContention(t *testing.T) {
	cfg := config.Small()
	cfg.Root = t.TempDir()
	cfg.LockTimeout = 10 * time.Millisecond

	planner := partition.New(1, 1)
	domains := domainmap.New(cfg, "test")
	locks := shardedindex.NewLocks(cfg)
	pages, err := shardedindex.New[record.Page]("page_text", cfg, shardfile.PageCodec, locks)
	require.NoError(t, err)

	locks[0].Lock()
	defer locks[0].Unlock()

	fields := []FieldConfig{{Column: 0, BaseScore: 1}}
	r := New(cfg, planner, 0, 0, domains, pages, fakeURLParser{}, fakeExtractor{}, fakePrior{}, fields, nil)

	rows := "http://url1.com/test\thello world\n"
	_, err = r.ProcessBatch(context.Background(), fakeFetcher{rows: rows}, "batch-fatal")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrFatal)
	require.ErrorIs(t, err, shardbuilder.ErrContention)
}
