package shardbuilder

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexandria-search/engine/internal/config"
	"github.com/alexandria-search/engine/internal/record"
	"github.com/alexandria-search/engine/internal/shardfile"
)

func readFile(t *testing.T, path string) ([]byte, error) {
	t.Helper()
	return os.ReadFile(path)
}

func newTestBuilder(t *testing.T) (*Builder[record.Page], *config.Config, *sync.Mutex) {
	t.Helper()
	cfg := config.Small()
	cfg.Root = t.TempDir()
	b := New[record.Page]("pages", 0, cfg, shardfile.PageCodec)
	return b, cfg, &sync.Mutex{}
}

func openShard(t *testing.T, b *Builder[record.Page], cfg *config.Config) *shardfile.Shard[record.Page] {
	t.Helper()
	p := shardPaths(cfg, "pages", b.ShardID())
	shard, err := shardfile.Open(p.data, p.dir, cfg, shardfile.PageCodec)
	require.NoError(t, err)
	t.Cleanup(func() { shard.Close() })
	return shard
}

// TestMergeTruncatesAndSectionsOversizedLists covers spec §8's "1000
// record merge/find" shape at a scale sized for Small(): MaxPerTerm =
// SectionSize*MaxSections = 4*3 = 12, so a 20-record posting list must be
// truncated to the 12 highest-scoring records and re-ordered into
// sections of 4, each ascending by value.
func TestMergeTruncatesAndSectionsOversizedLists(t *testing.T) {
	b, cfg, lock := newTestBuilder(t)

	const key = uint64(7)
	const n = 20
	for i := 0; i < n; i++ {
		// Descending insertion order so the highest scores land on the
		// highest values, to make post-truncation section order checkable.
		b.Add(key, record.Page{Value: uint64(n - i), Score: float32(n - i), Count: 1})
	}
	require.NoError(t, b.Append(lock))
	require.NoError(t, b.Merge(lock))

	shard := openShard(t, b, cfg)
	res, err := shard.Find(key)
	require.NoError(t, err)

	maxPerTerm := cfg.SectionSize * cfg.MaxSections
	require.Equal(t, maxPerTerm, len(res.Records))
	require.Equal(t, n, res.Total, "Total reports the deduped count before truncation")

	// The 12 surviving records are the 12 highest-scoring (values 9..20),
	// split into 3 sections of 4, each ascending by value.
	for section := 0; section < cfg.MaxSections; section++ {
		chunk := res.Records[section*cfg.SectionSize : (section+1)*cfg.SectionSize]
		for i := 1; i < len(chunk); i++ {
			require.Less(t, chunk[i-1].Value, chunk[i].Value)
		}
	}
	seen := map[uint64]bool{}
	for _, r := range res.Records {
		seen[r.Value] = true
	}
	for v := uint64(9); v <= uint64(20); v++ {
		require.True(t, seen[v], "expected surviving value %d", v)
	}
}

// TestMergeDedupesDuplicatesByMaxScore covers spec §8's "10 duplicate
// max-score dedup" scenario directly through Builder.Merge: ten postings
// for the same (key, value) pair collapse to one record keeping the
// highest score and the summed count.
func TestMergeDedupesDuplicatesByMaxScore(t *testing.T) {
	b, cfg, lock := newTestBuilder(t)

	const key = uint64(3)
	const value = uint64(100)
	for i := 0; i < 10; i++ {
		b.Add(key, record.Page{Value: value, Score: float32(i + 1), Count: 1})
	}
	require.NoError(t, b.Append(lock))
	require.NoError(t, b.Merge(lock))

	shard := openShard(t, b, cfg)
	res, err := shard.Find(key)
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	require.Equal(t, value, res.Records[0].Value)
	require.Equal(t, float32(10), res.Records[0].Score, "max score among the 10 duplicates wins")
	require.Equal(t, uint32(10), res.Records[0].Count, "counts of collapsed duplicates are summed")
}

// TestMergeOfIdenticalInputIsByteIdentical covers spec §8's idempotence
// property: re-indexing the same cumulative batch (e.g. after a retry)
// must yield a byte-identical shard file. It builds two independent
// shard builders from scratch with the exact same postings and checks
// their merged shard files are byte-for-byte equal, which in turn
// requires deterministic key and slot ordering during Merge despite Go's
// randomized map iteration order.
func TestMergeOfIdenticalInputIsByteIdentical(t *testing.T) {
	add := func(bldr *Builder[record.Page]) {
		for key := uint64(0); key < 50; key++ {
			for v := uint64(0); v < 3; v++ {
				bldr.Add(key, record.Page{Value: v, Score: float32(key + v), Count: 1})
			}
		}
	}

	b1, cfg1, lock1 := newTestBuilder(t)
	add(b1)
	require.NoError(t, b1.Append(lock1))
	require.NoError(t, b1.Merge(lock1))
	p1 := shardPaths(cfg1, "pages", b1.ShardID())
	firstData, err := readFile(t, p1.data)
	require.NoError(t, err)
	firstDir, err := readFile(t, p1.dir)
	require.NoError(t, err)

	b2, cfg2, lock2 := newTestBuilder(t)
	add(b2)
	require.NoError(t, b2.Append(lock2))
	require.NoError(t, b2.Merge(lock2))
	p2 := shardPaths(cfg2, "pages", b2.ShardID())
	secondData, err := readFile(t, p2.data)
	require.NoError(t, err)
	secondDir, err := readFile(t, p2.dir)
	require.NoError(t, err)

	require.Equal(t, firstData, secondData, "merging identical cumulative postings from scratch must produce a byte-identical shard data file")
	require.Equal(t, firstDir, secondDir, "merging identical cumulative postings from scratch must produce a byte-identical shard key directory")
}
