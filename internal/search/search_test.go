package search

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexandria-search/engine/internal/config"
	"github.com/alexandria-search/engine/internal/domainmap"
	"github.com/alexandria-search/engine/internal/record"
	"github.com/alexandria-search/engine/internal/shardbuilder"
	"github.com/alexandria-search/engine/internal/shardfile"
)

type singleTokenExtractor struct{ token string }

func (e singleTokenExtractor) Words(s string) []string         { return []string{e.token} }
func (e singleTokenExtractor) ExpandedWords(s string) []string { return []string{e.token} }

func buildPageShard(t *testing.T, cfg *config.Config, name string, termHash uint64, pages ...record.Page) {
	t.Helper()
	shardID := int(termHash % uint64(cfg.NumShards))
	b := shardbuilder.New[record.Page](name, shardID, cfg, shardfile.PageCodec)
	for _, p := range pages {
		b.Add(termHash, p)
	}
	var mu sync.Mutex
	require.NoError(t, b.Append(&mu))
	require.NoError(t, b.Merge(&mu))
}

func buildLinkShard(t *testing.T, cfg *config.Config, name string, kind record.LinkKind, termHash uint64, links ...record.Link) {
	t.Helper()
	codec := shardfile.LinkCodec(kind)
	shardID := int(termHash % uint64(cfg.NumShards))
	b := shardbuilder.New[record.Link](name, shardID, cfg, codec)
	for _, l := range links {
		b.Add(termHash, l)
	}
	var mu sync.Mutex
	require.NoError(t, b.Append(&mu))
	require.NoError(t, b.Merge(&mu))
}

// TestQueryMatchesSiteTokenWithLinkFusion mirrors spec §8 scenario 5:
// querying "url1.com" returns the one page indexed under that host, with
// one URL-level link match.
func TestQueryMatchesSiteTokenWithLinkFusion(t *testing.T) {
	cfg := config.Small()
	cfg.Root = t.TempDir()
	cfg.HostDedupCap = 1

	urlHash := record.HashString("http://url1.com/test")
	hostHash := record.HashString("url1.com")
	termHash := record.HashTerm("link:url1.com")

	buildPageShard(t, cfg, "page_text", termHash, record.Page{Value: urlHash, Score: 1, Count: 1})
	buildLinkShard(t, cfg, "page_text_link_url", record.LinkKindURL, termHash,
		record.Link{Value: urlHash, Score: 5, Count: 1, SourceDomain: hostHash, TargetDomain: hostHash})

	domains := domainmap.New(cfg, "page_text")
	domains.Add(urlHash, hostHash)

	e := New(cfg, "page_text", domains, LinkSource{Name: "page_text_link_url", Kind: record.LinkKindURL})
	results, metric, err := e.Search("url1.com", singleTokenExtractor{token: "link:url1.com"}, 10)
	require.NoError(t, err)

	require.Equal(t, 1, metric.TotalFound)
	require.Equal(t, 1, metric.LinkURLMatches)
	require.Len(t, results, 1)
	require.Equal(t, urlHash, results[0].Value)
	require.Equal(t, float32(6), results[0].Score)
}

// TestHostDedupCap mirrors spec §8 scenario 6: two pages under the same
// host both match a query; default cap 1 returns the higher-scored one,
// cap 2 returns both.
func TestHostDedupCap(t *testing.T) {
	cfg := config.Small()
	cfg.Root = t.TempDir()

	hostHash := record.HashString("samehost.com")
	urlA := record.HashString("http://samehost.com/a")
	urlB := record.HashString("http://samehost.com/b")
	termHash := record.HashTerm("shared")

	buildPageShard(t, cfg, "page_text", termHash,
		record.Page{Value: urlA, Score: 5, Count: 1},
		record.Page{Value: urlB, Score: 3, Count: 1},
	)

	domains := domainmap.New(cfg, "page_text")
	domains.Add(urlA, hostHash)
	domains.Add(urlB, hostHash)

	cfg.HostDedupCap = 1
	e := New(cfg, "page_text", domains)
	results, _, err := e.Search("shared", singleTokenExtractor{token: "shared"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, urlA, results[0].Value)

	cfg.HostDedupCap = 2
	e2 := New(cfg, "page_text", domains)
	results2, _, err := e2.Search("shared", singleTokenExtractor{token: "shared"}, 10)
	require.NoError(t, err)
	require.Len(t, results2, 2)
}

type emptyExtractor struct{}

func (emptyExtractor) Words(s string) []string         { return nil }
func (emptyExtractor) ExpandedWords(s string) []string { return nil }

func TestSearchNoTokensReturnsEmpty(t *testing.T) {
	cfg := config.Small()
	cfg.Root = t.TempDir()
	domains := domainmap.New(cfg, "page_text")
	e := New(cfg, "page_text", domains)

	results, metric, err := e.Search("", emptyExtractor{}, 10)
	require.NoError(t, err)
	require.Nil(t, results)
	require.Equal(t, 0, metric.TotalFound)
}
