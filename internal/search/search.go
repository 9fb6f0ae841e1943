// Package search implements the query pipeline (spec §4.G): tokenizes a
// query, reads per-token posting lists from a page-text logical index,
// intersects them, fuses link-graph scores, and deduplicates by host.
package search

import (
	"fmt"
	"sort"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/alexandria-search/engine/internal/collab"
	"github.com/alexandria-search/engine/internal/config"
	"github.com/alexandria-search/engine/internal/domainmap"
	"github.com/alexandria-search/engine/internal/layout"
	"github.com/alexandria-search/engine/internal/record"
	"github.com/alexandria-search/engine/internal/shardfile"
)

var log = logging.Logger("search")

// LinkSource names one link-anchor logical index to fuse into results,
// classified URL-level or domain-level by its Kind (spec §4.G step 4).
type LinkSource struct {
	Name string
	Kind record.LinkKind
}

// Result is one ranked document.
type Result struct {
	Value uint64
	Score float32
}

// SearchMetric reports what a Search call matched (spec §4.G step 6).
type SearchMetric struct {
	TotalFound        int
	LinkURLMatches    int
	LinkDomainMatches int
	Elapsed           time.Duration
}

// Engine answers queries against one page-text logical index, optionally
// fused with one or more link-anchor indices, with host deduplication
// resolved via the index's URL→domain map.
type Engine struct {
	cfg       *config.Config
	pageIndex string
	domains   *domainmap.Map
	links     []LinkSource
}

// New constructs a query engine over pageIndex's shards. domains must be
// the same logical index's URL→domain map, already Read() from disk.
func New(cfg *config.Config, pageIndex string, domains *domainmap.Map, links ...LinkSource) *Engine {
	return &Engine{cfg: cfg, pageIndex: pageIndex, domains: domains, links: links}
}

type candidate struct {
	score     float32
	termHits  int
}

// Search runs the full pipeline of spec §4.G steps 1-6.
func (e *Engine) Search(query string, extractor collab.TextExtractor, limit int) ([]Result, SearchMetric, error) {
	start := time.Now()

	tokens := extractor.ExpandedWords(query)
	if len(tokens) == 0 {
		return nil, SearchMetric{Elapsed: time.Since(start)}, nil
	}

	candidates := map[uint64]*candidate{}
	for _, tok := range tokens {
		termHash := record.HashTerm(tok)
		postings, err := e.findPage(termHash)
		if err != nil {
			return nil, SearchMetric{}, fmt.Errorf("search: find term %q: %w", tok, err)
		}
		for _, p := range postings {
			c, ok := candidates[p.Value]
			if !ok {
				c = &candidate{}
				candidates[p.Value] = c
			}
			c.score += p.Score
			c.termHits++
		}
	}

	matched := make([]Result, 0, len(candidates))
	for value, c := range candidates {
		if c.termHits != len(tokens) {
			continue
		}
		matched = append(matched, Result{Value: value, Score: c.score})
	}

	var metric SearchMetric
	metric.TotalFound = len(matched)

	if len(e.links) > 0 {
		byValue := make(map[uint64]*Result, len(matched))
		for i := range matched {
			byValue[matched[i].Value] = &matched[i]
		}
		for _, src := range e.links {
			for _, tok := range tokens {
				termHash := record.HashTerm(tok)
				links, err := e.findLink(src, termHash)
				if err != nil {
					return nil, SearchMetric{}, fmt.Errorf("search: find link term %q: %w", tok, err)
				}
				for _, l := range links {
					r, ok := byValue[l.Value]
					if !ok {
						continue
					}
					r.Score += l.Score
					switch src.Kind {
					case record.LinkKindURL:
						metric.LinkURLMatches++
					case record.LinkKindDomain:
						metric.LinkDomainMatches++
					}
				}
			}
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Score != matched[j].Score {
			return matched[i].Score > matched[j].Score
		}
		return matched[i].Value < matched[j].Value
	})

	deduped := e.dedupeByHost(matched, limit)

	metric.Elapsed = time.Since(start)
	return deduped, metric, nil
}

// dedupeByHost sweeps score-descending results, dropping any whose host
// has already been emitted cfg.HostDedupCap times (spec §4.G step 5).
func (e *Engine) dedupeByHost(sorted []Result, limit int) []Result {
	dedupCap := e.cfg.HostDedupCap
	if dedupCap <= 0 {
		dedupCap = 1
	}

	seen := map[uint64]int{}
	out := make([]Result, 0, limit)
	for _, r := range sorted {
		if len(out) >= limit {
			break
		}
		host, ok := e.domains.Host(r.Value)
		if ok {
			if seen[host] >= dedupCap {
				continue
			}
			seen[host]++
		}
		out = append(out, r)
	}
	return out
}

func (e *Engine) findPage(termHash uint64) ([]record.Page, error) {
	shardID := int(termHash % uint64(e.cfg.NumShards))
	p := layout.Shard(e.cfg, e.pageIndex, shardID)
	shard, err := shardfile.Open(p.Data, p.Dir, e.cfg, shardfile.PageCodec)
	if err != nil {
		return nil, err
	}
	defer shard.Close()

	result, err := shard.Find(termHash)
	if err != nil {
		log.Warnw("page shard find failed, treating as empty", "index", e.pageIndex, "shard", shardID, "err", err)
		return nil, nil
	}
	return result.Records, nil
}

func (e *Engine) findLink(src LinkSource, termHash uint64) ([]record.Link, error) {
	shardID := int(termHash % uint64(e.cfg.NumShards))
	p := layout.Shard(e.cfg, src.Name, shardID)
	codec := shardfile.LinkCodec(src.Kind)
	shard, err := shardfile.Open(p.Data, p.Dir, e.cfg, codec)
	if err != nil {
		return nil, err
	}
	defer shard.Close()

	result, err := shard.Find(termHash)
	if err != nil {
		log.Warnw("link shard find failed, treating as empty", "index", src.Name, "shard", shardID, "err", err)
		return nil, nil
	}
	return result.Records, nil
}
