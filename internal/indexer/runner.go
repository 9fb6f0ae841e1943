// Package indexer implements the indexer runner (spec §4.F): reads a
// batch of TSV rows, extracts and scores terms per configured field,
// synthesizes host tokens, and dispatches postings into the page-text
// sharded index, with periodic cache spilling. It produces no link
// postings.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"

	"github.com/alexandria-search/engine/internal/batch"
	"github.com/alexandria-search/engine/internal/collab"
	"github.com/alexandria-search/engine/internal/config"
	"github.com/alexandria-search/engine/internal/domainmap"
	"github.com/alexandria-search/engine/internal/partition"
	"github.com/alexandria-search/engine/internal/record"
	"github.com/alexandria-search/engine/internal/shardbuilder"
	"github.com/alexandria-search/engine/internal/shardedindex"
)

var log = logging.Logger("indexer")

// Stats summarizes one ProcessBatch call.
type Stats struct {
	RowsProcessed int
	RowsSkipped   int
}

// Runner processes one partition's slice of a batch stream (spec §4.F
// "Input").
type Runner struct {
	cfg *config.Config

	planner     *partition.Planner
	partitionID uint64
	nodeID      uint64

	domains *domainmap.Map
	pages   *shardedindex.Index[record.Page]

	urlParser collab.URLParser
	extractor collab.TextExtractor
	prior     collab.PriorScorer

	fields []FieldConfig

	writeCacheEvery int
	rowsSinceWrite  int

	metrics *Metrics
}

// New constructs a Runner for one (partitionID, nodeID) slice of one
// logical index's page-text shard set.
func New(
	cfg *config.Config,
	planner *partition.Planner,
	partitionID, nodeID uint64,
	domains *domainmap.Map,
	pages *shardedindex.Index[record.Page],
	urlParser collab.URLParser,
	extractor collab.TextExtractor,
	prior collab.PriorScorer,
	fields []FieldConfig,
	metrics *Metrics,
) *Runner {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Runner{
		cfg:             cfg,
		planner:         planner,
		partitionID:     partitionID,
		nodeID:          nodeID,
		domains:         domains,
		pages:           pages,
		urlParser:       urlParser,
		extractor:       extractor,
		prior:           prior,
		fields:          fields,
		writeCacheEvery: 1000,
		metrics:         metrics,
	}
}

// ProcessBatch reads every stream the fetcher yields for batchID,
// processes each row, and flushes every shard's cache on completion
// (spec §4.F "Batch finish": flush_cache). An I/O error while spilling
// caches aborts the batch; a row-level parse failure is logged and
// skipped.
func (r *Runner) ProcessBatch(ctx context.Context, fetcher collab.Fetcher, batchID string) (Stats, error) {
	runID := uuid.NewString()
	log.Infow("processing batch", "run_id", runID, "batch", batchID, "partition", r.partitionID, "node", r.nodeID)

	streams, err := fetcher.OpenBatch(ctx, batchID)
	if err != nil {
		return Stats{}, fmt.Errorf("indexer: open batch %s: %w", batchID, err)
	}

	var stats Stats
	for _, stream := range streams {
		if err := ctx.Err(); err != nil {
			stream.Close()
			return stats, err
		}

		rr, err := batch.Open(stream)
		if err != nil {
			return stats, fmt.Errorf("indexer: open stream: %w", err)
		}

		for {
			row, err := rr.Next()
			if errors.Is(err, batch.ErrMalformed) {
				stats.RowsSkipped++
				r.metrics.RowsSkipped.Inc()
				log.Warnw("skipping malformed row", "batch", batchID)
				continue
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					rr.Close()
					break
				}
				rr.Close()
				return stats, fmt.Errorf("indexer: read row: %w", err)
			}

			indexed, err := r.processRow(row)
			if err != nil {
				stats.RowsSkipped++
				r.metrics.RowsSkipped.Inc()
				log.Warnw("skipping row", "batch", batchID, "url", row.URL, "err", err)
				continue
			}
			if indexed {
				stats.RowsProcessed++
				r.metrics.RowsProcessed.Inc()
			} else {
				stats.RowsSkipped++
				r.metrics.RowsSkipped.Inc()
			}

			r.rowsSinceWrite++
			if r.rowsSinceWrite >= r.writeCacheEvery {
				r.rowsSinceWrite = 0
				if err := r.pages.WriteCacheUnder(); err != nil {
					if errors.Is(err, shardbuilder.ErrContention) {
						// Background cache writer: defer to the next pass
						// rather than aborting the batch (spec §7 kind 4).
						log.Warnw("write_cache deferred on lock contention", "batch", batchID, "err", err)
					} else {
						rr.Close()
						return stats, fmt.Errorf("indexer: write_cache: %w: %w", ErrFatal, err)
					}
				}
			}
		}
	}

	if err := r.pages.FlushCache(); err != nil {
		// flush_cache is the synchronous end-of-batch path: contention and
		// every other shardbuilder error both propagate (spec §7 kind 4).
		return stats, fmt.Errorf("indexer: flush_cache: %w: %w", ErrFatal, err)
	}
	log.Infow("batch complete", "run_id", runID, "batch", batchID, "processed", stats.RowsProcessed, "skipped", stats.RowsSkipped)
	return stats, nil
}

// processRow runs the per-record pipeline of spec §4.F steps 1-7. It
// returns (false, nil) when the row is legitimately skipped (foreign
// partition ownership), and (false, err) when the row itself is
// malformed.
func (r *Runner) processRow(row batch.Row) (bool, error) {
	parts, err := r.urlParser.Parse(row.URL)
	if err != nil {
		return false, fmt.Errorf("parse url: %w", err)
	}

	if !r.planner.ShouldIndex(parts.URLHash, r.partitionID, r.nodeID) {
		return false, nil
	}

	r.domains.Add(parts.URLHash, parts.HostHash)

	harmonic := r.prior.Harmonic(parts.CanonicalURL)

	words := newWordMap()
	for _, f := range r.fields {
		if f.Column < 0 || f.Column >= len(row.Columns) {
			continue
		}
		expanded := r.extractor.ExpandedWords(row.Columns[f.Column])
		words.addField(expanded, f.BaseScore, record.HashTerm)
	}
	words.synthesizeHostTokens(parts.Host, harmonic, r.cfg.LinkScoreBoost, record.HashTerm)

	for termHash, score := range words {
		r.pages.Add(termHash, record.Page{
			Value: parts.URLHash,
			Score: score,
			Count: 1,
		})
	}

	return true, nil
}
