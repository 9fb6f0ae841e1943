package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/alexandria-search/engine/internal/collab"
	"github.com/alexandria-search/engine/internal/defaultcollab"
	"github.com/alexandria-search/engine/internal/domainmap"
	"github.com/alexandria-search/engine/internal/indexer"
	"github.com/alexandria-search/engine/internal/partition"
	"github.com/alexandria-search/engine/internal/record"
	"github.com/alexandria-search/engine/internal/shardedindex"
	"github.com/alexandria-search/engine/internal/shardfile"
)

func newCmd_Index() *cli.Command {
	return &cli.Command{
		Name:        "index",
		Description: "Build a logical index's shards from a batch of TSV rows.",
		Flags: []cli.Flag{
			FlagIndexName,
			FlagPartitionID,
			FlagPartitions,
			FlagNodeID,
			FlagClusterNodes,
		},
		ArgsUsage: "<batch>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("index: expected exactly one <batch> argument")
			}
			batchID := c.Args().Get(0)
			cfg := configFromFlags(c)

			planner := partition.New(cfg.Partitions, cfg.ClusterNodes)
			name := c.String(FlagIndexName.Name)

			domains := domainmap.New(cfg, name)
			if err := domains.Read(); err != nil {
				return fmt.Errorf("index: read domain map: %w", err)
			}

			locks := shardedindex.NewLocks(cfg)
			pages, err := shardedindex.New[record.Page](name, cfg, shardfile.PageCodec, locks)
			if err != nil {
				return fmt.Errorf("index: build sharded index: %w", err)
			}

			fields := []indexer.FieldConfig{
				{Column: 0, BaseScore: 1.0},
			}

			runner := indexer.New(
				cfg, planner,
				c.Uint64(FlagPartitionID.Name), c.Uint64(FlagNodeID.Name),
				domains, pages,
				defaultcollab.URLParser{}, defaultcollab.TextExtractor{}, defaultcollab.PriorScorer{},
				fields, indexer.NewMetrics(),
			)

			progress := mpb.New()
			bar := progress.AddBar(0,
				mpb.PrependDecorators(decor.Name("indexing "+batchID)),
				mpb.AppendDecorators(decor.CurrentNoUnit("%d rows")),
			)

			var fetcher collab.Fetcher = defaultcollab.FileFetcher{}
			stats, err := runner.ProcessBatch(c.Context, fetcher, batchID)
			bar.SetCurrent(int64(stats.RowsProcessed))
			bar.Abort(false)
			progress.Wait()
			if err != nil {
				return fmt.Errorf("index: process batch: %w", err)
			}

			if err := domains.Write(); err != nil {
				return fmt.Errorf("index: write domain map: %w", err)
			}

			cacheBytes, err := pages.CacheBytes()
			if err != nil {
				return fmt.Errorf("index: cache bytes: %w", err)
			}
			fmt.Printf("indexed %s rows, skipped %s, cache size %s\n",
				humanize.Comma(int64(stats.RowsProcessed)), humanize.Comma(int64(stats.RowsSkipped)), humanize.Bytes(uint64(cacheBytes)))
			return nil
		},
	}
}
