package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/alexandria-search/engine/internal/record"
	"github.com/alexandria-search/engine/internal/shardedindex"
	"github.com/alexandria-search/engine/internal/shardfile"
)

func newCmd_Merge() *cli.Command {
	return &cli.Command{
		Name:        "merge",
		Description: "Compact every shard whose cache exceeds the merge threshold into a fresh shard file.",
		Flags: []cli.Flag{
			FlagIndexName,
		},
		Action: func(c *cli.Context) error {
			cfg := configFromFlags(c)
			name := c.String(FlagIndexName.Name)

			locks := shardedindex.NewLocks(cfg)
			pages, err := shardedindex.New[record.Page](name, cfg, shardfile.PageCodec, locks)
			if err != nil {
				return fmt.Errorf("merge: build sharded index: %w", err)
			}

			if err := pages.MergeLargeUnder(); err != nil {
				return fmt.Errorf("merge: %w", err)
			}
			cacheBytes, err := pages.CacheBytes()
			if err != nil {
				return fmt.Errorf("merge: cache bytes: %w", err)
			}
			fmt.Printf("merge pass complete, remaining cache size %s\n", humanize.Bytes(uint64(cacheBytes)))
			return nil
		},
	}
}
