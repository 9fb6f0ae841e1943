package main

import (
	"github.com/urfave/cli/v2"

	"github.com/alexandria-search/engine/internal/config"
)

// configFromFlags builds a Config from the app's global flags, starting
// from production defaults (DESIGN NOTES, "Global configuration": an
// immutable value constructed once and passed by reference).
func configFromFlags(c *cli.Context) *config.Config {
	cfg := config.Default()
	cfg.Root = c.String(FlagRoot.Name)
	if n := c.Int(FlagNumShards.Name); n > 0 {
		cfg.NumShards = n
	}
	if dedupCap := c.Int(FlagHostDedupCap.Name); dedupCap > 0 {
		cfg.HostDedupCap = dedupCap
	}
	cfg.Partitions = c.Uint64(FlagPartitions.Name)
	cfg.ClusterNodes = c.Uint64(FlagClusterNodes.Name)
	return cfg
}
