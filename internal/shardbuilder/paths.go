package shardbuilder

import (
	"github.com/alexandria-search/engine/internal/config"
	"github.com/alexandria-search/engine/internal/layout"
)

// paths computes the on-disk locations for one shard of one logical
// index (spec §6 Disk layout): {root}/{mount_i}/full_text/{name}_{i}.*
type paths struct {
	data      string
	dir       string // key directory (*.keys)
	cache     string
	cacheKeys string
}

func shardPaths(cfg *config.Config, name string, shardID int) paths {
	p := layout.Shard(cfg, name, shardID)
	return paths{
		data:      p.Data,
		dir:       p.Dir,
		cache:     p.Cache,
		cacheKeys: p.CacheKeys,
	}
}
