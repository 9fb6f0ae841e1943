// Package layout centralizes the on-disk path scheme of spec §6 so the
// shard builder, the search engine, and the domain map agree on where
// files live without duplicating the naming rules.
package layout

import (
	"fmt"
	"path/filepath"

	"github.com/alexandria-search/engine/internal/config"
)

// ShardPaths are the four files backing one shard of one logical index.
type ShardPaths struct {
	Data      string // {root}/{mount_i}/full_text/{name}_{i}.data
	Dir       string // {root}/{mount_i}/full_text/{name}_{i}.keys
	Cache     string // {root}/{mount_i}/full_text/{name}_{i}.cache
	CacheKeys string // {root}/{mount_i}/full_text/{name}_{i}.cache.keys
}

// Shard computes the paths for shardID of logical index name.
func Shard(cfg *config.Config, name string, shardID int) ShardPaths {
	mount := cfg.Mountpoint(shardID)
	base := filepath.Join(cfg.Root, fmt.Sprintf("%d", mount), "full_text", fmt.Sprintf("%s_%d", name, shardID))
	return ShardPaths{
		Data:      base + ".data",
		Dir:       base + ".keys",
		Cache:     base + ".cache",
		CacheKeys: base + ".cache.keys",
	}
}

// DomainMap returns the URL→domain map file path: {root}/url_to_domain/{name}.map
func DomainMap(cfg *config.Config, name string) string {
	return filepath.Join(cfg.Root, "url_to_domain", name+".map")
}
