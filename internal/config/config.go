// Package config holds the immutable, injected configuration every
// component is constructed with, replacing the C++ source's process-wide
// mutable globals (spec §9 DESIGN NOTES, "Global configuration").
package config

import "time"

// Config is passed by reference to every component at construction. Tests
// build their own, typically with much smaller shard counts and
// thresholds than production.
type Config struct {
	// NumShards is N_shards: the number of shards per logical index.
	NumShards int

	// ShardHashTableSize is the number of slots in a shard's dense key
	// directory (a power of two, e.g. 2^20).
	ShardHashTableSize uint64

	// SectionSize bounds the working set of a galloping intersection
	// (spec §3 "Section").
	SectionSize int

	// MaxSections bounds a posting list to MaxPerTerm = SectionSize *
	// MaxSections records after truncation.
	MaxSections int

	// CacheFlushBytes is the in-memory pending-postings threshold (shard
	// builder's full()), default ~300MB.
	CacheFlushBytes int64

	// MergeThresholdBytes is the combined on-disk cache size threshold
	// (shard builder's should_merge()), default ~1GB.
	MergeThresholdBytes int64

	// Partitions is P, the number of corpus partitions.
	Partitions uint64

	// ClusterNodes is K, the number of nodes sharing ownership of the
	// partition space.
	ClusterNodes uint64

	// MountCount spreads shard files across this many storage
	// mountpoints (mount_i = i mod MountCount), default 8.
	MountCount int

	// Root is the filesystem root under which mount_i/full_text/... and
	// url_to_domain/... live (spec §6 Disk layout).
	Root string

	// HostDedupCap is the maximum number of results allowed per
	// domain_hash in a single query (spec §4.G step 5), default 1.
	HostDedupCap int

	// LinkScoreBoost multiplies harmonic when synthesizing site:/link:
	// tokens (spec §4.F step 6).
	LinkScoreBoost float32

	// IndexWriterPoolSize, MergePoolSize, DownloadPoolSize size the
	// per-phase thread pools (spec §5 Scheduling model).
	IndexWriterPoolSize int
	MergePoolSize       int
	DownloadPoolSize    int

	// LockTimeout bounds how long Append/Merge wait to acquire a shard's
	// lock before failing with ErrContention (spec §7 kind 4). Zero means
	// block indefinitely.
	LockTimeout time.Duration

	// IoRetryAttempts bounds the number of attempts a shard builder makes
	// writing its cache files before giving up with ErrIoTransient (spec
	// §7 kind 1). At least 1.
	IoRetryAttempts int

	// IoRetryBackoff is the delay between retry attempts.
	IoRetryBackoff time.Duration
}

// MaxPerTerm is the truncation cap for a single term's posting list.
func (c Config) MaxPerTerm() int {
	return c.SectionSize * c.MaxSections
}

// Mountpoint returns the storage mountpoint index for shard id.
func (c Config) Mountpoint(shardID int) int {
	if c.MountCount <= 0 {
		return 0
	}
	return shardID % c.MountCount
}

// Default returns production-sized defaults, matching the magnitudes
// named throughout spec.md (2^20 hash table slots, 300MB/1GB cache
// thresholds, 8 mountpoints).
func Default() *Config {
	return &Config{
		NumShards:           256,
		ShardHashTableSize:  1 << 20,
		SectionSize:         1000,
		MaxSections:         10,
		CacheFlushBytes:     300 * 1000 * 1000,
		MergeThresholdBytes: 1000 * 1000 * 1000,
		Partitions:          1,
		ClusterNodes:        1,
		MountCount:          8,
		Root:                "/mnt",
		HostDedupCap:        1,
		LinkScoreBoost:      10,
		IndexWriterPoolSize: 8,
		MergePoolSize:       4,
		DownloadPoolSize:    16,
		LockTimeout:         5 * time.Second,
		IoRetryAttempts:     3,
		IoRetryBackoff:      50 * time.Millisecond,
	}
}

// Small returns a configuration sized for unit tests: few shards, small
// sections, byte-sized thresholds so tests can force spills deterministically.
func Small() *Config {
	c := Default()
	c.NumShards = 4
	c.ShardHashTableSize = 1 << 8
	c.SectionSize = 4
	c.MaxSections = 3
	c.CacheFlushBytes = 1 << 20
	c.MergeThresholdBytes = 4 << 20
	c.Partitions = 8
	c.ClusterNodes = 3
	c.MountCount = 2
	c.HostDedupCap = 1
	c.LockTimeout = 50 * time.Millisecond
	c.IoRetryAttempts = 2
	c.IoRetryBackoff = time.Millisecond
	return c
}
