package main

import "github.com/urfave/cli/v2"

var FlagRoot = &cli.StringFlag{
	Name:  "root",
	Usage: "filesystem root under which mount/full_text/... and url_to_domain/... live",
	Value: "/mnt",
}

var FlagNumShards = &cli.IntFlag{
	Name:  "num-shards",
	Usage: "number of shards per logical index",
	Value: 256,
}

var FlagVerbose = &cli.BoolFlag{
	Name:  "verbose",
	Usage: "enable debug logging",
}

var FlagIndexName = &cli.StringFlag{
	Name:  "index",
	Usage: "logical index name",
	Value: "page_text",
}

var FlagPartitionID = &cli.Uint64Flag{
	Name:  "partition",
	Usage: "partition id this node is building",
}

var FlagPartitions = &cli.Uint64Flag{
	Name:  "partitions",
	Usage: "total number of corpus partitions (P)",
	Value: 1,
}

var FlagNodeID = &cli.Uint64Flag{
	Name:  "node",
	Usage: "cluster node id this process runs as",
}

var FlagClusterNodes = &cli.Uint64Flag{
	Name:  "cluster-nodes",
	Usage: "total cluster nodes sharing ownership (K)",
	Value: 1,
}

var FlagLimit = &cli.IntFlag{
	Name:  "limit",
	Usage: "maximum number of search results to return",
	Value: 10,
}

var FlagHostDedupCap = &cli.IntFlag{
	Name:  "host-dedup-cap",
	Usage: "maximum results per host in one query",
	Value: 1,
}
