package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
)

var log = logging.Logger("cmd")

var gitCommitSHA = ""

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, syscall.SIGTERM, syscall.SIGINT)

		select {
		case <-interrupt:
			fmt.Println()
			log.Info("received interrupt signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(interrupt)
	}()

	app := &cli.App{
		Name:        "engine",
		Version:     gitCommitSHA,
		Description: "Sharded full-text search engine: build and query inverted indices over web-scale TSV batches.",
		Flags: []cli.Flag{
			FlagRoot,
			FlagNumShards,
			FlagVerbose,
		},
		Before: func(c *cli.Context) error {
			if c.Bool(FlagVerbose.Name) {
				logging.SetAllLoggers(logging.LevelDebug)
			}
			return nil
		},
		Commands: []*cli.Command{
			newCmd_Index(),
			newCmd_Search(),
			newCmd_Merge(),
		},
	}

	sort.Sort(cli.FlagsByName(app.Flags))
	sort.Sort(cli.CommandsByName(app.Commands))

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
