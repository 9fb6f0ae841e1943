package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/alexandria-search/engine/internal/defaultcollab"
	"github.com/alexandria-search/engine/internal/domainmap"
	"github.com/alexandria-search/engine/internal/search"
)

func newCmd_Search() *cli.Command {
	return &cli.Command{
		Name:        "search",
		Description: "Query a logical index and print the top-K ranked results.",
		Flags: []cli.Flag{
			FlagIndexName,
			FlagLimit,
			FlagHostDedupCap,
		},
		ArgsUsage: "<query>",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("search: expected a <query> argument")
			}
			query := strings.Join(c.Args().Slice(), " ")
			cfg := configFromFlags(c)
			name := c.String(FlagIndexName.Name)

			domains := domainmap.New(cfg, name)
			if err := domains.Read(); err != nil {
				return fmt.Errorf("search: read domain map: %w", err)
			}

			engine := search.New(cfg, name, domains)
			results, metric, err := engine.Search(query, defaultcollab.TextExtractor{}, c.Int(FlagLimit.Name))
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			for i, r := range results {
				fmt.Printf("%d. value=%d score=%.3f\n", i+1, r.Value, r.Score)
			}
			fmt.Printf("total_found=%d link_url_matches=%d link_domain_matches=%d elapsed=%s\n",
				metric.TotalFound, metric.LinkURLMatches, metric.LinkDomainMatches, metric.Elapsed)
			return nil
		},
	}
}
