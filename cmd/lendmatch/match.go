package main

import (
	"context"
	"fmt"

	"lendmatch/internal/db"
	"lendmatch/pkg/types"

	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli/v2"
)

var matchCommand = &cli.Command{
	Name:  "match",
	Usage: "Evaluate a quote against its candidate loan products and print the verdicts",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:     "quote",
			Aliases:  []string{"q"},
			Usage:    "Quote ID to evaluate",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "save",
			Usage: "Persist the verdicts like POST /quotes/:id/match",
		},
	},
	Action: func(c *cli.Context) error {
		quoteID := c.Int64("quote")
		if quoteID <= 0 {
			return fmt.Errorf("invalid quote id %d", quoteID)
		}

		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		svc, cleanup, err := newMatchingService(ctx, cfg, logger, pool)
		if err != nil {
			return err
		}
		defer cleanup()

		if c.Bool("save") {
			summary, err := svc.Match(ctx, quoteID)
			if err != nil {
				return err
			}
			pp.Println(summary)
			return nil
		}

		_, results, err := svc.Evaluate(ctx, quoteID)
		if err != nil {
			return err
		}

		qualified, disqualified := types.SplitMatchResults(results)
		pp.Println(qualified)
		pp.Println(disqualified)
		fmt.Printf("\nquote %d: %d qualified, %d disqualified (not saved)\n", quoteID, len(qualified), len(disqualified))
		return nil
	},
}
