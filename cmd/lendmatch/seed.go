package main

import (
	"context"
	"fmt"

	"lendmatch/internal/db"
	"lendmatch/internal/seed"
	"lendmatch/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with lenders and loan products",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		// Connect to database
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		// Lenders first, products reference them
		if err := seed.SeedLenders(ctx, store.NewLenderRepository(pool)); err != nil {
			return fmt.Errorf("failed to seed lenders: %w", err)
		}

		if err := seed.SeedLoanProducts(ctx, store.NewLoanProductRepository(pool)); err != nil {
			return fmt.Errorf("failed to seed loan products: %w", err)
		}

		logrus.Info("Lenders and loan products seeded successfully")

		return nil
	},
}
