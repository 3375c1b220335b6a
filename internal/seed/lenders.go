package seed

import (
	"context"
	"fmt"
	"lendmatch/internal/utils"
	"lendmatch/pkg/types"
)

type LenderUpserter interface {
	UpsertLender(ctx context.Context, lender *types.Lender) error
}

// Lenders is the source of truth for the seeded lender directory. Ids are
// fixed so reseeding updates rows in place.
func Lenders() []*types.Lender {
	return []*types.Lender{
		{
			ID:          1,
			CompanyName: "Lone Star Capital",
			Email:       "loans@lonestarcapital.example",
			ContactName: utils.StringPtr("Dana Ruiz"),
			PhoneNumber: utils.StringPtr("512-555-0142"),
			IsActive:    true,
		},
		{
			ID:          2,
			CompanyName: "Harbor Bridge Lending",
			Email:       "deals@harborbridge.example",
			ContactName: utils.StringPtr("Marcus Bell"),
			IsActive:    true,
		},
		{
			ID:          3,
			CompanyName: "Keystone Rental Finance",
			Email:       "dscr@keystonerental.example",
			PhoneNumber: utils.StringPtr("215-555-0199"),
			IsActive:    true,
		},
		{
			ID:          4,
			CompanyName: "Summit Private Money",
			Email:       "hello@summitpm.example",
			ContactName: utils.StringPtr("Priya Natarajan"),
			IsActive:    true,
		},
	}
}

// SeedLenders upserts every lender from Lenders.
func SeedLenders(ctx context.Context, repo LenderUpserter) error {
	lenders := Lenders()

	fmt.Println("Starting lender sync...")
	fmt.Printf("  Seed file contains %d lenders\n", len(lenders))

	for _, lender := range lenders {
		fmt.Printf("  Upserting lender: %s (id: %d)\n", lender.CompanyName, lender.ID)
		if err := repo.UpsertLender(ctx, lender); err != nil {
			return fmt.Errorf("failed to upsert lender %d: %w", lender.ID, err)
		}
	}

	fmt.Printf("\nLender sync complete: %d upserted\n", len(lenders))
	return nil
}
