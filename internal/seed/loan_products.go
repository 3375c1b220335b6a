package seed

import (
	"context"
	"fmt"
	"lendmatch/internal/utils"
	"lendmatch/pkg/types"

	"github.com/shopspring/decimal"
)

type LoanProductUpserter interface {
	UpsertLoanProduct(ctx context.Context, product *types.LoanProduct) error
	SyncIDSequence(ctx context.Context) error
}

func amount(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

// LoanProducts is the source of truth for seeded loan products. Every
// LenderID must exist in Lenders.
func LoanProducts() []*types.LoanProduct {
	return []*types.LoanProduct{
		{
			ID:                    1,
			LenderID:              1,
			LoanType:              types.LoanTypeBridgeFixAndFlip,
			MinLoanAmount:         amount(100000),
			MaxLoanAmount:         amount(2500000),
			AppraisalRequired:     true,
			MinCreditScore:        utils.IntPtr(660),
			CitizenRequirements:   []string{"US Citizen", "Permanent Resident"},
			StatesFunded:          []string{"TX", "OK", "LA", "NM"},
			SeasoningPeriodMonths: utils.IntPtr(0),
			AcceptsRehabLoans:     true,
			MaxLTVPercentage:      amount(85),
		},
		{
			ID:                  2,
			LenderID:            2,
			LoanType:            types.LoanTypeBridgeFixAndFlip,
			MinLoanAmount:       amount(75000),
			MaxLoanAmount:       amount(1500000),
			MinCreditScore:      utils.IntPtr(680),
			CitizenRequirements: []string{"US Citizen", "Permanent Resident", "Foreign National"},
			StatesFunded:        []string{"FL", "GA", "SC", "NC"},
			AcceptsRehabLoans:   true,
			MaxLTVPercentage:    amount(80),
		},
		{
			ID:                    3,
			LenderID:              3,
			LoanType:              types.LoanTypeDSCRRental,
			MinLoanAmount:         amount(100000),
			MaxLoanAmount:         amount(3000000),
			AppraisalRequired:     true,
			MinCreditScore:        utils.IntPtr(700),
			CitizenRequirements:   []string{"US Citizen", "Permanent Resident"},
			StatesFunded:          []string{"PA", "NJ", "NY", "DE", "TX", "FL"},
			SeasoningPeriodMonths: utils.IntPtr(6),
			AcceptsRehabLoans:     false,
			MaxLTVPercentage:      amount(75),
		},
		{
			ID:                  4,
			LenderID:            4,
			LoanType:            types.LoanTypeDSCRRental,
			MinLoanAmount:       amount(150000),
			MaxLoanAmount:       amount(5000000),
			AppraisalRequired:   true,
			MinCreditScore:      utils.IntPtr(720),
			CitizenRequirements: []string{},
			StatesFunded:        []string{},
			AcceptsRehabLoans:   false,
			MaxLTVPercentage:    amount(70),
		},
		{
			ID:                    5,
			LenderID:              4,
			LoanType:              types.LoanTypeBridgeFixAndFlip,
			MinLoanAmount:         amount(250000),
			MaxLoanAmount:         amount(4000000),
			MinCreditScore:        utils.IntPtr(700),
			CitizenRequirements:   []string{"US Citizen"},
			StatesFunded:          []string{"CA", "AZ", "NV", "CO", "TX"},
			SeasoningPeriodMonths: utils.IntPtr(3),
			AcceptsRehabLoans:     true,
			MaxLTVPercentage:      amount(75),
		},
	}
}

// SeedLoanProducts upserts every product from LoanProducts and moves the id
// sequence past the seeded ids so API-created products do not collide.
func SeedLoanProducts(ctx context.Context, repo LoanProductUpserter) error {
	products := LoanProducts()

	fmt.Println("Starting loan product sync...")
	fmt.Printf("  Seed file contains %d loan products\n", len(products))

	for _, product := range products {
		fmt.Printf("  Upserting loan product: %s for lender %d (id: %d)\n", product.LoanType, product.LenderID, product.ID)
		if err := repo.UpsertLoanProduct(ctx, product); err != nil {
			return fmt.Errorf("failed to upsert loan product %d: %w", product.ID, err)
		}
	}

	if err := repo.SyncIDSequence(ctx); err != nil {
		return err
	}

	fmt.Printf("\nLoan product sync complete: %d upserted\n", len(products))
	return nil
}
