package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"lendmatch/internal/utils"
	"lendmatch/pkg/types"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateProductsQuery(t *testing.T) {
	t.Run("filters by loan type", func(t *testing.T) {
		loanType := types.LoanTypeDSCRRental
		query, args, err := candidateProductsQuery(&loanType)
		require.NoError(t, err)

		assert.Contains(t, query, "FROM lender_loan_products p JOIN lenders l ON l.id = p.lender_id")
		assert.Contains(t, query, "WHERE p.loan_type = $1")
		assert.Contains(t, query, "l.company_name AS lender_company_name")
		assert.Contains(t, query, "ORDER BY p.id ASC")
		assert.Equal(t, []any{types.LoanTypeDSCRRental}, args)
	})

	t.Run("unset loan type selects every product", func(t *testing.T) {
		query, args, err := candidateProductsQuery(nil)
		require.NoError(t, err)

		assert.NotContains(t, query, "WHERE")
		assert.Empty(t, args)
	})
}

func TestLoanProductsQuery(t *testing.T) {
	loanType := types.LoanTypeBridgeFixAndFlip

	tests := []struct {
		name      string
		filter    types.LoanProductFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:     "no filter",
			filter:   types.LoanProductFilter{},
			wantArgs: nil,
		},
		{
			name:      "lender only",
			filter:    types.LoanProductFilter{LenderID: utils.Int64Ptr(3)},
			wantWhere: "WHERE lender_id = $1",
			wantArgs:  []any{int64(3)},
		},
		{
			name:      "lender and loan type",
			filter:    types.LoanProductFilter{LenderID: utils.Int64Ptr(3), LoanType: &loanType},
			wantWhere: "WHERE lender_id = $1 AND loan_type = $2",
			wantArgs:  []any{int64(3), types.LoanTypeBridgeFixAndFlip},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := loanProductsQuery(tt.filter)
			require.NoError(t, err)

			if tt.wantWhere == "" {
				assert.NotContains(t, query, "WHERE")
				assert.Empty(t, args)
				return
			}
			assert.Contains(t, query, tt.wantWhere)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestLoanProductRepository_CandidateProducts_AttachesLender(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLoanProductRepository(mock)

	now := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	loanType := types.LoanTypeBridgeFixAndFlip
	columns := append(append([]string{}, loanProductColumns...),
		"lender_company_name",
		"lender_email",
		"lender_contact_name",
		"lender_phone_number",
		"lender_is_active",
		"lender_created_at",
		"lender_updated_at",
	)

	mock.ExpectQuery("FROM lender_loan_products p").
		WithArgs(loanType).
		WillReturnRows(pgxmock.NewRows(columns).AddRow(
			int64(7), int64(3), loanType,
			decimal.NewNullDecimal(decimal.NewFromInt(100000)),
			decimal.NewNullDecimal(decimal.NewFromInt(500000)),
			true, utils.IntPtr(680), []string{"us_citizen"}, []string{"TX", "FL"}, utils.IntPtr(6), true,
			decimal.NewNullDecimal(decimal.NewFromInt(75)),
			now, now,
			"Lone Star Capital", "loans@lonestar.example", nil, nil, true, now, now,
		))

	products, err := repo.CandidateProducts(context.Background(), &loanType)
	require.NoError(t, err)
	require.Len(t, products, 1)

	product := products[0]
	assert.Equal(t, int64(7), product.ID)
	assert.True(t, product.MaxLoanAmount.Decimal.Equal(decimal.NewFromInt(500000)))
	assert.Equal(t, []string{"TX", "FL"}, product.StatesFunded)
	require.NotNil(t, product.Lender)
	assert.Equal(t, int64(3), product.Lender.ID)
	assert.Equal(t, "Lone Star Capital", product.Lender.CompanyName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanProductRepository_UpdateLoanProduct_NotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLoanProductRepository(mock)

	// Twelve SET columns plus the id in the WHERE clause.
	mock.ExpectExec("UPDATE lender_loan_products SET (.+) WHERE id = \\$13").
		WithArgs(anyArgs(13)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateLoanProduct(context.Background(), 99, &types.LoanProduct{LenderID: 3, LoanType: types.LoanTypeDSCRRental})
	assert.ErrorIs(t, err, types.ErrLoanProductNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanProductRepository_DeleteLoanProduct(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLoanProductRepository(mock)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM lender_loan_products WHERE id = \\$1").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM lender_loan_products WHERE id = \\$1").
		WithArgs(int64(8)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM lender_loan_products").
		WithArgs(int64(9)).
		WillReturnError(errors.New("foreign key violation"))

	assert.NoError(t, repo.DeleteLoanProduct(ctx, 7))
	assert.ErrorIs(t, repo.DeleteLoanProduct(ctx, 8), types.ErrLoanProductNotFound)
	assert.ErrorContains(t, repo.DeleteLoanProduct(ctx, 9), "failed to delete loan product")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizeProductLists(t *testing.T) {
	product := &types.LoanProduct{}
	normalizeProductLists(product)

	assert.NotNil(t, product.CitizenRequirements)
	assert.NotNil(t, product.StatesFunded)
	assert.Empty(t, product.StatesFunded)
}
