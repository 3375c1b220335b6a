package store

import (
	"context"
	"fmt"
	"lendmatch/internal/utils"
	"lendmatch/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

const (
	quoteTableName         = "quotes"
	applicantInfoTableName = "quote_applicant_info"
	loanDetailsTableName   = "quote_loan_details"
	rentalInfoTableName    = "quote_rental_info"
)

var (
	quoteColumns         = utils.StructTagValues(types.Quote{})
	applicantInfoColumns = utils.StructTagValues(types.ApplicantInfo{})
	loanDetailsColumns   = utils.StructTagValues(types.LoanDetails{})
	rentalInfoColumns    = utils.StructTagValues(types.RentalInfo{})
)

type QuoteRepository struct {
	pool Pool
}

func NewQuoteRepository(pool Pool) *QuoteRepository {
	return &QuoteRepository{pool: pool}
}

func (r *QuoteRepository) Quote(ctx context.Context, quoteID int64) (*types.Quote, error) {
	query, args, err := psql().
		Select(quoteColumns...).
		From(quoteTableName).
		Where(sq.Eq{"id": quoteID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate quote query: %w", err)
	}

	var quote = new(types.Quote)
	err = pgxscan.Get(ctx, r.pool, quote, query, args...)
	if err != nil && !pgxscan.NotFound(err) {
		return nil, fmt.Errorf("failed to fetch quote %d: %w", quoteID, err)
	}

	if err != nil {
		return nil, types.ErrQuoteNotFound
	}

	return quote, nil
}

// ApplicantInfo returns nil without error when the quote has no applicant info.
func (r *QuoteRepository) ApplicantInfo(ctx context.Context, quoteID int64) (*types.ApplicantInfo, error) {
	var info types.ApplicantInfo
	found, err := r.subRecord(ctx, applicantInfoTableName, applicantInfoColumns, quoteID, &info)
	if err != nil || !found {
		return nil, err
	}
	return &info, nil
}

// LoanDetails returns nil without error when the quote has no loan details.
func (r *QuoteRepository) LoanDetails(ctx context.Context, quoteID int64) (*types.LoanDetails, error) {
	var details types.LoanDetails
	found, err := r.subRecord(ctx, loanDetailsTableName, loanDetailsColumns, quoteID, &details)
	if err != nil || !found {
		return nil, err
	}
	return &details, nil
}

// RentalInfo returns nil without error when the quote has no rental info.
func (r *QuoteRepository) RentalInfo(ctx context.Context, quoteID int64) (*types.RentalInfo, error) {
	var info types.RentalInfo
	found, err := r.subRecord(ctx, rentalInfoTableName, rentalInfoColumns, quoteID, &info)
	if err != nil || !found {
		return nil, err
	}
	return &info, nil
}

func (r *QuoteRepository) subRecord(ctx context.Context, table string, columns []string, quoteID int64, dst any) (bool, error) {
	query, args, err := psql().
		Select(columns...).
		From(table).
		Where(sq.Eq{"quote_id": quoteID}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate %s query: %w", table, err)
	}

	err = pgxscan.Get(ctx, r.pool, dst, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to fetch %s for quote %d: %w", table, quoteID, err)
	}

	return true, nil
}
