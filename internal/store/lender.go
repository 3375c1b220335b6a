package store

import (
	"context"
	"fmt"
	"lendmatch/internal/utils"
	"lendmatch/pkg/types"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

const lenderTableName = "lenders"

var lenderColumns = utils.StructTagValues(types.Lender{})

type LenderRepository struct {
	pool Pool
}

func NewLenderRepository(pool Pool) *LenderRepository {
	return &LenderRepository{pool: pool}
}

func (r *LenderRepository) Lender(ctx context.Context, lenderID int64) (*types.Lender, error) {
	query, args, err := psql().
		Select(lenderColumns...).
		From(lenderTableName).
		Where(sq.Eq{"id": lenderID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate lender query: %w", err)
	}

	var lender types.Lender
	err = pgxscan.Get(ctx, r.pool, &lender, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrLenderNotFound
		}
		return nil, fmt.Errorf("failed to fetch lender %d: %w", lenderID, err)
	}

	return &lender, nil
}

func (r *LenderRepository) Lenders(ctx context.Context) ([]*types.Lender, error) {
	query, args, err := psql().
		Select(lenderColumns...).
		From(lenderTableName).
		Where(sq.Eq{"is_active": true}).
		OrderBy("company_name ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate lenders query: %w", err)
	}

	lenders := make([]*types.Lender, 0)
	err = pgxscan.Select(ctx, r.pool, &lenders, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lenders: %w", err)
	}

	return lenders, nil
}

// UpsertLender inserts the lender with its fixed id or refreshes the
// existing row. Used by the seeder.
func (r *LenderRepository) UpsertLender(ctx context.Context, lender *types.Lender) error {
	now := time.Now()
	lender.CreatedAt = now
	lender.UpdatedAt = now

	query, args, err := psql().
		Insert(lenderTableName).
		Columns(lenderColumns...).
		Values(
			lender.ID,
			lender.CompanyName,
			lender.Email,
			nullable(utils.PtrString(lender.ContactName)),
			nullable(utils.PtrString(lender.PhoneNumber)),
			lender.IsActive,
			lender.CreatedAt,
			lender.UpdatedAt,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			email = EXCLUDED.email,
			contact_name = EXCLUDED.contact_name,
			phone_number = EXCLUDED.phone_number,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate lender upsert: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to upsert lender")
}
