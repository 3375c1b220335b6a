package store

import (
	"context"
	"fmt"
	"lendmatch/internal/utils"
	"lendmatch/pkg/types"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

const loanProductTableName = "lender_loan_products"

var loanProductColumns = utils.StructTagValues(types.LoanProduct{})

type LoanProductRepository struct {
	pool Pool
}

func NewLoanProductRepository(pool Pool) *LoanProductRepository {
	return &LoanProductRepository{pool: pool}
}

// candidateRow is a loan product joined with its owning lender.
type candidateRow struct {
	types.LoanProduct

	LenderCompanyName string    `db:"lender_company_name"`
	LenderEmail       string    `db:"lender_email"`
	LenderContactName *string   `db:"lender_contact_name"`
	LenderPhoneNumber *string   `db:"lender_phone_number"`
	LenderIsActive    bool      `db:"lender_is_active"`
	LenderCreatedAt   time.Time `db:"lender_created_at"`
	LenderUpdatedAt   time.Time `db:"lender_updated_at"`
}

func (c *candidateRow) product() *types.LoanProduct {
	product := c.LoanProduct
	product.Lender = &types.Lender{
		ID:          product.LenderID,
		CompanyName: c.LenderCompanyName,
		Email:       c.LenderEmail,
		ContactName: c.LenderContactName,
		PhoneNumber: c.LenderPhoneNumber,
		IsActive:    c.LenderIsActive,
		CreatedAt:   c.LenderCreatedAt,
		UpdatedAt:   c.LenderUpdatedAt,
	}
	return &product
}

func candidateProductsQuery(loanType *types.LoanType) (string, []any, error) {
	columns := append(utils.PrefixColumns("p", loanProductColumns),
		"l.company_name AS lender_company_name",
		"l.email AS lender_email",
		"l.contact_name AS lender_contact_name",
		"l.phone_number AS lender_phone_number",
		"l.is_active AS lender_is_active",
		"l.created_at AS lender_created_at",
		"l.updated_at AS lender_updated_at",
	)

	builder := psql().
		Select(columns...).
		From(loanProductTableName + " p").
		Join(lenderTableName + " l ON l.id = p.lender_id").
		OrderBy("p.id ASC")

	if loanType != nil {
		builder = builder.Where(sq.Eq{"p.loan_type": *loanType})
	}

	return builder.ToSql()
}

// CandidateProducts returns the products a quote of the given loan type is
// evaluated against, with their lenders attached, in id order. A nil loan
// type returns every product.
func (r *LoanProductRepository) CandidateProducts(ctx context.Context, loanType *types.LoanType) ([]*types.LoanProduct, error) {
	query, args, err := candidateProductsQuery(loanType)
	if err != nil {
		return nil, fmt.Errorf("failed to generate candidate products query: %w", err)
	}

	var rows []*candidateRow
	err = pgxscan.Select(ctx, r.pool, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidate products: %w", err)
	}

	products := make([]*types.LoanProduct, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.product())
	}

	return products, nil
}

func (r *LoanProductRepository) LoanProduct(ctx context.Context, productID int64) (*types.LoanProduct, error) {
	query, args, err := psql().
		Select(loanProductColumns...).
		From(loanProductTableName).
		Where(sq.Eq{"id": productID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate loan product query: %w", err)
	}

	var product types.LoanProduct
	err = pgxscan.Get(ctx, r.pool, &product, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrLoanProductNotFound
		}
		return nil, fmt.Errorf("failed to fetch loan product %d: %w", productID, err)
	}

	return &product, nil
}

func loanProductsQuery(filter types.LoanProductFilter) (string, []any, error) {
	builder := psql().
		Select(loanProductColumns...).
		From(loanProductTableName).
		OrderBy("lender_id ASC", "id ASC")

	if filter.LenderID != nil {
		builder = builder.Where(sq.Eq{"lender_id": *filter.LenderID})
	}
	if filter.LoanType != nil {
		builder = builder.Where(sq.Eq{"loan_type": *filter.LoanType})
	}

	return builder.ToSql()
}

func (r *LoanProductRepository) LoanProducts(ctx context.Context, filter types.LoanProductFilter) ([]*types.LoanProduct, error) {
	query, args, err := loanProductsQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to generate loan products query: %w", err)
	}

	products := make([]*types.LoanProduct, 0)
	err = pgxscan.Select(ctx, r.pool, &products, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch loan products: %w", err)
	}

	return products, nil
}

func (r *LoanProductRepository) CreateLoanProduct(ctx context.Context, product *types.LoanProduct) error {
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	normalizeProductLists(product)

	query, args, err := psql().
		Insert(loanProductTableName).
		SetMap(utils.StructToMap(product, "id")).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert loan product query: %w", err)
	}

	err = pgxscan.Get(ctx, r.pool, &product.ID, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create loan product")
}

func (r *LoanProductRepository) UpdateLoanProduct(ctx context.Context, productID int64, product *types.LoanProduct) error {
	product.ID = productID
	product.UpdatedAt = time.Now()
	normalizeProductLists(product)

	query, args, err := psql().
		Update(loanProductTableName).
		SetMap(utils.StructToMap(product, "id", "created_at")).
		Where(sq.Eq{"id": productID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update loan product query for product %d: %w", productID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update loan product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrLoanProductNotFound
	}

	return nil
}

func (r *LoanProductRepository) DeleteLoanProduct(ctx context.Context, productID int64) error {
	query, args, err := psql().
		Delete(loanProductTableName).
		Where(sq.Eq{"id": productID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete loan product query for product %d: %w", productID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete loan product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrLoanProductNotFound
	}

	return nil
}

// UpsertLoanProduct writes a product with a fixed id. Used by the seeder.
func (r *LoanProductRepository) UpsertLoanProduct(ctx context.Context, product *types.LoanProduct) error {
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	normalizeProductLists(product)

	updates := make([]string, 0, len(loanProductColumns))
	for _, column := range loanProductColumns {
		if column == "id" || column == "created_at" {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", column, column))
	}

	query, args, err := psql().
		Insert(loanProductTableName).
		SetMap(utils.StructToMap(product)).
		Suffix("ON CONFLICT (id) DO UPDATE SET " + strings.Join(updates, ", ")).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate loan product upsert: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to upsert loan product")
}

// normalizeProductLists keeps the text[] columns non-null.
func normalizeProductLists(product *types.LoanProduct) {
	if product.CitizenRequirements == nil {
		product.CitizenRequirements = []string{}
	}
	if product.StatesFunded == nil {
		product.StatesFunded = []string{}
	}
}

// SyncIDSequence moves the id sequence past the highest id, after rows were
// written with fixed ids.
func (r *LoanProductRepository) SyncIDSequence(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE(MAX(id), 1)) FROM %[1]s",
		loanProductTableName,
	))
	return utils.ErrorWrapOrNil(err, "failed to sync loan product id sequence")
}
