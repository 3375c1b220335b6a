package store

import (
	"context"
	"encoding/json"
	"fmt"
	"lendmatch/pkg/types"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

const matchResultTableName = "quote_lender_matches"

var matchResultInsertColumns = []string{
	"quote_id",
	"lender_id",
	"loan_product_id",
	"match_status",
	"disqualification_reason",
	"created_at",
	"updated_at",
}

// The conflict target is the (quote_id, lender_id) natural key. A later
// verdict for the same lender replaces the earlier one, including within a
// single run.
const matchResultUpsertSuffix = `ON CONFLICT (quote_id, lender_id) DO UPDATE SET
	loan_product_id = EXCLUDED.loan_product_id,
	match_status = EXCLUDED.match_status,
	disqualification_reason = EXCLUDED.disqualification_reason,
	updated_at = EXCLUDED.updated_at`

type MatchResultRepository struct {
	pool Pool
}

func NewMatchResultRepository(pool Pool) *MatchResultRepository {
	return &MatchResultRepository{pool: pool}
}

// matchResultRow is a persisted verdict joined with its lender.
type matchResultRow struct {
	ID                     int64             `db:"id"`
	QuoteID                int64             `db:"quote_id"`
	LenderID               int64             `db:"lender_id"`
	LoanProductID          *int64            `db:"loan_product_id"`
	MatchStatus            types.MatchStatus `db:"match_status"`
	DisqualificationReason *string           `db:"disqualification_reason"`
	CreatedAt              time.Time         `db:"created_at"`
	UpdatedAt              time.Time         `db:"updated_at"`
	LenderCompanyName      string            `db:"lender_company_name"`
	LenderEmail            string            `db:"lender_email"`
	LenderContactName      *string           `db:"lender_contact_name"`
	LenderPhoneNumber      *string           `db:"lender_phone_number"`
}

func (m *matchResultRow) result() (*types.MatchResult, error) {
	reasons, err := decodeReasons(m.DisqualificationReason)
	if err != nil {
		return nil, fmt.Errorf("failed to decode reasons for match %d: %w", m.ID, err)
	}

	createdAt, updatedAt := m.CreatedAt, m.UpdatedAt
	return &types.MatchResult{
		ID:            m.ID,
		QuoteID:       m.QuoteID,
		LenderID:      m.LenderID,
		LoanProductID: m.LoanProductID,
		Lender: &types.LenderSummary{
			ID:          m.LenderID,
			CompanyName: m.LenderCompanyName,
			Email:       m.LenderEmail,
			ContactName: m.LenderContactName,
			PhoneNumber: m.LenderPhoneNumber,
		},
		MatchStatus:             m.MatchStatus,
		DisqualificationReasons: reasons,
		CreatedAt:               &createdAt,
		UpdatedAt:               &updatedAt,
	}, nil
}

// encodeReasons stores an empty reason list as NULL.
func encodeReasons(reasons []types.DisqualificationReason) (*string, error) {
	if len(reasons) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(reasons)
	if err != nil {
		return nil, err
	}

	encoded := string(data)
	return &encoded, nil
}

func decodeReasons(stored *string) ([]types.DisqualificationReason, error) {
	reasons := make([]types.DisqualificationReason, 0)
	if stored == nil || *stored == "" {
		return reasons, nil
	}

	if err := json.Unmarshal([]byte(*stored), &reasons); err != nil {
		return nil, err
	}

	return reasons, nil
}

// SaveMatchResults upserts every verdict of a run inside one transaction.
// Either all rows are written or none are.
func (r *MatchResultRepository) SaveMatchResults(ctx context.Context, quoteID int64, results []*types.MatchResult) error {
	now := time.Now()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin match results transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, result := range results {
		reasons, err := encodeReasons(result.DisqualificationReasons)
		if err != nil {
			return fmt.Errorf("failed to encode reasons for lender %d: %w", result.LenderID, err)
		}

		query, args, err := psql().
			Insert(matchResultTableName).
			Columns(matchResultInsertColumns...).
			Values(quoteID, result.LenderID, result.LoanProductID, result.MatchStatus, reasons, now, now).
			Suffix(matchResultUpsertSuffix).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate match result upsert: %w", err)
		}

		_, err = tx.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to upsert match result for quote %d lender %d: %w", quoteID, result.LenderID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit match results transaction: %w", err)
	}

	return nil
}

// MatchResultsByQuote returns the persisted verdicts for a quote, qualified
// first. An empty slice means matching has never run for the quote.
func (r *MatchResultRepository) MatchResultsByQuote(ctx context.Context, quoteID int64) ([]*types.MatchResult, error) {
	query, args, err := psql().
		Select(
			"m.id",
			"m.quote_id",
			"m.lender_id",
			"m.loan_product_id",
			"m.match_status",
			"m.disqualification_reason",
			"m.created_at",
			"m.updated_at",
			"l.company_name AS lender_company_name",
			"l.email AS lender_email",
			"l.contact_name AS lender_contact_name",
			"l.phone_number AS lender_phone_number",
		).
		From(matchResultTableName + " m").
		Join(lenderTableName + " l ON l.id = m.lender_id").
		Where(sq.Eq{"m.quote_id": quoteID}).
		OrderBy(
			fmt.Sprintf("CASE WHEN m.match_status = '%s' THEN 0 ELSE 1 END", types.MatchStatusQualified),
			"m.lender_id ASC",
		).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate match results query: %w", err)
	}

	var rows []*matchResultRow
	err = pgxscan.Select(ctx, r.pool, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch match results for quote %d: %w", quoteID, err)
	}

	results := make([]*types.MatchResult, 0, len(rows))
	for _, row := range rows {
		result, err := row.result()
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, nil
}
