package types

import (
	"time"
)

type MatchStatus string

const (
	MatchStatusQualified    MatchStatus = "qualified"
	MatchStatusDisqualified MatchStatus = "disqualified"
)

func (s MatchStatus) Valid() bool {
	return s == MatchStatusQualified || s == MatchStatusDisqualified
}

// DisqualificationReason explains a single failed rule. LenderValue and
// QuoteValue carry whatever representation best describes the compared
// values (numbers, strings or lists).
type DisqualificationReason struct {
	Field       string `json:"field"`
	Reason      string `json:"reason"`
	LenderValue any    `json:"lenderValue"`
	QuoteValue  any    `json:"quoteValue"`
}

// MatchResult is the verdict for one lender on one quote. The engine produces
// one per loan product; persistence keeps one per (quote, lender), so when a
// lender owns several products of the quote's loan type only the verdict of
// the last evaluated product survives.
type MatchResult struct {
	ID                      int64                    `json:"id,omitempty"`
	QuoteID                 int64                    `json:"quote_id"`
	LenderID                int64                    `json:"lender_id"`
	LoanProductID           *int64                   `json:"loan_product_id"`
	Lender                  *LenderSummary           `json:"lender,omitempty"`
	MatchStatus             MatchStatus              `json:"match_status"`
	DisqualificationReasons []DisqualificationReason `json:"disqualification_reasons"`
	CreatedAt               *time.Time               `json:"created_at,omitempty"`
	UpdatedAt               *time.Time               `json:"updated_at,omitempty"`
}

func (m *MatchResult) Qualified() bool {
	return m.MatchStatus == MatchStatusQualified
}

// MatchSummary is the response body for both the match trigger and the
// persisted-match read. Exactly one of TotalLenders and TotalMatches is set.
type MatchSummary struct {
	QuoteID             int64          `json:"quote_id"`
	TotalLenders        *int           `json:"total_lenders,omitempty"`
	TotalMatches        *int           `json:"total_matches,omitempty"`
	QualifiedCount      int            `json:"qualified_count"`
	DisqualifiedCount   int            `json:"disqualified_count"`
	QualifiedLenders    []*MatchResult `json:"qualified_lenders"`
	DisqualifiedLenders []*MatchResult `json:"disqualified_lenders"`
}

// SplitMatchResults partitions results by status, preserving order. Both
// returned slices are non-nil.
func SplitMatchResults(results []*MatchResult) (qualified, disqualified []*MatchResult) {
	qualified = make([]*MatchResult, 0, len(results))
	disqualified = make([]*MatchResult, 0, len(results))
	for _, result := range results {
		if result.Qualified() {
			qualified = append(qualified, result)
			continue
		}
		disqualified = append(disqualified, result)
	}
	return qualified, disqualified
}

// MatchRun is the archived record of one committed match run.
type MatchRun struct {
	QuoteID int64          `json:"quote_id"`
	RanAt   time.Time      `json:"ran_at"`
	Quote   *QuoteSnapshot `json:"quote"`
	Results []*MatchResult `json:"results"`
}
