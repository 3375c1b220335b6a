package matching

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"lendmatch/pkg/types"

	"github.com/shopspring/decimal"
)

// seasoningMonth is the fixed month length used for seasoning checks.
// Calendar months are not used.
const seasoningMonth = 30 * 24 * time.Hour

var hundred = decimal.NewFromInt(100)

// Engine evaluates a quote against candidate loan products. It performs no I/O.
type Engine struct {
	now func() time.Time
}

func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// Evaluate returns one verdict per product, in product order. Every rule runs
// for every product; a product is qualified only when no rule produced a
// reason.
func (e *Engine) Evaluate(quote *types.QuoteSnapshot, products []*types.LoanProduct) []*types.MatchResult {
	now := e.now()

	results := make([]*types.MatchResult, 0, len(products))
	for _, product := range products {
		reasons := evaluateProduct(quote, product, now)

		status := types.MatchStatusQualified
		if len(reasons) > 0 {
			status = types.MatchStatusDisqualified
		}

		productID := product.ID
		results = append(results, &types.MatchResult{
			QuoteID:                 quote.ID,
			LenderID:                product.LenderID,
			LoanProductID:           &productID,
			Lender:                  product.Lender.Summary(),
			MatchStatus:             status,
			DisqualificationReasons: reasons,
		})
	}

	return results
}

func evaluateProduct(quote *types.QuoteSnapshot, product *types.LoanProduct, now time.Time) []types.DisqualificationReason {
	reasons := make([]types.DisqualificationReason, 0)

	amount, amountOK, amountReasons := checkLoanAmount(quote.LoanDetails, product)
	reasons = append(reasons, amountReasons...)

	if reason := checkCreditScore(quote.ApplicantInfo, product); reason != nil {
		reasons = append(reasons, *reason)
	}
	if reason := checkCitizenship(quote.ApplicantInfo, product); reason != nil {
		reasons = append(reasons, *reason)
	}
	if reason := checkState(quote.Address, product); reason != nil {
		reasons = append(reasons, *reason)
	}
	if reason := checkSeasoning(quote.LoanDetails, product, now); reason != nil {
		reasons = append(reasons, *reason)
	}
	if reason := checkRehab(quote.LoanDetails, product); reason != nil {
		reasons = append(reasons, *reason)
	}
	if amountOK {
		if reason := checkLTV(quote.LoanDetails, product, amount); reason != nil {
			reasons = append(reasons, *reason)
		}
	}

	return reasons
}

// checkLoanAmount reports the parsed requested amount and whether it was
// usable, along with any min/max or data-quality reasons.
func checkLoanAmount(details *types.LoanDetails, product *types.LoanProduct) (decimal.Decimal, bool, []types.DisqualificationReason) {
	if details == nil || details.RequestedLoanAmount == nil || strings.TrimSpace(*details.RequestedLoanAmount) == "" {
		return decimal.Zero, false, []types.DisqualificationReason{{
			Field:       "loan_details",
			Reason:      "Quote is missing loan details required for matching",
			LenderValue: "required",
			QuoteValue:  "missing",
		}}
	}

	raw := *details.RequestedLoanAmount
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, false, []types.DisqualificationReason{{
			Field:       "loan_amount",
			Reason:      "Invalid loan amount format",
			LenderValue: "valid number",
			QuoteValue:  raw,
		}}
	}

	var reasons []types.DisqualificationReason
	if bound, ok := nonZero(product.MinLoanAmount); ok && amount.LessThan(bound) {
		reasons = append(reasons, types.DisqualificationReason{
			Field:       "loan_amount",
			Reason:      "Requested loan amount is below lender minimum",
			LenderValue: bound.String(),
			QuoteValue:  json.Number(amount.String()),
		})
	}
	if bound, ok := nonZero(product.MaxLoanAmount); ok && amount.GreaterThan(bound) {
		reasons = append(reasons, types.DisqualificationReason{
			Field:       "loan_amount",
			Reason:      "Requested loan amount exceeds lender maximum",
			LenderValue: bound.String(),
			QuoteValue:  json.Number(amount.String()),
		})
	}

	return amount, true, reasons
}

func checkCreditScore(applicant *types.ApplicantInfo, product *types.LoanProduct) *types.DisqualificationReason {
	if product.MinCreditScore == nil || *product.MinCreditScore == 0 {
		return nil
	}
	if applicant == nil || applicant.CreditScore == nil || *applicant.CreditScore == 0 {
		return nil
	}
	if *applicant.CreditScore >= *product.MinCreditScore {
		return nil
	}

	return &types.DisqualificationReason{
		Field:       "credit_score",
		Reason:      "Credit score is below lender minimum",
		LenderValue: *product.MinCreditScore,
		QuoteValue:  *applicant.CreditScore,
	}
}

func checkCitizenship(applicant *types.ApplicantInfo, product *types.LoanProduct) *types.DisqualificationReason {
	if len(product.CitizenRequirements) == 0 {
		return nil
	}
	if applicant == nil || applicant.Citizenship == nil || *applicant.Citizenship == "" {
		return nil
	}

	citizenship := strings.ToLower(*applicant.Citizenship)
	for _, requirement := range product.CitizenRequirements {
		if strings.Contains(citizenship, strings.ToLower(requirement)) {
			return nil
		}
	}

	return &types.DisqualificationReason{
		Field:       "citizenship",
		Reason:      "Citizenship type not accepted by lender",
		LenderValue: product.CitizenRequirements,
		QuoteValue:  *applicant.Citizenship,
	}
}

func checkState(address *string, product *types.LoanProduct) *types.DisqualificationReason {
	if len(product.StatesFunded) == 0 || address == nil || *address == "" {
		return nil
	}

	for _, part := range strings.Split(*address, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		for _, state := range product.StatesFunded {
			if strings.Contains(part, strings.ToUpper(state)) {
				return nil
			}
		}
	}

	return &types.DisqualificationReason{
		Field:       "state",
		Reason:      "Property state not serviced by lender",
		LenderValue: product.StatesFunded,
		QuoteValue:  *address,
	}
}

func checkSeasoning(details *types.LoanDetails, product *types.LoanProduct, now time.Time) *types.DisqualificationReason {
	if product.SeasoningPeriodMonths == nil || *product.SeasoningPeriodMonths == 0 {
		return nil
	}
	if details == nil || details.PropertyPurchaseDate == nil {
		return nil
	}

	months := monthsSince(*details.PropertyPurchaseDate, now)
	if months >= *product.SeasoningPeriodMonths {
		return nil
	}

	return &types.DisqualificationReason{
		Field:       "seasoning_period",
		Reason:      "Property seasoning period requirement not met",
		LenderValue: fmt.Sprintf("%d months", *product.SeasoningPeriodMonths),
		QuoteValue:  fmt.Sprintf("%d months", months),
	}
}

// monthsSince counts whole 30-day periods between purchase and now, flooring
// so that a purchase date in the future yields a negative count.
func monthsSince(purchase, now time.Time) int {
	return int(math.Floor(float64(now.Sub(purchase)) / float64(seasoningMonth)))
}

func checkRehab(details *types.LoanDetails, product *types.LoanProduct) *types.DisqualificationReason {
	if details == nil || !details.HasRehabFundsRequested || product.AcceptsRehabLoans {
		return nil
	}

	return &types.DisqualificationReason{
		Field:       "rehab_loans",
		Reason:      "Lender does not accept rehab loans",
		LenderValue: false,
		QuoteValue:  true,
	}
}

func checkLTV(details *types.LoanDetails, product *types.LoanProduct, amount decimal.Decimal) *types.DisqualificationReason {
	maxLTV, ok := nonZero(product.MaxLTVPercentage)
	if !ok || details == nil || details.PurchasePrice == nil || strings.TrimSpace(*details.PurchasePrice) == "" {
		return nil
	}

	raw := *details.PurchasePrice
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return &types.DisqualificationReason{
			Field:       "ltv_ratio",
			Reason:      "Invalid purchase price format",
			LenderValue: "valid number",
			QuoteValue:  raw,
		}
	}
	if price.IsZero() {
		return nil
	}

	ltv := amount.Div(price).Mul(hundred)
	if !ltv.GreaterThan(maxLTV) {
		return nil
	}

	return &types.DisqualificationReason{
		Field:       "ltv_ratio",
		Reason:      "Loan-to-value ratio exceeds lender maximum",
		LenderValue: maxLTV.String() + "%",
		QuoteValue:  ltv.StringFixed(2) + "%",
	}
}

// nonZero treats a zero bound the same as an unset one.
func nonZero(d decimal.NullDecimal) (decimal.Decimal, bool) {
	if !d.Valid || d.Decimal.IsZero() {
		return decimal.Zero, false
	}
	return d.Decimal, true
}
