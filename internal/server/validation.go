package server

import (
	"encoding/json"
	"fmt"

	"lendmatch/pkg/types"

	"github.com/xeipuuv/gojsonschema"
)

func nullableNumber(minimum, maximum float64) map[string]any {
	schema := map[string]any{
		"type":    []any{"number", "null"},
		"minimum": minimum,
	}
	if maximum > 0 {
		schema["maximum"] = maximum
	}
	return schema
}

func stringList() map[string]any {
	return map[string]any{
		"type":  []any{"array", "null"},
		"items": map[string]any{"type": "string", "minLength": 1},
	}
}

func loanTypeNames() []any {
	names := make([]any, 0, len(types.AllLoanTypes))
	for _, loanType := range types.AllLoanTypes {
		names = append(names, string(loanType))
	}
	return names
}

var loanProductSchema = map[string]any{
	"type":     "object",
	"required": []any{"lender_id", "loan_type", "appraisal_required"},
	"properties": map[string]any{
		"lender_id":               map[string]any{"type": "integer", "minimum": 1},
		"loan_type":               map[string]any{"type": "string", "enum": loanTypeNames()},
		"min_loan_amount":         nullableNumber(0, 0),
		"max_loan_amount":         nullableNumber(0, 0),
		"appraisal_required":      map[string]any{"type": "boolean"},
		"min_credit_score":        map[string]any{"type": []any{"integer", "null"}, "minimum": 300, "maximum": 850},
		"citizen_requirements":    stringList(),
		"states_funded":           stringList(),
		"seasoning_period_months": map[string]any{"type": []any{"integer", "null"}, "minimum": 0},
		"accepts_rehab_loans":     map[string]any{"type": "boolean"},
		"max_ltv_percentage":      nullableNumber(0, 100),
	},
}

// validateLoanProduct checks a raw payload against loanProductSchema and the
// cross-field rules. It returns one "field: message" entry per problem, or an
// error when the body is not JSON at all.
func validateLoanProduct(body []byte) (*loanProductPayload, []string, error) {
	var document any
	if err := json.Unmarshal(body, &document); err != nil {
		return nil, nil, fmt.Errorf("failed to decode loan product payload: %w", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(loanProductSchema), gojsonschema.NewGoLoader(document))
	if err != nil {
		return nil, nil, fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		problems := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			problems[i] = fmt.Sprintf("%s: %s", desc.Field(), desc.Description())
		}
		return nil, problems, nil
	}

	var payload loanProductPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, nil, fmt.Errorf("failed to decode loan product payload: %w", err)
	}

	if payload.MinLoanAmount.Valid && payload.MaxLoanAmount.Valid &&
		payload.MinLoanAmount.Decimal.GreaterThan(payload.MaxLoanAmount.Decimal) {
		return nil, []string{"min_loan_amount: must not exceed max_loan_amount"}, nil
	}

	return &payload, nil, nil
}
