package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Lender struct {
	ID          int64     `db:"id" json:"id"`
	CompanyName string    `db:"company_name" json:"company_name"`
	Email       string    `db:"email" json:"email"`
	ContactName *string   `db:"contact_name" json:"contact_name"`
	PhoneNumber *string   `db:"phone_number" json:"phone_number"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// LenderSummary is the lender view embedded in match results.
type LenderSummary struct {
	ID          int64   `json:"id"`
	CompanyName string  `json:"company_name"`
	Email       string  `json:"email"`
	ContactName *string `json:"contact_name"`
	PhoneNumber *string `json:"phone_number"`
}

func (l *Lender) Summary() *LenderSummary {
	if l == nil {
		return nil
	}
	return &LenderSummary{
		ID:          l.ID,
		CompanyName: l.CompanyName,
		Email:       l.Email,
		ContactName: l.ContactName,
		PhoneNumber: l.PhoneNumber,
	}
}

type LoanProduct struct {
	ID                    int64               `db:"id" json:"id"`
	LenderID              int64               `db:"lender_id" json:"lender_id"`
	LoanType              LoanType            `db:"loan_type" json:"loan_type"`
	MinLoanAmount         decimal.NullDecimal `db:"min_loan_amount" json:"min_loan_amount"`
	MaxLoanAmount         decimal.NullDecimal `db:"max_loan_amount" json:"max_loan_amount"`
	AppraisalRequired     bool                `db:"appraisal_required" json:"appraisal_required"`
	MinCreditScore        *int                `db:"min_credit_score" json:"min_credit_score"`
	CitizenRequirements   []string            `db:"citizen_requirements" json:"citizen_requirements"`
	StatesFunded          []string            `db:"states_funded" json:"states_funded"`
	SeasoningPeriodMonths *int                `db:"seasoning_period_months" json:"seasoning_period_months"`
	AcceptsRehabLoans     bool                `db:"accepts_rehab_loans" json:"accepts_rehab_loans"`
	MaxLTVPercentage      decimal.NullDecimal `db:"max_ltv_percentage" json:"max_ltv_percentage"`
	CreatedAt             time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time           `db:"updated_at" json:"updated_at"`

	Lender *Lender `db:"-" json:"lender,omitempty"`
}

type LoanProductFilter struct {
	LenderID *int64    `form:"lender_id"`
	LoanType *LoanType `form:"loan_type"`
}
