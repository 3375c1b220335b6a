package types

import (
	"time"
)

type LoanType string

const (
	LoanTypeBridgeFixAndFlip LoanType = "bridge_fix_and_flip"
	LoanTypeDSCRRental       LoanType = "dscr_rental"
)

var AllLoanTypes = []LoanType{LoanTypeBridgeFixAndFlip, LoanTypeDSCRRental}

func (t LoanType) Valid() bool {
	switch t {
	case LoanTypeBridgeFixAndFlip, LoanTypeDSCRRental:
		return true
	}
	return false
}

type QuoteStatus string

const (
	QuoteStatusDraft     QuoteStatus = "draft"
	QuoteStatusSubmitted QuoteStatus = "submitted"
	QuoteStatusInReview  QuoteStatus = "in_review"
	QuoteStatusApproved  QuoteStatus = "approved"
	QuoteStatusRejected  QuoteStatus = "rejected"
)

func (s QuoteStatus) Valid() bool {
	switch s {
	case QuoteStatusDraft, QuoteStatusSubmitted, QuoteStatusInReview, QuoteStatusApproved, QuoteStatusRejected:
		return true
	}
	return false
}

type Quote struct {
	ID                 int64       `db:"id" json:"id"`
	UserID             int64       `db:"user_id" json:"user_id"`
	LoanType           *LoanType   `db:"loan_type" json:"loan_type"`
	Address            *string     `db:"address" json:"address"`
	IsLivingInProperty bool        `db:"is_living_in_property" json:"is_living_in_property"`
	IsDraft            bool        `db:"is_draft" json:"is_draft"`
	Status             QuoteStatus `db:"status" json:"status"`
	CreatedAt          time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updated_at"`
}

type ApplicantInfo struct {
	QuoteID         int64     `db:"quote_id" json:"quote_id"`
	CreditScore     *int      `db:"credit_score" json:"credit_score"`
	Citizenship     *string   `db:"citizenship" json:"citizenship"`
	PropertiesOwned int       `db:"properties_owned" json:"properties_owned"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// LoanDetails keeps monetary values as the decimal strings the client sent.
// They are parsed only when a quote is evaluated.
type LoanDetails struct {
	QuoteID                int64      `db:"quote_id" json:"quote_id"`
	RequestedLoanAmount    *string    `db:"requested_loan_amount" json:"requested_loan_amount"`
	PurchasePrice          *string    `db:"purchase_price" json:"purchase_price"`
	PropertyPurchaseDate   *time.Time `db:"property_purchase_date" json:"property_purchase_date"`
	HasRehabFundsRequested bool       `db:"has_rehab_funds_requested" json:"has_rehab_funds_requested"`
	RehabAmount            *string    `db:"rehab_amount" json:"rehab_amount"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`
}

type RentalInfo struct {
	QuoteID           int64     `db:"quote_id" json:"quote_id"`
	MonthlyRent       *string   `db:"monthly_rent" json:"monthly_rent"`
	IsCurrentlyLeased bool      `db:"is_currently_leased" json:"is_currently_leased"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// QuoteSnapshot is a quote together with the sub-records that were present
// when it was loaded. Missing sub-records are nil.
type QuoteSnapshot struct {
	*Quote
	ApplicantInfo *ApplicantInfo `json:"applicant_info"`
	LoanDetails   *LoanDetails   `json:"loan_details"`
	RentalInfo    *RentalInfo    `json:"rental_info"`
}
