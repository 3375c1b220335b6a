package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"lendmatch/pkg/types"

	"github.com/shopspring/decimal"
)

const maxPayloadBytes = 1 << 20

type loanProductPayload struct {
	LenderID              int64               `json:"lender_id"`
	LoanType              types.LoanType      `json:"loan_type"`
	MinLoanAmount         decimal.NullDecimal `json:"min_loan_amount"`
	MaxLoanAmount         decimal.NullDecimal `json:"max_loan_amount"`
	AppraisalRequired     bool                `json:"appraisal_required"`
	MinCreditScore        *int                `json:"min_credit_score"`
	CitizenRequirements   []string            `json:"citizen_requirements"`
	StatesFunded          []string            `json:"states_funded"`
	SeasoningPeriodMonths *int                `json:"seasoning_period_months"`
	AcceptsRehabLoans     bool                `json:"accepts_rehab_loans"`
	MaxLTVPercentage      decimal.NullDecimal `json:"max_ltv_percentage"`
}

func (p *loanProductPayload) product() *types.LoanProduct {
	states := make([]string, 0, len(p.StatesFunded))
	for _, state := range p.StatesFunded {
		states = append(states, strings.ToUpper(strings.TrimSpace(state)))
	}

	return &types.LoanProduct{
		LenderID:              p.LenderID,
		LoanType:              p.LoanType,
		MinLoanAmount:         p.MinLoanAmount,
		MaxLoanAmount:         p.MaxLoanAmount,
		AppraisalRequired:     p.AppraisalRequired,
		MinCreditScore:        p.MinCreditScore,
		CitizenRequirements:   p.CitizenRequirements,
		StatesFunded:          states,
		SeasoningPeriodMonths: p.SeasoningPeriodMonths,
		AcceptsRehabLoans:     p.AcceptsRehabLoans,
		MaxLTVPercentage:      p.MaxLTVPercentage,
	}
}

type loanProductsResponse struct {
	LoanProducts []*types.LoanProduct `json:"loan_products"`
	Total        int                  `json:"total"`
}

func (s *Service) handleGetLoanProducts(w http.ResponseWriter, r *http.Request) {
	var filter types.LoanProductFilter
	if err := decoder.Decode(&filter, r.URL.Query()); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid loan product filter", err.Error())
		return
	}

	if filter.LoanType != nil && !filter.LoanType.Valid() {
		s.writeError(w, http.StatusBadRequest, "Invalid loan product filter",
			fmt.Sprintf("loan_type: must be one of %s, %s", types.LoanTypeBridgeFixAndFlip, types.LoanTypeDSCRRental))
		return
	}

	products, err := s.products.LoanProducts(r.Context(), filter)
	if err != nil {
		s.internalError(w, r, err, "Failed to get loan products")
		return
	}

	s.writeJSON(w, http.StatusOK, loanProductsResponse{LoanProducts: products, Total: len(products)})
}

func (s *Service) handleGetLoanProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseID(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid loan product ID")
		return
	}

	product, err := s.products.LoanProduct(r.Context(), productID)
	if errors.Is(err, types.ErrLoanProductNotFound) {
		s.writeError(w, http.StatusNotFound, "Loan product not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err, "Failed to get loan product")
		return
	}

	s.writeJSON(w, http.StatusOK, product)
}

func (s *Service) handlePostLoanProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := s.readLoanProduct(w, r)
	if !ok {
		return
	}

	if err := s.products.CreateLoanProduct(r.Context(), product); err != nil {
		s.internalError(w, r, err, "Failed to create loan product")
		return
	}

	s.writeJSON(w, http.StatusCreated, product)
}

func (s *Service) handlePutLoanProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseID(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid loan product ID")
		return
	}

	product, ok := s.readLoanProduct(w, r)
	if !ok {
		return
	}

	err := s.products.UpdateLoanProduct(r.Context(), productID, product)
	if errors.Is(err, types.ErrLoanProductNotFound) {
		s.writeError(w, http.StatusNotFound, "Loan product not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err, "Failed to update loan product")
		return
	}

	s.writeJSON(w, http.StatusOK, product)
}

func (s *Service) handleDeleteLoanProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseID(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid loan product ID")
		return
	}

	err := s.products.DeleteLoanProduct(r.Context(), productID)
	if errors.Is(err, types.ErrLoanProductNotFound) {
		s.writeError(w, http.StatusNotFound, "Loan product not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err, "Failed to delete loan product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// readLoanProduct validates the request body and checks the owning lender
// exists. It writes the error response itself and reports whether the
// handler should continue.
func (s *Service) readLoanProduct(w http.ResponseWriter, r *http.Request) (*types.LoanProduct, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}

	payload, problems, err := validateLoanProduct(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	if len(problems) > 0 {
		s.writeError(w, http.StatusBadRequest, "Invalid loan product", problems...)
		return nil, false
	}

	_, err = s.lenders.Lender(r.Context(), payload.LenderID)
	if errors.Is(err, types.ErrLenderNotFound) {
		s.writeError(w, http.StatusNotFound, "Lender not found")
		return nil, false
	}
	if err != nil {
		s.internalError(w, r, err, "Failed to get lender")
		return nil, false
	}

	return payload.product(), true
}
