package types

import "errors"

var (
	ErrQuoteNotFound       = errors.New("quote not found")
	ErrLenderNotFound      = errors.New("lender not found")
	ErrLoanProductNotFound = errors.New("loan product not found")

	// ErrMatchInProgress is returned when another run holds the quote's lock
	// for longer than the configured wait.
	ErrMatchInProgress = errors.New("match already in progress for quote")
)
