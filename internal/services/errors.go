package services

import (
	"errors"
	"fmt"
)

// Domain errors returned by the ledger and loan engines. Every engine
// operation validates before mutating, so any of these guarantees zero
// side effects. Only ErrPersistence is safe to retry as-is; the rest need
// corrected input.
var (
	ErrInvalidAmount             = errors.New("amount must be positive with at most two decimal places")
	ErrAccountNotFound           = errors.New("account not found")
	ErrAccountNotApproved        = errors.New("account is not approved for transactions")
	ErrInsufficientFunds         = errors.New("insufficient funds")
	ErrInsufficientTreasuryFunds = errors.New("treasury account has insufficient funds")
	ErrSameAccount               = errors.New("source and destination accounts are the same")
	ErrRecipientNotFound         = errors.New("recipient account not found")
	ErrRecipientNotApproved      = errors.New("recipient account is not approved")
	ErrDuplicateObligation       = errors.New("account already has a pending application or active loan")
	ErrInvalidLoanTerms          = errors.New("interest rate or term is outside policy bounds")
	ErrLoanNotFound              = errors.New("loan not found")
	ErrLoanNotActive             = errors.New("loan is not active")
	ErrApplicationNotFound       = errors.New("loan application not found")
	ErrApplicationNotPending     = errors.New("loan application has already been processed")
	ErrInvalidSortKey            = errors.New("unknown sort key")
	ErrInvalidCredentials        = errors.New("invalid account number or PIN")
	ErrAccountPending            = errors.New("account is awaiting approval")

	// ErrPersistence wraps storage and lock-acquisition failures. Transient;
	// the whole operation may be retried.
	ErrPersistence = errors.New("persistence failure")
)

// persistenceErr tags a driver error as a transient persistence failure
// while keeping the cause visible in logs.
func persistenceErr(err error) error {
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}
