package models

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// Approval states an account moves through. Only approved accounts may
// participate in ledger operations.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalDeclined = "declined"
)

var accountNumberPattern = regexp.MustCompile(`^[0-9]{10}$`)

// Account is a ledger account row. Balance is exact fixed-point currency
// with two decimal places and is never negative.
type Account struct {
	AccountNumber  string          `json:"account_number" db:"account_number"`
	Name           string          `json:"name" db:"name"`
	Balance        decimal.Decimal `json:"balance" db:"balance"`
	ApprovalStatus string          `json:"approval_status" db:"approval_status"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// NewAccount builds a pending account with zero balance.
func NewAccount(accountNumber, name string) (*Account, error) {
	if !accountNumberPattern.MatchString(accountNumber) {
		return nil, fmt.Errorf("account number must be exactly 10 digits, got %q", accountNumber)
	}
	if name == "" {
		return nil, fmt.Errorf("account name is required")
	}
	return &Account{
		AccountNumber:  accountNumber,
		Name:           name,
		Balance:        decimal.Zero,
		ApprovalStatus: ApprovalPending,
		CreatedAt:      time.Now(),
	}, nil
}

// IsApproved reports whether the account may participate in transactions.
func (a *Account) IsApproved() bool {
	return a.ApprovalStatus == ApprovalApproved
}

// ValidAccountNumber reports whether s is a well-formed 10-digit account number.
func ValidAccountNumber(s string) bool {
	return accountNumberPattern.MatchString(s)
}
