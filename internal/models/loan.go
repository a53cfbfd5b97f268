package models

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Loan application states. An application transitions exactly once from
// pending to approved or rejected.
const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

// Loan states. A paid_off or defaulted loan never becomes active again.
const (
	LoanActive    = "active"
	LoanPaidOff   = "paid_off"
	LoanDefaulted = "defaulted"
)

// Payment types recorded on loan payments.
const (
	PaymentRegular = "regular"
	PaymentPartial = "partial"
	PaymentEarly   = "early"
)

// LoanApplication is a request for credit awaiting an admin decision.
// Rate, term and monthly payment are set when the application is approved.
type LoanApplication struct {
	ID               int64               `json:"id" db:"id"`
	AccountNumber    string              `json:"account_number" db:"account_number"`
	Amount           decimal.Decimal     `json:"amount" db:"amount"`
	Purpose          string              `json:"purpose" db:"purpose"`
	MonthlyIncome    decimal.Decimal     `json:"monthly_income" db:"monthly_income"`
	EmploymentStatus string              `json:"employment_status" db:"employment_status"`
	Status           string              `json:"status" db:"status"`
	InterestRate     decimal.NullDecimal `json:"interest_rate" db:"interest_rate"`
	TermMonths       sql.NullInt64       `json:"term_months" db:"term_months"`
	MonthlyPayment   decimal.NullDecimal `json:"monthly_payment" db:"monthly_payment"`
	AdminNotes       sql.NullString      `json:"admin_notes" db:"admin_notes"`
	AppliedAt        time.Time           `json:"applied_at" db:"applied_at"`
	ProcessedAt      sql.NullTime        `json:"processed_at" db:"processed_at"`
}

// NewLoanApplication builds a pending application, validating the money inputs.
func NewLoanApplication(accountNumber string, amount, monthlyIncome decimal.Decimal, purpose, employmentStatus string) (*LoanApplication, error) {
	if !ValidAccountNumber(accountNumber) {
		return nil, fmt.Errorf("invalid account number %q", accountNumber)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("loan amount must be positive")
	}
	if monthlyIncome.Sign() <= 0 {
		return nil, fmt.Errorf("monthly income must be positive")
	}
	return &LoanApplication{
		AccountNumber:    accountNumber,
		Amount:           amount,
		Purpose:          purpose,
		MonthlyIncome:    monthlyIncome,
		EmploymentStatus: employmentStatus,
		Status:           ApplicationPending,
		AppliedAt:        time.Now(),
	}, nil
}

// Loan is an approved, disbursed credit obligation. RemainingBalance starts
// at the principal and only decreases; it reaches zero exactly when the loan
// is paid off.
type Loan struct {
	ID               int64           `json:"id" db:"id"`
	ApplicationID    int64           `json:"application_id" db:"application_id"`
	AccountNumber    string          `json:"account_number" db:"account_number"`
	PrincipalAmount  decimal.Decimal `json:"principal_amount" db:"principal_amount"`
	InterestRate     decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	TermMonths       int             `json:"term_months" db:"term_months"`
	MonthlyPayment   decimal.Decimal `json:"monthly_payment" db:"monthly_payment"`
	RemainingBalance decimal.Decimal `json:"remaining_balance" db:"remaining_balance"`
	NextPaymentDate  sql.NullTime    `json:"next_payment_date" db:"next_payment_date"`
	Status           string          `json:"status" db:"status"`
	DisbursedAt      time.Time       `json:"disbursed_at" db:"disbursed_at"`
}

// LoanPayment is one append-only audit row per payment call, always paired
// with a loan_payment ledger entry on the borrower account.
type LoanPayment struct {
	ID               int64           `json:"id" db:"id"`
	LoanID           int64           `json:"loan_id" db:"loan_id"`
	AccountNumber    string          `json:"account_number" db:"account_number"`
	PaymentAmount    decimal.Decimal `json:"payment_amount" db:"payment_amount"`
	PrincipalPortion decimal.Decimal `json:"principal_portion" db:"principal_portion"`
	InterestPortion  decimal.Decimal `json:"interest_portion" db:"interest_portion"`
	RemainingBalance decimal.Decimal `json:"remaining_balance" db:"remaining_balance"`
	PaymentDate      time.Time       `json:"payment_date" db:"payment_date"`
	PaymentType      string          `json:"payment_type" db:"payment_type"`
}
