package services

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ianpurifying/SE1project-IRNVault/internal/config"
	"github.com/ianpurifying/SE1project-IRNVault/internal/models"
)

// LoanService manages the loan lifecycle: application, approval with
// disbursement, amortized repayment, and payoff. All money movement is
// expressed against the ledger store with the same row-locking and
// logging discipline as plain transfers, so loan cash flows reconcile
// like any other ledger activity.
type LoanService struct {
	db     *sql.DB
	ledger *LedgerService
	policy *config.LoanPolicyConfig
}

// NewLoanService builds the loan engine.
func NewLoanService(db *sql.DB, ledger *LedgerService, policy *config.LoanPolicyConfig) *LoanService {
	return &LoanService{db: db, ledger: ledger, policy: policy}
}

func (s *LoanService) paymentCycle() time.Duration {
	return time.Duration(s.policy.PaymentCycleDays) * 24 * time.Hour
}

// ApplyForLoan submits a pending application. An account may hold at most
// one outstanding obligation: a pending application or an active loan
// blocks further applications.
func (s *LoanService) ApplyForLoan(ctx context.Context, accountNumber string, amount decimal.Decimal, purpose string, monthlyIncome decimal.Decimal, employmentStatus string) (int64, error) {
	if !validAmount(amount) || monthlyIncome.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	// The treasury funds every loan; it cannot borrow from itself.
	if accountNumber == s.ledger.TreasuryAccount() {
		return 0, ErrSameAccount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, persistenceErr(err)
	}
	defer tx.Rollback()

	// The account row lock serializes concurrent applications for the
	// same account, so the obligation counts below cannot race.
	account, err := s.ledger.lockAccount(tx, accountNumber)
	if err != nil {
		return 0, err
	}
	if !account.IsApproved() {
		return 0, ErrAccountNotApproved
	}

	var pendingApps, activeLoans int
	if err := tx.QueryRow(`
		SELECT COUNT(*) FROM loan_applications
		WHERE account_number = $1 AND status = $2`,
		accountNumber, models.ApplicationPending).Scan(&pendingApps); err != nil {
		return 0, persistenceErr(err)
	}
	if err := tx.QueryRow(`
		SELECT COUNT(*) FROM loans
		WHERE account_number = $1 AND status = $2`,
		accountNumber, models.LoanActive).Scan(&activeLoans); err != nil {
		return 0, persistenceErr(err)
	}
	if pendingApps > 0 || activeLoans > 0 {
		return 0, ErrDuplicateObligation
	}

	var applicationID int64
	err = tx.QueryRow(`
		INSERT INTO loan_applications (account_number, amount, purpose, monthly_income, employment_status, status, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id`,
		accountNumber, amount, purpose, monthlyIncome, employmentStatus, models.ApplicationPending).
		Scan(&applicationID)
	if err != nil {
		return 0, persistenceErr(err)
	}

	if err := tx.Commit(); err != nil {
		return 0, persistenceErr(err)
	}

	log.Printf("[LOAN] Application %d submitted by %s for %s", applicationID, accountNumber, amount.StringFixed(2))
	return applicationID, nil
}

// ApproveLoan marks a pending application approved, creates the active
// loan, and disburses treasury funds to the borrower, all as one atomic
// unit. The borrower leg is logged as loan_disbursement; the treasury leg
// as transfer_out with the same reference id, keeping the treasury balance
// reconcilable against its log.
func (s *LoanService) ApproveLoan(ctx context.Context, applicationID int64, annualRate decimal.Decimal, termMonths int) (*models.Loan, error) {
	maxRate := decimal.NewFromFloat(s.policy.MaxInterestRate)
	if annualRate.Sign() < 0 || annualRate.GreaterThan(maxRate) {
		return nil, ErrInvalidLoanTerms
	}
	if termMonths < s.policy.MinTermMonths || termMonths > s.policy.MaxTermMonths {
		return nil, ErrInvalidLoanTerms
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistenceErr(err)
	}
	defer tx.Rollback()

	var app models.LoanApplication
	err = tx.QueryRow(`
		SELECT id, account_number, amount, status
		FROM loan_applications
		WHERE id = $1
		FOR UPDATE`, applicationID).
		Scan(&app.ID, &app.AccountNumber, &app.Amount, &app.Status)
	if err == sql.ErrNoRows {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, persistenceErr(err)
	}
	if app.Status != models.ApplicationPending {
		return nil, ErrApplicationNotPending
	}

	treasury, borrower, err := s.ledger.lockAccountPair(tx, s.ledger.TreasuryAccount(), app.AccountNumber)
	if err != nil {
		return nil, err
	}
	if !borrower.IsApproved() {
		return nil, ErrAccountNotApproved
	}
	if treasury.Balance.LessThan(app.Amount) {
		return nil, ErrInsufficientTreasuryFunds
	}

	monthlyPayment := MonthlyPayment(app.Amount, annualRate, termMonths)
	nextPaymentDate := time.Now().Add(s.paymentCycle())

	if _, err := tx.Exec(`
		UPDATE loan_applications
		SET status = $1, interest_rate = $2, term_months = $3, monthly_payment = $4, processed_at = NOW()
		WHERE id = $5`,
		models.ApplicationApproved, annualRate, termMonths, monthlyPayment, applicationID); err != nil {
		return nil, persistenceErr(err)
	}

	loan := &models.Loan{
		ApplicationID:    applicationID,
		AccountNumber:    app.AccountNumber,
		PrincipalAmount:  app.Amount,
		InterestRate:     annualRate,
		TermMonths:       termMonths,
		MonthlyPayment:   monthlyPayment,
		RemainingBalance: app.Amount,
		NextPaymentDate:  sql.NullTime{Time: nextPaymentDate, Valid: true},
		Status:           models.LoanActive,
	}
	err = tx.QueryRow(`
		INSERT INTO loans (application_id, account_number, principal_amount, interest_rate, term_months,
			monthly_payment, remaining_balance, next_payment_date, status, disbursed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, disbursed_at`,
		applicationID, app.AccountNumber, app.Amount, annualRate, termMonths,
		monthlyPayment, app.Amount, nextPaymentDate, models.LoanActive).
		Scan(&loan.ID, &loan.DisbursedAt)
	if err != nil {
		return nil, persistenceErr(err)
	}

	if err := s.ledger.updateBalance(tx, treasury.AccountNumber, treasury.Balance.Sub(app.Amount)); err != nil {
		return nil, err
	}
	if err := s.ledger.updateBalance(tx, borrower.AccountNumber, borrower.Balance.Add(app.Amount)); err != nil {
		return nil, err
	}

	referenceID := uuid.NewString()
	if err := s.ledger.appendEntry(tx, borrower.AccountNumber, models.TxLoanDisbursement, app.Amount, referenceID); err != nil {
		return nil, err
	}
	if err := s.ledger.appendEntry(tx, treasury.AccountNumber, models.TxTransferOut, app.Amount, referenceID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, persistenceErr(err)
	}

	log.Printf("[LOAN] Application %d approved: loan %d, %s at %s%% over %d months, payment %s",
		applicationID, loan.ID, app.Amount.StringFixed(2), annualRate.String(), termMonths, monthlyPayment.StringFixed(2))
	return loan, nil
}

// RejectLoan marks a pending application rejected with a reason. The
// account may apply again afterwards.
func (s *LoanService) RejectLoan(ctx context.Context, applicationID int64, reason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistenceErr(err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRow(`
		SELECT status FROM loan_applications WHERE id = $1 FOR UPDATE`, applicationID).Scan(&status)
	if err == sql.ErrNoRows {
		return ErrApplicationNotFound
	}
	if err != nil {
		return persistenceErr(err)
	}
	if status != models.ApplicationPending {
		return ErrApplicationNotPending
	}

	if _, err := tx.Exec(`
		UPDATE loan_applications
		SET status = $1, admin_notes = $2, processed_at = NOW()
		WHERE id = $3`,
		models.ApplicationRejected, reason, applicationID); err != nil {
		return persistenceErr(err)
	}

	if err := tx.Commit(); err != nil {
		return persistenceErr(err)
	}

	log.Printf("[LOAN] Application %d rejected: %s", applicationID, reason)
	return nil
}

// MakeLoanPayment applies a payment to an active loan owned by the
// account. The payment is split into one month of interest on the
// remaining balance and a principal portion absorbing any rounding
// residue; the borrower is debited, the treasury credited, the loan
// balance reduced and the due date advanced, all in one unit. A payment
// covering the full remaining balance plus the month's interest settles
// the loan.
func (s *LoanService) MakeLoanPayment(ctx context.Context, loanID int64, accountNumber string, paymentAmount decimal.Decimal, paymentType string) (*models.LoanPayment, error) {
	if !validAmount(paymentAmount) {
		return nil, ErrInvalidAmount
	}
	switch paymentType {
	case models.PaymentRegular, models.PaymentPartial, models.PaymentEarly:
	default:
		paymentType = models.PaymentRegular
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistenceErr(err)
	}
	defer tx.Rollback()

	loan, err := s.lockLoan(tx, loanID, accountNumber)
	if err != nil {
		return nil, err
	}

	interest := MonthlyInterest(loan.RemainingBalance, loan.InterestRate)
	totalOwed := loan.RemainingBalance.Add(interest)
	if paymentAmount.GreaterThan(totalOwed) {
		return nil, ErrInvalidAmount
	}

	borrower, treasury, err := s.ledger.lockAccountPair(tx, accountNumber, s.ledger.TreasuryAccount())
	if err != nil {
		return nil, err
	}
	if borrower.Balance.LessThan(paymentAmount) {
		return nil, ErrInsufficientFunds
	}

	principal, interest := SplitPayment(loan.RemainingBalance, loan.InterestRate, paymentAmount)
	if principal.GreaterThan(loan.RemainingBalance) {
		// The final level payment carries the rounding residue; it all
		// goes to principal so the balance lands exactly on zero.
		principal = loan.RemainingBalance
		interest = paymentAmount.Sub(principal)
	}
	newRemaining := loan.RemainingBalance.Sub(principal)

	if err := s.ledger.updateBalance(tx, borrower.AccountNumber, borrower.Balance.Sub(paymentAmount)); err != nil {
		return nil, err
	}
	if err := s.ledger.updateBalance(tx, treasury.AccountNumber, treasury.Balance.Add(paymentAmount)); err != nil {
		return nil, err
	}

	if newRemaining.IsZero() {
		if _, err := tx.Exec(`
			UPDATE loans SET remaining_balance = 0, next_payment_date = NULL, status = $1
			WHERE id = $2`, models.LoanPaidOff, loanID); err != nil {
			return nil, persistenceErr(err)
		}
	} else {
		nextPayment := time.Now().Add(s.paymentCycle())
		if _, err := tx.Exec(`
			UPDATE loans SET remaining_balance = $1, next_payment_date = $2
			WHERE id = $3`, newRemaining, nextPayment, loanID); err != nil {
			return nil, persistenceErr(err)
		}
	}

	payment := &models.LoanPayment{
		LoanID:           loanID,
		AccountNumber:    accountNumber,
		PaymentAmount:    paymentAmount,
		PrincipalPortion: principal,
		InterestPortion:  interest,
		RemainingBalance: newRemaining,
		PaymentType:      paymentType,
	}
	err = tx.QueryRow(`
		INSERT INTO loan_payments (loan_id, account_number, payment_amount, principal_portion,
			interest_portion, remaining_balance, payment_type, payment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, payment_date`,
		loanID, accountNumber, paymentAmount, principal, interest, newRemaining, paymentType).
		Scan(&payment.ID, &payment.PaymentDate)
	if err != nil {
		return nil, persistenceErr(err)
	}

	referenceID := uuid.NewString()
	if err := s.ledger.appendEntry(tx, accountNumber, models.TxLoanPayment, paymentAmount, referenceID); err != nil {
		return nil, err
	}
	if err := s.ledger.appendEntry(tx, treasury.AccountNumber, models.TxTransferIn, paymentAmount, referenceID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, persistenceErr(err)
	}

	if newRemaining.IsZero() {
		log.Printf("[LOAN] Loan %d paid off by payment of %s", loanID, paymentAmount.StringFixed(2))
	} else {
		log.Printf("[LOAN] Payment %s on loan %d (principal %s, interest %s), remaining %s",
			paymentAmount.StringFixed(2), loanID, principal.StringFixed(2), interest.StringFixed(2), newRemaining.StringFixed(2))
	}
	return payment, nil
}

// PayoffLoan settles the entire remaining balance early. The whole payoff
// is treated as principal; no further interest accrues on settlement.
func (s *LoanService) PayoffLoan(ctx context.Context, loanID int64, accountNumber string) (*models.LoanPayment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistenceErr(err)
	}
	defer tx.Rollback()

	loan, err := s.lockLoan(tx, loanID, accountNumber)
	if err != nil {
		return nil, err
	}
	payoff := loan.RemainingBalance

	borrower, treasury, err := s.ledger.lockAccountPair(tx, accountNumber, s.ledger.TreasuryAccount())
	if err != nil {
		return nil, err
	}
	if borrower.Balance.LessThan(payoff) {
		return nil, ErrInsufficientFunds
	}

	if err := s.ledger.updateBalance(tx, borrower.AccountNumber, borrower.Balance.Sub(payoff)); err != nil {
		return nil, err
	}
	if err := s.ledger.updateBalance(tx, treasury.AccountNumber, treasury.Balance.Add(payoff)); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`
		UPDATE loans SET remaining_balance = 0, next_payment_date = NULL, status = $1
		WHERE id = $2`, models.LoanPaidOff, loanID); err != nil {
		return nil, persistenceErr(err)
	}

	payment := &models.LoanPayment{
		LoanID:           loanID,
		AccountNumber:    accountNumber,
		PaymentAmount:    payoff,
		PrincipalPortion: payoff,
		InterestPortion:  decimal.Zero,
		RemainingBalance: decimal.Zero,
		PaymentType:      models.PaymentEarly,
	}
	err = tx.QueryRow(`
		INSERT INTO loan_payments (loan_id, account_number, payment_amount, principal_portion,
			interest_portion, remaining_balance, payment_type, payment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, payment_date`,
		loanID, accountNumber, payoff, payoff, decimal.Zero, decimal.Zero, models.PaymentEarly).
		Scan(&payment.ID, &payment.PaymentDate)
	if err != nil {
		return nil, persistenceErr(err)
	}

	referenceID := uuid.NewString()
	if err := s.ledger.appendEntry(tx, accountNumber, models.TxLoanPayment, payoff, referenceID); err != nil {
		return nil, err
	}
	if err := s.ledger.appendEntry(tx, treasury.AccountNumber, models.TxTransferIn, payoff, referenceID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, persistenceErr(err)
	}

	log.Printf("[LOAN] Loan %d paid off early for %s", loanID, payoff.StringFixed(2))
	return payment, nil
}

// MarkLoanDefaulted is the manual administrative transition for loans
// whose payments have lapsed beyond policy. There is no automatic overdue
// detection.
func (s *LoanService) MarkLoanDefaulted(ctx context.Context, loanID int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE loans SET status = $1 WHERE id = $2 AND status = $3`,
		models.LoanDefaulted, loanID, models.LoanActive)
	if err != nil {
		return persistenceErr(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return persistenceErr(err)
	}
	if rows == 0 {
		return ErrLoanNotActive
	}
	log.Printf("[LOAN] Loan %d marked defaulted", loanID)
	return nil
}

// lockLoan reads an active loan under an exclusive row lock and verifies
// ownership.
func (s *LoanService) lockLoan(tx *sql.Tx, loanID int64, accountNumber string) (*models.Loan, error) {
	var loan models.Loan
	err := tx.QueryRow(`
		SELECT id, application_id, account_number, principal_amount, interest_rate, term_months,
			monthly_payment, remaining_balance, next_payment_date, status, disbursed_at
		FROM loans
		WHERE id = $1
		FOR UPDATE`, loanID).
		Scan(&loan.ID, &loan.ApplicationID, &loan.AccountNumber, &loan.PrincipalAmount, &loan.InterestRate,
			&loan.TermMonths, &loan.MonthlyPayment, &loan.RemainingBalance, &loan.NextPaymentDate,
			&loan.Status, &loan.DisbursedAt)
	if err == sql.ErrNoRows {
		return nil, ErrLoanNotFound
	}
	if err != nil {
		return nil, persistenceErr(err)
	}
	if loan.AccountNumber != accountNumber {
		return nil, ErrLoanNotFound
	}
	if loan.Status != models.LoanActive {
		return nil, ErrLoanNotActive
	}
	return &loan, nil
}

// GetActiveLoans returns the account's active loans, newest first.
func (s *LoanService) GetActiveLoans(ctx context.Context, accountNumber string) ([]models.Loan, error) {
	return s.queryLoans(ctx, `
		SELECT id, application_id, account_number, principal_amount, interest_rate, term_months,
			monthly_payment, remaining_balance, next_payment_date, status, disbursed_at
		FROM loans
		WHERE account_number = $1 AND status = $2
		ORDER BY disbursed_at DESC`, accountNumber, models.LoanActive)
}

// ActiveLoanPortfolio returns every active loan, most overdue first, for
// admin monitoring.
func (s *LoanService) ActiveLoanPortfolio(ctx context.Context) ([]models.Loan, error) {
	return s.queryLoans(ctx, `
		SELECT id, application_id, account_number, principal_amount, interest_rate, term_months,
			monthly_payment, remaining_balance, next_payment_date, status, disbursed_at
		FROM loans
		WHERE status = $1
		ORDER BY next_payment_date ASC`, models.LoanActive)
}

func (s *LoanService) queryLoans(ctx context.Context, query string, args ...any) ([]models.Loan, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistenceErr(err)
	}
	defer rows.Close()

	var loans []models.Loan
	for rows.Next() {
		var loan models.Loan
		if err := rows.Scan(&loan.ID, &loan.ApplicationID, &loan.AccountNumber, &loan.PrincipalAmount,
			&loan.InterestRate, &loan.TermMonths, &loan.MonthlyPayment, &loan.RemainingBalance,
			&loan.NextPaymentDate, &loan.Status, &loan.DisbursedAt); err != nil {
			return nil, persistenceErr(err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr(err)
	}
	return loans, nil
}

// GetLoanApplications returns the account's applications, newest first.
func (s *LoanService) GetLoanApplications(ctx context.Context, accountNumber string) ([]models.LoanApplication, error) {
	return s.queryApplications(ctx, `
		SELECT id, account_number, amount, purpose, monthly_income, employment_status, status,
			interest_rate, term_months, monthly_payment, admin_notes, applied_at, processed_at
		FROM loan_applications
		WHERE account_number = $1
		ORDER BY applied_at DESC`, accountNumber)
}

// PendingApplications returns all applications awaiting a decision, oldest
// first, for admin review.
func (s *LoanService) PendingApplications(ctx context.Context) ([]models.LoanApplication, error) {
	return s.queryApplications(ctx, `
		SELECT id, account_number, amount, purpose, monthly_income, employment_status, status,
			interest_rate, term_months, monthly_payment, admin_notes, applied_at, processed_at
		FROM loan_applications
		WHERE status = $1
		ORDER BY applied_at ASC`, models.ApplicationPending)
}

func (s *LoanService) queryApplications(ctx context.Context, query string, args ...any) ([]models.LoanApplication, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistenceErr(err)
	}
	defer rows.Close()

	var apps []models.LoanApplication
	for rows.Next() {
		var app models.LoanApplication
		if err := rows.Scan(&app.ID, &app.AccountNumber, &app.Amount, &app.Purpose, &app.MonthlyIncome,
			&app.EmploymentStatus, &app.Status, &app.InterestRate, &app.TermMonths, &app.MonthlyPayment,
			&app.AdminNotes, &app.AppliedAt, &app.ProcessedAt); err != nil {
			return nil, persistenceErr(err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr(err)
	}
	return apps, nil
}

// GetLoanPaymentHistory returns the payment audit trail for one loan owned
// by the account, newest first.
func (s *LoanService) GetLoanPaymentHistory(ctx context.Context, accountNumber string, loanID int64) ([]models.LoanPayment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, loan_id, account_number, payment_amount, principal_portion, interest_portion,
			remaining_balance, payment_date, payment_type
		FROM loan_payments
		WHERE account_number = $1 AND loan_id = $2
		ORDER BY payment_date DESC`, accountNumber, loanID)
	if err != nil {
		return nil, persistenceErr(err)
	}
	defer rows.Close()

	var payments []models.LoanPayment
	for rows.Next() {
		var p models.LoanPayment
		if err := rows.Scan(&p.ID, &p.LoanID, &p.AccountNumber, &p.PaymentAmount, &p.PrincipalPortion,
			&p.InterestPortion, &p.RemainingBalance, &p.PaymentDate, &p.PaymentType); err != nil {
			return nil, persistenceErr(err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr(err)
	}
	return payments, nil
}

// EstimateDTI computes the debt-to-income percentage an application would
// carry at a reference rate and term. Informational for admin review, not
// an approval gate.
func EstimateDTI(amount, monthlyIncome decimal.Decimal) decimal.Decimal {
	if monthlyIncome.Sign() <= 0 {
		return decimal.Zero
	}
	estimated := MonthlyPayment(amount, decimal.NewFromInt(12), 12)
	return estimated.Div(monthlyIncome).Mul(percentBase).Round(1)
}
