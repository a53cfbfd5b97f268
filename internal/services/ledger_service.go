package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"log"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ianpurifying/SE1project-IRNVault/internal/models"
)

// TransactionSortKey selects the ordering of transaction history queries.
// Keys are mapped to SQL fragments through a fixed allow-list; arbitrary
// column input never reaches the query text.
type TransactionSortKey string

const (
	SortNewestFirst   TransactionSortKey = "newest"
	SortOldestFirst   TransactionSortKey = "oldest"
	SortLargestAmount TransactionSortKey = "amount"
)

var transactionSortColumns = map[TransactionSortKey]string{
	SortNewestFirst:   "timestamp DESC, id DESC",
	SortOldestFirst:   "timestamp ASC, id ASC",
	SortLargestAmount: "amount DESC, id DESC",
}

// AccountSortKey orders admin account listings.
type AccountSortKey string

const (
	AccountsByCreated AccountSortKey = "created"
	AccountsByName    AccountSortKey = "name"
	AccountsByBalance AccountSortKey = "balance"
)

var accountSortColumns = map[AccountSortKey]string{
	AccountsByCreated: "created_at DESC",
	AccountsByName:    "name ASC",
	AccountsByBalance: "balance DESC",
}

// ReconciliationReport compares an account balance with the signed sum of
// its ledger entries. The two must agree at all times.
type ReconciliationReport struct {
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	LedgerSum     decimal.Decimal `json:"ledger_sum"`
	Balanced      bool            `json:"balanced"`
}

// LedgerService owns the accounts table and the append-only transaction
// log. Engines use its locked reads and log appends inside their own
// database transactions; every balance mutation goes through here.
type LedgerService struct {
	db              *sql.DB
	treasuryAccount string
}

// NewLedgerService builds the ledger store around db. treasuryAccount is
// the distinguished account that funds loan disbursements.
func NewLedgerService(db *sql.DB, treasuryAccount string) *LedgerService {
	return &LedgerService{db: db, treasuryAccount: treasuryAccount}
}

// TreasuryAccount returns the configured treasury account number.
func (s *LedgerService) TreasuryAccount() string {
	return s.treasuryAccount
}

// lockAccount reads an account row under an exclusive row lock. Callers
// locking more than one account must do so in ascending account-number
// order; see lockAccountPair.
func (s *LedgerService) lockAccount(tx *sql.Tx, accountNumber string) (*models.Account, error) {
	var account models.Account
	err := tx.QueryRow(`
		SELECT account_number, name, balance, approval_status, created_at
		FROM accounts
		WHERE account_number = $1
		FOR UPDATE`, accountNumber).
		Scan(&account.AccountNumber, &account.Name, &account.Balance, &account.ApprovalStatus, &account.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, persistenceErr(err)
	}
	return &account, nil
}

// lockAccountPair locks two distinct accounts in ascending account-number
// order so that crossing operations can never deadlock, then returns them
// in the order the caller asked for.
func (s *LedgerService) lockAccountPair(tx *sql.Tx, first, second string) (*models.Account, *models.Account, error) {
	if first == second {
		// Locking one row twice would yield two stale snapshots whose
		// writes overwrite each other.
		return nil, nil, ErrSameAccount
	}

	lockFirst, lockSecond := first, second
	if first > second {
		lockFirst, lockSecond = second, first
	}

	a, err := s.lockAccount(tx, lockFirst)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.lockAccount(tx, lockSecond)
	if err != nil {
		return nil, nil, err
	}

	if lockFirst != first {
		a, b = b, a
	}
	return a, b, nil
}

// updateBalance writes a freshly computed balance for a row the caller
// already holds locked.
func (s *LedgerService) updateBalance(tx *sql.Tx, accountNumber string, newBalance decimal.Decimal) error {
	result, err := tx.Exec(`
		UPDATE accounts SET balance = $1 WHERE account_number = $2`,
		newBalance, accountNumber)
	if err != nil {
		return persistenceErr(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return persistenceErr(err)
	}
	if rows == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// appendEntry writes one immutable ledger log row. The timestamp is
// assigned by the database at commit ordering, monotonic per account under
// the row lock held by the caller.
func (s *LedgerService) appendEntry(tx *sql.Tx, accountNumber, entryType string, amount decimal.Decimal, referenceID string) error {
	_, err := tx.Exec(`
		INSERT INTO transactions (account_number, type, amount, reference_id, timestamp)
		VALUES ($1, $2, $3, $4, NOW())`,
		accountNumber, entryType, amount, referenceID)
	if err != nil {
		return persistenceErr(err)
	}
	return nil
}

// CreateAccount registers a new pending account with a generated 10-digit
// number and zero balance. The PIN hash is produced by the auth service.
func (s *LedgerService) CreateAccount(ctx context.Context, name, pinHash string) (*models.Account, error) {
	for attempt := 0; attempt < 5; attempt++ {
		accountNumber, err := generateAccountNumber()
		if err != nil {
			return nil, persistenceErr(err)
		}

		account, err := models.NewAccount(accountNumber, name)
		if err != nil {
			return nil, err
		}

		_, err = s.db.ExecContext(ctx, `
			INSERT INTO accounts (account_number, name, pin_hash, balance, approval_status, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())`,
			account.AccountNumber, account.Name, pinHash, account.Balance, account.ApprovalStatus)
		if err == nil {
			log.Printf("[LEDGER] Account created: %s (pending approval)", account.AccountNumber)
			return account, nil
		}
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			continue // collision on the generated number, try another
		}
		return nil, persistenceErr(err)
	}
	return nil, persistenceErr(errors.New("account number allocation retries exhausted"))
}

// ApproveAccount moves a pending account into the approved state.
func (s *LedgerService) ApproveAccount(ctx context.Context, accountNumber string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET approval_status = $1
		WHERE account_number = $2 AND approval_status = $3`,
		models.ApprovalApproved, accountNumber, models.ApprovalPending)
	if err != nil {
		return persistenceErr(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return persistenceErr(err)
	}
	if rows == 0 {
		return ErrAccountNotFound
	}
	log.Printf("[LEDGER] Account approved: %s", accountNumber)
	return nil
}

// DeclineAccount marks a pending account declined (terminal) and records
// the reason in the decline audit table.
func (s *LedgerService) DeclineAccount(ctx context.Context, accountNumber, reason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistenceErr(err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE accounts SET approval_status = $1
		WHERE account_number = $2 AND approval_status = $3`,
		models.ApprovalDeclined, accountNumber, models.ApprovalPending)
	if err != nil {
		return persistenceErr(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return persistenceErr(err)
	}
	if rows == 0 {
		return ErrAccountNotFound
	}

	if _, err := tx.Exec(`
		INSERT INTO account_declines (account_number, reason, declined_at)
		VALUES ($1, $2, NOW())`, accountNumber, reason); err != nil {
		return persistenceErr(err)
	}

	if err := tx.Commit(); err != nil {
		return persistenceErr(err)
	}
	log.Printf("[LEDGER] Account declined: %s (%s)", accountNumber, reason)
	return nil
}

// GetAccount reads an account snapshot without locking.
func (s *LedgerService) GetAccount(ctx context.Context, accountNumber string) (*models.Account, error) {
	var account models.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT account_number, name, balance, approval_status, created_at
		FROM accounts WHERE account_number = $1`, accountNumber).
		Scan(&account.AccountNumber, &account.Name, &account.Balance, &account.ApprovalStatus, &account.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, persistenceErr(err)
	}
	return &account, nil
}

// GetBalance returns the current balance snapshot for an account.
func (s *LedgerService) GetBalance(ctx context.Context, accountNumber string) (decimal.Decimal, error) {
	account, err := s.GetAccount(ctx, accountNumber)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// GetTransactionHistory returns up to limit log rows for an account in the
// requested order.
func (s *LedgerService) GetTransactionHistory(ctx context.Context, accountNumber string, limit int, sortKey TransactionSortKey) ([]models.Transaction, error) {
	orderBy, ok := transactionSortColumns[sortKey]
	if !ok {
		return nil, ErrInvalidSortKey
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_number, type, amount, reference_id, timestamp
		FROM transactions
		WHERE account_number = $1
		ORDER BY `+orderBy+`
		LIMIT $2`, accountNumber, limit)
	if err != nil {
		return nil, persistenceErr(err)
	}
	defer rows.Close()

	var history []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.AccountNumber, &t.Type, &t.Amount, &t.ReferenceID, &t.Timestamp); err != nil {
			return nil, persistenceErr(err)
		}
		history = append(history, t)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr(err)
	}
	return history, nil
}

// ListAccounts returns all non-treasury accounts for admin review.
func (s *LedgerService) ListAccounts(ctx context.Context, sortKey AccountSortKey) ([]models.Account, error) {
	orderBy, ok := accountSortColumns[sortKey]
	if !ok {
		return nil, ErrInvalidSortKey
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT account_number, name, balance, approval_status, created_at
		FROM accounts
		WHERE account_number != $1
		ORDER BY `+orderBy, s.treasuryAccount)
	if err != nil {
		return nil, persistenceErr(err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.AccountNumber, &a.Name, &a.Balance, &a.ApprovalStatus, &a.CreatedAt); err != nil {
			return nil, persistenceErr(err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr(err)
	}
	return accounts, nil
}

// PendingAccounts returns accounts awaiting the approval decision, oldest
// first.
func (s *LedgerService) PendingAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_number, name, balance, approval_status, created_at
		FROM accounts
		WHERE approval_status = $1 AND account_number != $2
		ORDER BY created_at ASC`, models.ApprovalPending, s.treasuryAccount)
	if err != nil {
		return nil, persistenceErr(err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.AccountNumber, &a.Name, &a.Balance, &a.ApprovalStatus, &a.CreatedAt); err != nil {
			return nil, persistenceErr(err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr(err)
	}
	return accounts, nil
}

// ReconcileAccount verifies the reconciliation invariant for one account:
// balance == signed sum of its ledger entries.
func (s *LedgerService) ReconcileAccount(ctx context.Context, accountNumber string) (*ReconciliationReport, error) {
	account, err := s.GetAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	var ledgerSum decimal.Decimal
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE
			WHEN type IN ('deposit', 'transfer_in', 'loan_disbursement') THEN amount
			WHEN type IN ('withdrawal', 'transfer_out', 'loan_payment') THEN -amount
			ELSE 0
		END), 0)
		FROM transactions
		WHERE account_number = $1`, accountNumber).Scan(&ledgerSum)
	if err != nil {
		return nil, persistenceErr(err)
	}

	return &ReconciliationReport{
		AccountNumber: accountNumber,
		Balance:       account.Balance,
		LedgerSum:     ledgerSum,
		Balanced:      account.Balance.Equal(ledgerSum),
	}, nil
}

// generateAccountNumber produces a random 10-digit account number with a
// non-zero leading digit.
func generateAccountNumber() (string, error) {
	const digits = "0123456789"
	b := make([]byte, 10)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, 10)
	for i := range b {
		out[i] = digits[int(b[i])%10]
	}
	if out[0] == '0' {
		out[0] = digits[1+int(b[0])%9]
	}
	return string(out), nil
}
