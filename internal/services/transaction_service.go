package services

import (
	"context"
	"database/sql"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ianpurifying/SE1project-IRNVault/internal/models"
)

// TransactionService executes deposits, withdrawals and transfers as
// atomic units against the ledger store. Every balance mutation it makes
// is paired with exactly one log entry per account side, inside one
// database transaction with exclusive row locks.
type TransactionService struct {
	db     *sql.DB
	ledger *LedgerService
}

// NewTransactionService builds the transaction engine on top of the
// ledger store.
func NewTransactionService(db *sql.DB, ledger *LedgerService) *TransactionService {
	return &TransactionService{db: db, ledger: ledger}
}

// validAmount reports whether d is a positive currency amount representable
// at two decimal places. Trailing zeros beyond the cent are fine; genuine
// sub-cent precision is not.
func validAmount(d decimal.Decimal) bool {
	return d.Sign() > 0 && d.Equal(d.Round(2))
}

// Deposit credits amount to an approved account and returns the new
// balance. Fails without side effects on any precondition violation.
func (s *TransactionService) Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !validAmount(amount) {
		return decimal.Zero, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, persistenceErr(err)
	}
	defer tx.Rollback()

	account, err := s.ledger.lockAccount(tx, accountNumber)
	if err != nil {
		return decimal.Zero, err
	}
	if !account.IsApproved() {
		return decimal.Zero, ErrAccountNotApproved
	}

	newBalance := account.Balance.Add(amount)
	if err := s.ledger.updateBalance(tx, accountNumber, newBalance); err != nil {
		return decimal.Zero, err
	}
	if err := s.ledger.appendEntry(tx, accountNumber, models.TxDeposit, amount, uuid.NewString()); err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, persistenceErr(err)
	}

	log.Printf("[TXN] Deposit %s to %s, new balance %s", amount.StringFixed(2), accountNumber, newBalance.StringFixed(2))
	return newBalance, nil
}

// Withdraw debits amount from an approved account with sufficient funds
// and returns the new balance.
func (s *TransactionService) Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !validAmount(amount) {
		return decimal.Zero, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, persistenceErr(err)
	}
	defer tx.Rollback()

	account, err := s.ledger.lockAccount(tx, accountNumber)
	if err != nil {
		return decimal.Zero, err
	}
	if !account.IsApproved() {
		return decimal.Zero, ErrAccountNotApproved
	}
	if account.Balance.LessThan(amount) {
		return decimal.Zero, ErrInsufficientFunds
	}

	newBalance := account.Balance.Sub(amount)
	if err := s.ledger.updateBalance(tx, accountNumber, newBalance); err != nil {
		return decimal.Zero, err
	}
	if err := s.ledger.appendEntry(tx, accountNumber, models.TxWithdrawal, amount, uuid.NewString()); err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, persistenceErr(err)
	}

	log.Printf("[TXN] Withdrawal %s from %s, new balance %s", amount.StringFixed(2), accountNumber, newBalance.StringFixed(2))
	return newBalance, nil
}

// Transfer moves amount between two distinct approved accounts, appending
// a transfer_out leg on the source and a transfer_in leg on the
// destination that share one reference id. Rows are locked in ascending
// account-number order regardless of transfer direction so that crossing
// transfers cannot deadlock.
func (s *TransactionService) Transfer(ctx context.Context, fromAccount, toAccount string, amount decimal.Decimal) error {
	if fromAccount == toAccount {
		return ErrSameAccount
	}
	if !validAmount(amount) {
		return ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistenceErr(err)
	}
	defer tx.Rollback()

	if err := s.transferTx(tx, fromAccount, toAccount, amount); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return persistenceErr(err)
	}

	log.Printf("[TXN] Transfer %s from %s to %s", amount.StringFixed(2), fromAccount, toAccount)
	return nil
}

// transferTx is the transfer body, reusable inside a caller-owned database
// transaction.
func (s *TransactionService) transferTx(tx *sql.Tx, fromAccount, toAccount string, amount decimal.Decimal) error {
	from, to, err := s.ledger.lockAccountPair(tx, fromAccount, toAccount)
	if err == ErrAccountNotFound {
		// Disambiguate which side is missing.
		if _, lockErr := s.ledger.lockAccount(tx, fromAccount); lockErr == ErrAccountNotFound {
			return ErrAccountNotFound
		}
		return ErrRecipientNotFound
	}
	if err != nil {
		return err
	}

	if !from.IsApproved() {
		return ErrAccountNotApproved
	}
	if !to.IsApproved() {
		return ErrRecipientNotApproved
	}
	if from.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}

	if err := s.ledger.updateBalance(tx, from.AccountNumber, from.Balance.Sub(amount)); err != nil {
		return err
	}
	if err := s.ledger.updateBalance(tx, to.AccountNumber, to.Balance.Add(amount)); err != nil {
		return err
	}

	referenceID := uuid.NewString()
	if err := s.ledger.appendEntry(tx, from.AccountNumber, models.TxTransferOut, amount, referenceID); err != nil {
		return err
	}
	if err := s.ledger.appendEntry(tx, to.AccountNumber, models.TxTransferIn, amount, referenceID); err != nil {
		return err
	}
	return nil
}
