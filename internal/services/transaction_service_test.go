package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

const (
	testAccount   = "1234567890"
	otherAccount  = "2000000000"
	lowerAccount  = "1000000000"
	testTreasury  = "0000000001"
	lockQuery     = "SELECT account_number, name, balance, approval_status, created_at FROM accounts WHERE account_number = \\$1 FOR UPDATE"
	balanceUpdate = "UPDATE accounts SET balance = \\$1 WHERE account_number = \\$2"
	entryInsert   = "INSERT INTO transactions \\(account_number, type, amount, reference_id, timestamp\\)"
)

func accountRow(number, status, balance string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"account_number", "name", "balance", "approval_status", "created_at"}).
		AddRow(number, "Test User", balance, status, time.Now())
}

func newTransactionFixture(t *testing.T) (*TransactionService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	ledger := NewLedgerService(db, testTreasury)
	return NewTransactionService(db, ledger), mock, func() { db.Close() }
}

func TestTransactionService_Deposit(t *testing.T) {
	service, mock, closeDB := newTransactionFixture(t)
	defer closeDB()

	t.Run("successful deposit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(testAccount).
			WillReturnRows(accountRow(testAccount, "approved", "100.00"))
		mock.ExpectExec(balanceUpdate).
			WithArgs(decimal.RequireFromString("600.00"), testAccount).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(entryInsert).
			WithArgs(testAccount, "deposit", decimal.RequireFromString("500.00"), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		balance, err := service.Deposit(context.Background(), testAccount, decimal.RequireFromString("500.00"))
		assert.NoError(t, err)
		assert.Equal(t, "600.00", balance.StringFixed(2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects zero amount", func(t *testing.T) {
		_, err := service.Deposit(context.Background(), testAccount, decimal.Zero)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("rejects negative amount", func(t *testing.T) {
		_, err := service.Deposit(context.Background(), testAccount, decimal.RequireFromString("-10.00"))
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("rejects sub-cent precision", func(t *testing.T) {
		_, err := service.Deposit(context.Background(), testAccount, decimal.RequireFromString("10.005"))
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("accepts trailing zeros beyond the cent", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(testAccount).
			WillReturnRows(accountRow(testAccount, "approved", "100.00"))
		mock.ExpectExec(balanceUpdate).
			WithArgs(decimal.RequireFromString("350.000"), testAccount).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(entryInsert).
			WithArgs(testAccount, "deposit", decimal.RequireFromString("250.000"), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		balance, err := service.Deposit(context.Background(), testAccount, decimal.RequireFromString("250.000"))
		assert.NoError(t, err)
		assert.Equal(t, "350.00", balance.StringFixed(2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown account", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(testAccount).
			WillReturnRows(sqlmock.NewRows([]string{"account_number", "name", "balance", "approval_status", "created_at"}))
		mock.ExpectRollback()

		_, err := service.Deposit(context.Background(), testAccount, decimal.RequireFromString("50.00"))
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("pending account cannot transact", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(testAccount).
			WillReturnRows(accountRow(testAccount, "pending", "0.00"))
		mock.ExpectRollback()

		_, err := service.Deposit(context.Background(), testAccount, decimal.RequireFromString("50.00"))
		assert.ErrorIs(t, err, ErrAccountNotApproved)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionService_Withdraw(t *testing.T) {
	service, mock, closeDB := newTransactionFixture(t)
	defer closeDB()

	t.Run("successful withdrawal", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(testAccount).
			WillReturnRows(accountRow(testAccount, "approved", "500.00"))
		mock.ExpectExec(balanceUpdate).
			WithArgs(decimal.RequireFromString("300.00"), testAccount).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(entryInsert).
			WithArgs(testAccount, "withdrawal", decimal.RequireFromString("200.00"), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		balance, err := service.Withdraw(context.Background(), testAccount, decimal.RequireFromString("200.00"))
		assert.NoError(t, err)
		assert.Equal(t, "300.00", balance.StringFixed(2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient funds leaves no trace", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(testAccount).
			WillReturnRows(accountRow(testAccount, "approved", "300.00"))
		mock.ExpectRollback()

		_, err := service.Withdraw(context.Background(), testAccount, decimal.RequireFromString("1000.00"))
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("withdrawal of exact balance", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(testAccount).
			WillReturnRows(accountRow(testAccount, "approved", "300.00"))
		mock.ExpectExec(balanceUpdate).
			WithArgs(decimal.RequireFromString("0.00"), testAccount).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(entryInsert).
			WithArgs(testAccount, "withdrawal", decimal.RequireFromString("300.00"), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		balance, err := service.Withdraw(context.Background(), testAccount, decimal.RequireFromString("300.00"))
		assert.NoError(t, err)
		assert.True(t, balance.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionService_Transfer(t *testing.T) {
	service, mock, closeDB := newTransactionFixture(t)
	defer closeDB()

	t.Run("locks accounts in ascending order regardless of direction", func(t *testing.T) {
		// Sender 2000000000 > recipient 1000000000: the recipient row
		// must still be locked first.
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(lowerAccount).
			WillReturnRows(accountRow(lowerAccount, "approved", "50.00"))
		mock.ExpectQuery(lockQuery).WithArgs(otherAccount).
			WillReturnRows(accountRow(otherAccount, "approved", "500.00"))
		mock.ExpectExec(balanceUpdate).
			WithArgs(decimal.RequireFromString("400.00"), otherAccount).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(balanceUpdate).
			WithArgs(decimal.RequireFromString("150.00"), lowerAccount).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(entryInsert).
			WithArgs(otherAccount, "transfer_out", decimal.RequireFromString("100.00"), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(entryInsert).
			WithArgs(lowerAccount, "transfer_in", decimal.RequireFromString("100.00"), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectCommit()

		err := service.Transfer(context.Background(), otherAccount, lowerAccount, decimal.RequireFromString("100.00"))
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("self transfer rejected", func(t *testing.T) {
		err := service.Transfer(context.Background(), testAccount, testAccount, decimal.RequireFromString("10.00"))
		assert.ErrorIs(t, err, ErrSameAccount)
	})

	t.Run("missing recipient reported distinctly", func(t *testing.T) {
		// Recipient sorts first; its lock fails, and the engine re-locks
		// the sender to tell the two not-found cases apart.
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(lowerAccount).
			WillReturnRows(sqlmock.NewRows([]string{"account_number", "name", "balance", "approval_status", "created_at"}))
		mock.ExpectQuery(lockQuery).WithArgs(otherAccount).
			WillReturnRows(accountRow(otherAccount, "approved", "500.00"))
		mock.ExpectRollback()

		err := service.Transfer(context.Background(), otherAccount, lowerAccount, decimal.RequireFromString("100.00"))
		assert.ErrorIs(t, err, ErrRecipientNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unapproved recipient rejected", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(lowerAccount).
			WillReturnRows(accountRow(lowerAccount, "pending", "0.00"))
		mock.ExpectQuery(lockQuery).WithArgs(otherAccount).
			WillReturnRows(accountRow(otherAccount, "approved", "500.00"))
		mock.ExpectRollback()

		err := service.Transfer(context.Background(), otherAccount, lowerAccount, decimal.RequireFromString("100.00"))
		assert.ErrorIs(t, err, ErrRecipientNotApproved)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure between the two balance writes rolls back", func(t *testing.T) {
		// The debit lands, the credit fails: the whole unit must roll
		// back and surface as a persistence failure.
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(lowerAccount).
			WillReturnRows(accountRow(lowerAccount, "approved", "50.00"))
		mock.ExpectQuery(lockQuery).WithArgs(otherAccount).
			WillReturnRows(accountRow(otherAccount, "approved", "500.00"))
		mock.ExpectExec(balanceUpdate).
			WithArgs(decimal.RequireFromString("400.00"), otherAccount).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(balanceUpdate).
			WithArgs(decimal.RequireFromString("150.00"), lowerAccount).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err := service.Transfer(context.Background(), otherAccount, lowerAccount, decimal.RequireFromString("100.00"))
		assert.ErrorIs(t, err, ErrPersistence)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient funds rolls back both sides", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(lowerAccount).
			WillReturnRows(accountRow(lowerAccount, "approved", "50.00"))
		mock.ExpectQuery(lockQuery).WithArgs(otherAccount).
			WillReturnRows(accountRow(otherAccount, "approved", "30.00"))
		mock.ExpectRollback()

		err := service.Transfer(context.Background(), otherAccount, lowerAccount, decimal.RequireFromString("100.00"))
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
