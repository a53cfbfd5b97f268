package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction log entry types. Deposit-side types add to the balance,
// withdrawal-side types subtract from it.
const (
	TxDeposit          = "deposit"
	TxWithdrawal       = "withdrawal"
	TxTransferIn       = "transfer_in"
	TxTransferOut      = "transfer_out"
	TxLoanDisbursement = "loan_disbursement"
	TxLoanPayment      = "loan_payment"
)

// Transaction is one immutable row of the append-only ledger log.
// Rows belonging to the same logical operation (the two legs of a
// transfer, a disbursement and its treasury leg) share a ReferenceID.
type Transaction struct {
	ID            int64           `json:"id" db:"id"`
	AccountNumber string          `json:"account_number" db:"account_number"`
	Type          string          `json:"type" db:"type"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	ReferenceID   string          `json:"reference_id" db:"reference_id"`
	Timestamp     time.Time       `json:"timestamp" db:"timestamp"`
}

// SignedAmount returns the amount with the sign implied by the entry type:
// positive for money entering the account, negative for money leaving it.
func (t *Transaction) SignedAmount() (decimal.Decimal, error) {
	switch t.Type {
	case TxDeposit, TxTransferIn, TxLoanDisbursement:
		return t.Amount, nil
	case TxWithdrawal, TxTransferOut, TxLoanPayment:
		return t.Amount.Neg(), nil
	}
	return decimal.Zero, fmt.Errorf("unknown transaction type %q", t.Type)
}
