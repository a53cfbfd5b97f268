package services

import (
	"github.com/shopspring/decimal"
)

var (
	monthsPerYear = decimal.NewFromInt(12)
	percentBase   = decimal.NewFromInt(100)
	oneCent       = decimal.New(1, -2)
)

// monthlyRate converts an annual percentage rate into a monthly fraction.
func monthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.Div(percentBase).Div(monthsPerYear)
}

// MonthlyPayment computes the fixed level payment amortizing principal over
// termMonths at annualRatePercent, rounded half-up to the cent. A zero rate
// degenerates to flat division of the principal.
//
//	P * (r(1+r)^n) / ((1+r)^n - 1), r = rate/100/12, n = termMonths
func MonthlyPayment(principal, annualRatePercent decimal.Decimal, termMonths int) decimal.Decimal {
	n := decimal.NewFromInt(int64(termMonths))
	if annualRatePercent.IsZero() {
		return principal.Div(n).Round(2)
	}

	r := monthlyRate(annualRatePercent)
	compound := decimal.NewFromInt(1).Add(r).Pow(n)
	payment := principal.Mul(r).Mul(compound).Div(compound.Sub(decimal.NewFromInt(1)))
	return payment.Round(2)
}

// SplitPayment divides a payment into interest (one month of interest on the
// remaining balance, rounded half-up to the cent) and principal (the rest,
// so the two portions always reconcile exactly to the payment amount).
// When the interest alone would consume the whole payment the principal is
// floored at one cent so the balance still moves.
func SplitPayment(remainingBalance, annualRatePercent, payment decimal.Decimal) (principal, interest decimal.Decimal) {
	interest = remainingBalance.Mul(monthlyRate(annualRatePercent)).Round(2)
	principal = payment.Sub(interest)
	if principal.Sign() <= 0 {
		principal = oneCent
		interest = payment.Sub(principal)
	}
	return principal, interest
}

// MonthlyInterest returns one month of interest on the remaining balance,
// rounded half-up to the cent.
func MonthlyInterest(remainingBalance, annualRatePercent decimal.Decimal) decimal.Decimal {
	return remainingBalance.Mul(monthlyRate(annualRatePercent)).Round(2)
}
