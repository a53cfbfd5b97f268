package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMonthlyPayment(t *testing.T) {
	t.Run("standard amortization", func(t *testing.T) {
		// 100,000 at 12% over 12 months
		payment := MonthlyPayment(decimal.NewFromInt(100000), decimal.NewFromInt(12), 12)
		assert.Equal(t, "8884.88", payment.StringFixed(2))
	})

	t.Run("zero rate divides principal evenly", func(t *testing.T) {
		payment := MonthlyPayment(decimal.NewFromInt(12000), decimal.Zero, 12)
		assert.Equal(t, "1000.00", payment.StringFixed(2))
	})

	t.Run("zero rate with rounding", func(t *testing.T) {
		payment := MonthlyPayment(decimal.NewFromInt(10000), decimal.Zero, 3)
		assert.Equal(t, "3333.33", payment.StringFixed(2))
	})

	t.Run("single month term", func(t *testing.T) {
		// One month at 12%: principal plus one month of interest.
		payment := MonthlyPayment(decimal.NewFromInt(1000), decimal.NewFromInt(12), 1)
		assert.Equal(t, "1010.00", payment.StringFixed(2))
	})

	t.Run("result has at most two decimal places", func(t *testing.T) {
		payment := MonthlyPayment(decimal.RequireFromString("5432.10"), decimal.RequireFromString("7.5"), 36)
		assert.True(t, payment.Exponent() >= -2)
	})
}

func TestSplitPayment(t *testing.T) {
	t.Run("portions always sum to the payment", func(t *testing.T) {
		cases := []struct {
			remaining string
			rate      string
			payment   string
		}{
			{"100000", "12", "8884.88"},
			{"92115.12", "12", "8884.88"},
			{"500.00", "0", "100.00"},
			{"1234.56", "33.3", "200.00"},
		}
		for _, tc := range cases {
			principal, interest := SplitPayment(
				decimal.RequireFromString(tc.remaining),
				decimal.RequireFromString(tc.rate),
				decimal.RequireFromString(tc.payment))
			assert.Equal(t, tc.payment, principal.Add(interest).StringFixed(2),
				"split of %s on %s at %s%%", tc.payment, tc.remaining, tc.rate)
			assert.True(t, principal.Sign() > 0)
			assert.True(t, interest.Sign() >= 0)
		}
	})

	t.Run("first payment of reference schedule", func(t *testing.T) {
		principal, interest := SplitPayment(
			decimal.NewFromInt(100000), decimal.NewFromInt(12), decimal.RequireFromString("8884.88"))
		assert.Equal(t, "1000.00", interest.StringFixed(2))
		assert.Equal(t, "7884.88", principal.StringFixed(2))
	})

	t.Run("zero rate payment is all principal", func(t *testing.T) {
		principal, interest := SplitPayment(
			decimal.NewFromInt(12000), decimal.Zero, decimal.NewFromInt(1000))
		assert.Equal(t, "1000.00", principal.StringFixed(2))
		assert.True(t, interest.IsZero())
	})

	t.Run("principal floored at one cent when interest swallows payment", func(t *testing.T) {
		// One month of interest on 100,000 at 12% is 1,000; a 50.00
		// payment must still retire at least a cent of principal.
		principal, interest := SplitPayment(
			decimal.NewFromInt(100000), decimal.NewFromInt(12), decimal.RequireFromString("50.00"))
		assert.Equal(t, "0.01", principal.StringFixed(2))
		assert.Equal(t, "49.99", interest.StringFixed(2))
	})
}

func TestMonthlyInterest(t *testing.T) {
	assert.Equal(t, "1000.00", MonthlyInterest(decimal.NewFromInt(100000), decimal.NewFromInt(12)).StringFixed(2))
	assert.Equal(t, "87.97", MonthlyInterest(decimal.RequireFromString("8796.88"), decimal.NewFromInt(12)).StringFixed(2))
	assert.True(t, MonthlyInterest(decimal.NewFromInt(12000), decimal.Zero).IsZero())
}

// TestAmortizationSchedule walks the full reference schedule: 100,000 at
// 12% over 12 months, paying the level payment each cycle with the final
// payment capped at the remaining balance plus its month of interest. The
// balance must land exactly on zero and the principal portions must sum
// back to the original principal.
func TestAmortizationSchedule(t *testing.T) {
	principal := decimal.NewFromInt(100000)
	rate := decimal.NewFromInt(12)
	level := MonthlyPayment(principal, rate, 12)

	remaining := principal
	totalPrincipal := decimal.Zero
	payments := 0

	for payments < 12 && remaining.Sign() > 0 {
		interest := MonthlyInterest(remaining, rate)
		payment := level
		if owed := remaining.Add(interest); owed.LessThan(payment) {
			payment = owed
		}

		p, i := SplitPayment(remaining, rate, payment)
		if p.GreaterThan(remaining) {
			p = remaining
			i = payment.Sub(p)
		}

		assert.Equal(t, payment.StringFixed(2), p.Add(i).StringFixed(2))
		remaining = remaining.Sub(p)
		totalPrincipal = totalPrincipal.Add(p)
		payments++
	}

	assert.Equal(t, 12, payments)
	assert.True(t, remaining.IsZero(), "schedule must land exactly on zero, got %s", remaining)
	assert.Equal(t, principal.StringFixed(2), totalPrincipal.StringFixed(2))
}
