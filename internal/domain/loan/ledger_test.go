package loan

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestCapDeduction(t *testing.T) {
	tests := []struct {
		name        string
		installment string
		balance     string
		multiplier  string
		want        string
	}{
		{name: "full installment", installment: "1000", balance: "5000", multiplier: "1", want: "1000"},
		{name: "half installment", installment: "1000", balance: "5000", multiplier: "0.5", want: "500"},
		{name: "none", installment: "1000", balance: "5000", multiplier: "0", want: "0"},
		{name: "capped at balance", installment: "1000", balance: "300", multiplier: "1", want: "300"},
		{name: "half capped at balance", installment: "1000", balance: "200", multiplier: "0.5", want: "200"},
		{name: "no balance", installment: "1000", balance: "0", multiplier: "1", want: "0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CapDeduction(d(tc.installment), d(tc.balance), d(tc.multiplier))
			assert.True(t, d(tc.want).Equal(got), "expected %s, got %s", tc.want, got)
			assert.True(t, got.LessThanOrEqual(decimal.Max(d(tc.balance), decimal.Zero)))
		})
	}
}

func TestApplyPayment(t *testing.T) {
	next, active := ApplyPayment(d("5000"), d("1000"))
	assert.True(t, d("4000").Equal(next))
	assert.True(t, active)

	next, active = ApplyPayment(d("300"), d("300"))
	assert.True(t, next.IsZero())
	assert.False(t, active)

	next, active = ApplyPayment(d("300"), d("500"))
	assert.True(t, next.IsZero(), "balance never goes negative")
	assert.False(t, active)
}
