package payroll

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRates(t *testing.T) {
	rates, err := ResolveRates(d("20000"), d("313"))
	require.NoError(t, err)

	assertDecimal(t, "766.77", Round2(rates.Daily))
	assertDecimal(t, "95.85", Round2(rates.Hourly))
	assertDecimal(t, "1.60", Round2(rates.Minute))
	assert.True(t, rates.Hourly.Mul(decimal.NewFromInt(8)).Sub(rates.Daily).Abs().LessThan(d("0.000001")))
}

func TestResolveRatesRejectsInvalidFactor(t *testing.T) {
	for _, factor := range []string{"0", "-313"} {
		_, err := ResolveRates(d("20000"), d(factor))
		require.ErrorIs(t, err, ErrInvalidWorkingDays, factor)
	}
}

func TestResolveRatesRejectsNegativeSalary(t *testing.T) {
	_, err := ResolveRates(d("-1"), d("313"))
	require.ErrorIs(t, err, ErrNegativeSalary)
}

func TestComputeTimeDeductionUsesLateMultiplier(t *testing.T) {
	rates, err := ResolveRates(d("20000"), d("313"))
	require.NoError(t, err)

	single := ComputeTimeDeduction(rates, d("1"), 60, 0)
	double := ComputeTimeDeduction(rates, d("2"), 60, 0)
	assertDecimal(t, "95.85", Round2(single.Total()))
	assertDecimal(t, "191.69", Round2(double.Total()))

	undertime := ComputeTimeDeduction(rates, d("2"), 0, 60)
	assertDecimal(t, "95.85", Round2(undertime.Total()), "undertime ignores the late multiplier")
}

func TestOrgSettingsLateMultiplierDefaultsToOne(t *testing.T) {
	settings := OrgSettings{WorkingDaysPerYear: d("313")}
	assertDecimal(t, "1", settings.LateMultiplier())

	settings.LatePenaltyMultiplier = d("2")
	assertDecimal(t, "2", settings.LateMultiplier())
}

func TestOrgSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*OrgSettings)
		err    error
	}{
		{name: "defaults", mutate: func(*OrgSettings) {}},
		{name: "zero factor", mutate: func(o *OrgSettings) { o.WorkingDaysPerYear = decimal.Zero }, err: ErrInvalidWorkingDays},
		{name: "negative multiplier", mutate: func(o *OrgSettings) { o.LatePenaltyMultiplier = d("-1") }, err: ErrInvalidLateMultiple},
		{name: "too many slots", mutate: func(o *OrgSettings) { o.AdditionSlots = make([]Slot, 4) }, err: ErrTooManySlots},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			settings := DefaultOrgSettings("org-1")
			tc.mutate(&settings)
			err := settings.Validate()
			if tc.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestActiveLabelsKeepSlotIndex(t *testing.T) {
	settings := DefaultOrgSettings("org-1")
	settings.DeductionSlots[1] = Slot{Label: "Cash Bond", Enabled: true}
	settings.DeductionSlots[3] = Slot{Label: "Uniform", Enabled: true}

	assert.Equal(t, []IndexedLabel{{Index: 1, Label: "Cash Bond"}, {Index: 3, Label: "Uniform"}}, settings.ActiveDeductionLabels())
	assert.Empty(t, settings.ActiveAdditionLabels())
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode(" HALF ")
	require.NoError(t, err)
	assert.Equal(t, ModeHalf, mode)

	mode, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeFull, mode)

	_, err = ParseMode("quarter")
	assert.ErrorIs(t, err, ErrUnknownMode)
}
