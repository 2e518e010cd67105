package payroll

import (
	"github.com/shopspring/decimal"

	"phpayroll/internal/domain/loan"
)

// Compute turns one employee's period inputs into a payslip. The loan
// deduction is the prorated installment capped at the outstanding balance.
func Compute(emp Employee, cfg PayrollConfig, org OrgSettings, in PayPeriodInputs) (PayrollRecord, error) {
	in = in.withDefaults()
	loanDeduction := loan.CapDeduction(in.LoanPayment, in.LoanBalance, in.LoanMode.Multiplier())
	return ComputeWithLoan(emp, cfg, org, in, loanDeduction)
}

// ComputeWithLoan is Compute with an already decided loan deduction. Edits of
// finalized records use it so the loan ledger is not consulted again.
func ComputeWithLoan(emp Employee, cfg PayrollConfig, org OrgSettings, in PayPeriodInputs, loanDeduction decimal.Decimal) (PayrollRecord, error) {
	if err := org.Validate(); err != nil {
		return PayrollRecord{}, err
	}
	in = in.withDefaults()
	rates, err := ResolveRates(emp.SalaryRate, org.WorkingDaysPerYear)
	if err != nil {
		return PayrollRecord{}, err
	}
	if loanDeduction.IsNegative() {
		loanDeduction = decimal.Zero
	}

	additions := effectiveSlotValues(org.AdditionSlots, in.CustomAdditions)
	deductions := effectiveSlotValues(org.DeductionSlots, in.CustomDeductions)

	earnings := ComputeEarnings(rates, in, additions)
	gross := earnings.Gross()
	timeDeduction := ComputeTimeDeduction(rates, org.LateMultiplier(), in.LateMinutes, in.UndertimeMinutes)
	contributions := ResolveContributions(emp.SalaryRate, cfg, org, in.SSSMode, in.PHMode, in.PIMode)
	tax := ComputeWithholding(TaxableIncome(gross, contributions), cfg.TaxTable)

	record := PayrollRecord{
		OrgID:               org.ID,
		EmployeeID:          emp.ID,
		Department:          emp.DepartmentOrDefault(),
		Inputs:              in,
		BasicPay:            Round2(earnings.Basic),
		OTPay:               Round2(earnings.Overtime),
		NDPay:               Round2(earnings.NightDiff),
		HolidayPay:          Round2(earnings.Holiday.Total()),
		GrossPay:            Round2(gross),
		SSSDeduction:        Round2(contributions.SSS),
		PhilHealthDeduction: Round2(contributions.PhilHealth),
		PagIBIGDeduction:    Round2(contributions.PagIBIG),
		TaxDeduction:        Round2(tax),
		TimeDeduction:       Round2(timeDeduction.Total()),
		LoanDeduction:       Round2(loanDeduction),
		CustomDeductions:    roundAll(deductions),
		CustomAdditions:     roundAll(additions),
	}
	// Net is derived from the rounded parts so the payslip always foots.
	record.NetPay = record.GrossPay.Sub(record.TotalDeductions())
	return record, nil
}

// Recompute rebuilds a stored record from its inputs, keeping identity, period
// and the loan deduction that was applied when it was finalized.
func Recompute(stored PayrollRecord, emp Employee, cfg PayrollConfig, org OrgSettings, in PayPeriodInputs) (PayrollRecord, error) {
	in.LoanPayment = stored.Inputs.LoanPayment
	in.LoanBalance = stored.Inputs.LoanBalance
	in.LoanMode = stored.Inputs.LoanMode
	record, err := ComputeWithLoan(emp, cfg, org, in, stored.LoanDeduction)
	if err != nil {
		return PayrollRecord{}, err
	}
	record.ID = stored.ID
	record.OrgID = stored.OrgID
	record.Department = stored.Department
	record.PeriodStart = stored.PeriodStart
	record.PeriodEnd = stored.PeriodEnd
	record.CreatedAt = stored.CreatedAt
	return record, nil
}

func (in PayPeriodInputs) withDefaults() PayPeriodInputs {
	if in.SSSMode == "" {
		in.SSSMode = ModeFull
	}
	if in.PHMode == "" {
		in.PHMode = ModeFull
	}
	if in.PIMode == "" {
		in.PIMode = ModeFull
	}
	if in.LoanMode == "" {
		in.LoanMode = ModeFull
	}
	return in
}
