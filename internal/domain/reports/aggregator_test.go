package reports

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phpayroll/internal/domain/payroll"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]any{"expected %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func employee(id, last, first, dept, salary string) payroll.Employee {
	return payroll.Employee{ID: id, IDNumber: "N-" + id, LastName: last, FirstName: first, Department: dept, SalaryRate: d(salary)}
}

func TestThirteenthMonthScenario(t *testing.T) {
	santos := employee("emp-1", "Santos", "Maria", "Kitchen", "23000")
	idle := employee("emp-2", "Cruz", "Jose", "Bar", "18000")
	var rows []Row
	for i := 0; i < 3; i++ {
		rows = append(rows, Row{Employee: santos, Record: payroll.PayrollRecord{EmployeeID: "emp-1", BasicPay: d("11500")}})
	}

	out := ThirteenthMonthPay([]payroll.Employee{santos, idle}, rows)
	require.Len(t, out, 1)
	assert.Equal(t, "Santos, Maria", out[0].Name)
	assertDecimal(t, "34500", out[0].TotalBasic)
	assertDecimal(t, "2875.00", out[0].Amount)
}

func TestMonthlyDeductionsGroupsSortsAndFilters(t *testing.T) {
	santos := employee("emp-1", "Santos", "Maria", "Kitchen", "20000")
	abad := employee("emp-2", "Abad", "Ana", "Bar", "18000")
	rows := []Row{
		{Employee: santos, Record: payroll.PayrollRecord{EmployeeID: "emp-1", Department: "Kitchen", SSSDeduction: d("500"), PhilHealthDeduction: d("250"), PagIBIGDeduction: d("100"), TaxDeduction: d("120.50"), TimeDeduction: d("10"), LoanDeduction: d("500"), CustomDeductions: []decimal.Decimal{d("50"), d("25")}}},
		{Employee: santos, Record: payroll.PayrollRecord{EmployeeID: "emp-1", Department: "Kitchen", SSSDeduction: d("500"), PhilHealthDeduction: d("250"), PagIBIGDeduction: d("100"), TaxDeduction: d("120.50"), LoanDeduction: d("500"), CustomDeductions: []decimal.Decimal{d("0"), d("25"), d("5")}}},
		{Employee: abad, Record: payroll.PayrollRecord{EmployeeID: "emp-2", Department: "Bar", SSSDeduction: d("450")}},
	}

	all := MonthlyDeductions(rows, "All")
	require.Len(t, all, 2)
	assert.Equal(t, "Abad, Ana", all[0].Name)
	assert.Equal(t, "Santos, Maria", all[1].Name)

	santosRow := all[1]
	assertDecimal(t, "1000", santosRow.SSS)
	assertDecimal(t, "241", santosRow.Tax)
	assertDecimal(t, "10", santosRow.Late)
	assertDecimal(t, "1000", santosRow.Loan)
	require.Len(t, santosRow.CustomDeductions, 3)
	assertDecimal(t, "50", santosRow.CustomDeductions[0])
	assertDecimal(t, "50", santosRow.CustomDeductions[1])
	assertDecimal(t, "5", santosRow.CustomDeductions[2])
	assertDecimal(t, "3056", santosRow.Total)

	kitchen := MonthlyDeductions(rows, "Kitchen")
	require.Len(t, kitchen, 1)
	assert.Equal(t, "emp-1", kitchen[0].EmployeeID)
	assert.Equal(t, []string{"Bar", "Kitchen"}, Departments(rows))
}

func TestBIR1601CExemptBucket(t *testing.T) {
	low := employee("emp-1", "Santos", "Maria", "Kitchen", "20000")
	high := employee("emp-2", "Cruz", "Jose", "Bar", "30000")
	rows := []Row{
		{Employee: low, Record: payroll.PayrollRecord{GrossPay: d("10000"), SSSDeduction: d("500"), PhilHealthDeduction: d("300"), PagIBIGDeduction: d("200")}},
		{Employee: high, Record: payroll.PayrollRecord{GrossPay: d("15000"), SSSDeduction: d("700"), PhilHealthDeduction: d("300"), PagIBIGDeduction: d("200"), TaxDeduction: d("500")}},
	}

	report := ComputeBIR1601C(2026, 3, rows)
	assert.Equal(t, 2, report.Records)
	assertDecimal(t, "25000", report.TotalCompensation)
	assertDecimal(t, "2200", report.TotalNonTaxable)
	assertDecimal(t, "22800", report.TaxableCompensation)
	assertDecimal(t, "9000", report.TotalExempt)
	assertDecimal(t, "13800", report.NetTaxableCompensation)
	assertDecimal(t, "500", report.TaxDue)
	assertDecimal(t, "500", report.AmountRemittable)
}

func TestBIR2316(t *testing.T) {
	settings := payroll.DefaultOrgSettings("org-1")
	settings.Name = "Kusina Corp"
	settings.TIN = "123-456-789"

	t.Run("taxable basic with 13th month above cap", func(t *testing.T) {
		emp := employee("emp-1", "Santos", "Maria", "Kitchen", "30000")
		rows := []Row{{Employee: emp, Record: payroll.PayrollRecord{
			EmployeeID: "emp-1", BasicPay: d("1200000"), HolidayPay: d("1000"), OTPay: d("500"), NDPay: d("200"),
			SSSDeduction: d("1000"), PhilHealthDeduction: d("500"), PagIBIGDeduction: d("200"), TaxDeduction: d("5000"),
		}}}
		report := ComputeBIR2316(2026, emp, settings, rows)
		assert.Equal(t, "Kusina Corp", report.EmployerName)
		assertDecimal(t, "100000", report.ThirteenthMonth)
		assertDecimal(t, "90000", report.NonTaxable13th)
		assertDecimal(t, "10000", report.Taxable13th)
		assertDecimal(t, "0", report.BasicExempt)
		assertDecimal(t, "1200000", report.BasicTaxable)
		assertDecimal(t, "1700", report.Contributions)
		assertDecimal(t, "93400", report.TotalNonTaxable)
		assertDecimal(t, "1210000", report.TotalTaxable)
		assertDecimal(t, "5000", report.TaxWithheld)
	})

	t.Run("minimum earner basic is exempt", func(t *testing.T) {
		emp := employee("emp-2", "Cruz", "Jose", "Bar", "15000")
		rows := []Row{
			{Employee: emp, Record: payroll.PayrollRecord{EmployeeID: "emp-2", BasicPay: d("45000"), SSSDeduction: d("300")}},
			{Employee: emp, Record: payroll.PayrollRecord{EmployeeID: "emp-2", BasicPay: d("45000"), SSSDeduction: d("300")}},
			{Employee: emp, Record: payroll.PayrollRecord{EmployeeID: "emp-other", BasicPay: d("999999")}},
		}
		report := ComputeBIR2316(2026, emp, settings, rows)
		assert.Equal(t, 2, report.Records)
		assertDecimal(t, "90000", report.BasicExempt)
		assertDecimal(t, "7500", report.NonTaxable13th)
		assertDecimal(t, "0", report.Taxable13th)
		assertDecimal(t, "98100", report.TotalNonTaxable)
		assertDecimal(t, "0", report.TotalTaxable)
	})

	t.Run("without salary rate the basic total decides", func(t *testing.T) {
		emp := employee("emp-3", "Reyes", "Luz", "Bar", "0")
		rows := []Row{{Employee: emp, Record: payroll.PayrollRecord{EmployeeID: "emp-3", BasicPay: d("260000")}}}
		report := ComputeBIR2316(2026, emp, settings, rows)
		assertDecimal(t, "260000", report.BasicTaxable)
		assertDecimal(t, "0", report.BasicExempt)
	})
}

func TestMasterRegisterSplitsHolidayPremiums(t *testing.T) {
	settings := payroll.DefaultOrgSettings("org-1")
	santos := employee("emp-1", "Santos", "Maria", "Kitchen", "20000")
	reyesLuz := employee("emp-2", "Reyes", "Luz", "Bar", "20000")
	reyesAna := employee("emp-3", "Reyes", "Ana", "Bar", "20000")
	rows := []Row{
		{Employee: santos, Record: payroll.PayrollRecord{EmployeeID: "emp-1", Inputs: payroll.PayPeriodInputs{RegHolidayOTHours: d("1"), RegHolidayNDHours: d("1")}}},
		{Employee: reyesLuz, Record: payroll.PayrollRecord{EmployeeID: "emp-2"}},
		{Employee: reyesAna, Record: payroll.PayrollRecord{EmployeeID: "emp-3"}},
	}

	out, err := MasterRegister(rows, settings)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "emp-3", out[0].Employee.ID)
	assert.Equal(t, "emp-2", out[1].Employee.ID)
	assert.Equal(t, "emp-1", out[2].Employee.ID)
	assertDecimal(t, "249.20", out[2].HolidayOTPay)
	assertDecimal(t, "19.17", out[2].HolidayNDPay)

	settings.WorkingDaysPerYear = decimal.Zero
	_, err = MasterRegister(rows, settings)
	assert.ErrorIs(t, err, payroll.ErrInvalidWorkingDays)
}
