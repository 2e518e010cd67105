package reports

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"phpayroll/internal/domain/payroll"
)

var (
	// ExemptAnnualThreshold is the annual compensation at or below which pay is tax exempt.
	ExemptAnnualThreshold = decimal.NewFromInt(250000)
	// NonTaxable13thCap is the part of 13th month and other benefits excluded from tax.
	NonTaxable13thCap = decimal.NewFromInt(90000)

	monthsPerYear = decimal.NewFromInt(payroll.MonthsPerYear)
)

// Row is a finalized record joined with the employee it belongs to.
type Row struct {
	Record   payroll.PayrollRecord
	Employee payroll.Employee
}

type MonthlyDeduction struct {
	EmployeeID       string            `json:"employeeId"`
	IDNumber         string            `json:"idNumber"`
	Name             string            `json:"name"`
	Department       string            `json:"department"`
	SSS              decimal.Decimal   `json:"sss"`
	PhilHealth       decimal.Decimal   `json:"philhealth"`
	PagIBIG          decimal.Decimal   `json:"pagibig"`
	Tax              decimal.Decimal   `json:"tax"`
	Late             decimal.Decimal   `json:"late"`
	Loan             decimal.Decimal   `json:"loan"`
	CustomDeductions []decimal.Decimal `json:"customDeductions"`
	Total            decimal.Decimal   `json:"total"`
}

// MonthlyDeductions sums deduction fields per employee and sorts by name. An
// empty department or "All" keeps every department.
func MonthlyDeductions(rows []Row, department string) []MonthlyDeduction {
	byEmployee := map[string]*MonthlyDeduction{}
	for _, row := range rows {
		dept := row.Record.Department
		if dept == "" {
			dept = row.Employee.DepartmentOrDefault()
		}
		if !matchesDepartment(dept, department) {
			continue
		}
		entry, ok := byEmployee[row.Record.EmployeeID]
		if !ok {
			entry = &MonthlyDeduction{
				EmployeeID: row.Record.EmployeeID,
				IDNumber:   row.Employee.IDNumber,
				Name:       row.Employee.DisplayName(),
				Department: dept,
			}
			byEmployee[row.Record.EmployeeID] = entry
		}
		entry.SSS = entry.SSS.Add(row.Record.SSSDeduction)
		entry.PhilHealth = entry.PhilHealth.Add(row.Record.PhilHealthDeduction)
		entry.PagIBIG = entry.PagIBIG.Add(row.Record.PagIBIGDeduction)
		entry.Tax = entry.Tax.Add(row.Record.TaxDeduction)
		entry.Late = entry.Late.Add(row.Record.TimeDeduction)
		entry.Loan = entry.Loan.Add(row.Record.LoanDeduction)
		for i, value := range row.Record.CustomDeductions {
			for len(entry.CustomDeductions) <= i {
				entry.CustomDeductions = append(entry.CustomDeductions, decimal.Zero)
			}
			entry.CustomDeductions[i] = entry.CustomDeductions[i].Add(value)
		}
	}

	out := make([]MonthlyDeduction, 0, len(byEmployee))
	for _, entry := range byEmployee {
		entry.Total = entry.SSS.Add(entry.PhilHealth).Add(entry.PagIBIG).Add(entry.Tax).Add(entry.Late).Add(entry.Loan)
		for _, value := range entry.CustomDeductions {
			entry.Total = entry.Total.Add(value)
		}
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out
}

// Departments lists the distinct departments present in rows, sorted.
func Departments(rows []Row) []string {
	seen := map[string]struct{}{}
	for _, row := range rows {
		dept := row.Record.Department
		if dept == "" {
			dept = row.Employee.DepartmentOrDefault()
		}
		seen[dept] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for dept := range seen {
		out = append(out, dept)
	}
	sort.Strings(out)
	return out
}

type ThirteenthMonth struct {
	EmployeeID string          `json:"employeeId"`
	IDNumber   string          `json:"idNumber"`
	Name       string          `json:"name"`
	Department string          `json:"department"`
	TotalBasic decimal.Decimal `json:"totalBasic"`
	Amount     decimal.Decimal `json:"thirteenthMonthPay"`
}

// ThirteenthMonthPay is the year's basic pay divided by twelve per employee.
// Employees without basic pay are left out.
func ThirteenthMonthPay(employees []payroll.Employee, rows []Row) []ThirteenthMonth {
	totals := map[string]decimal.Decimal{}
	for _, row := range rows {
		totals[row.Record.EmployeeID] = totals[row.Record.EmployeeID].Add(row.Record.BasicPay)
	}
	out := make([]ThirteenthMonth, 0, len(employees))
	for _, emp := range employees {
		total := totals[emp.ID]
		if !total.IsPositive() {
			continue
		}
		out = append(out, ThirteenthMonth{
			EmployeeID: emp.ID,
			IDNumber:   emp.IDNumber,
			Name:       emp.DisplayName(),
			Department: emp.DepartmentOrDefault(),
			TotalBasic: payroll.Round2(total),
			Amount:     payroll.Round2(total.Div(monthsPerYear)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

type BIR1601C struct {
	Year                   int             `json:"year"`
	Month                  int             `json:"month"`
	Records                int             `json:"records"`
	TotalCompensation      decimal.Decimal `json:"totalCompensation"`
	TotalNonTaxable        decimal.Decimal `json:"totalNonTaxable"`
	TaxableCompensation    decimal.Decimal `json:"taxableCompensation"`
	TotalExempt            decimal.Decimal `json:"totalExempt"`
	NetTaxableCompensation decimal.Decimal `json:"netTaxableCompensation"`
	TaxDue                 decimal.Decimal `json:"taxDue"`
	AmountRemittable       decimal.Decimal `json:"amountRemittable"`
}

// ComputeBIR1601C totals one month of records. A record whose employee earns
// at most the exempt threshold per year moves its net compensation into the
// exempt bucket.
func ComputeBIR1601C(year, month int, rows []Row) BIR1601C {
	report := BIR1601C{Year: year, Month: month, Records: len(rows)}
	compensation, nonTaxable, exempt, tax := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for _, row := range rows {
		statutory := row.Record.StatutoryTotal()
		compensation = compensation.Add(row.Record.GrossPay)
		nonTaxable = nonTaxable.Add(statutory)
		tax = tax.Add(row.Record.TaxDeduction)
		if row.Employee.SalaryRate.Mul(monthsPerYear).LessThanOrEqual(ExemptAnnualThreshold) {
			exempt = exempt.Add(row.Record.GrossPay.Sub(statutory))
		}
	}
	taxable := compensation.Sub(nonTaxable)
	report.TotalCompensation = payroll.Round2(compensation)
	report.TotalNonTaxable = payroll.Round2(nonTaxable)
	report.TaxableCompensation = payroll.Round2(taxable)
	report.TotalExempt = payroll.Round2(exempt)
	report.NetTaxableCompensation = payroll.Round2(taxable.Sub(exempt))
	report.TaxDue = payroll.Round2(tax)
	report.AmountRemittable = report.TaxDue
	return report
}

type BIR2316 struct {
	Year         int              `json:"year"`
	Employee     payroll.Employee `json:"employee"`
	EmployerName string           `json:"employerName"`
	EmployerTIN  string           `json:"employerTin"`
	Records      int              `json:"records"`

	TotalBasic    decimal.Decimal `json:"totalBasic"`
	HolidayPay    decimal.Decimal `json:"holidayPay"`
	OvertimePay   decimal.Decimal `json:"overtimePay"`
	NightDiffPay  decimal.Decimal `json:"nightDiffPay"`
	SSS           decimal.Decimal `json:"sss"`
	PhilHealth    decimal.Decimal `json:"philhealth"`
	PagIBIG       decimal.Decimal `json:"pagibig"`
	Contributions decimal.Decimal `json:"contributions"`

	ThirteenthMonth decimal.Decimal `json:"thirteenthMonth"`
	NonTaxable13th  decimal.Decimal `json:"nonTaxable13th"`
	Taxable13th     decimal.Decimal `json:"taxable13th"`
	BasicExempt     decimal.Decimal `json:"basicExempt"`
	BasicTaxable    decimal.Decimal `json:"basicTaxable"`
	TotalNonTaxable decimal.Decimal `json:"totalNonTaxable"`
	TotalTaxable    decimal.Decimal `json:"totalTaxable"`
	TaxDue          decimal.Decimal `json:"taxDue"`
	TaxWithheld     decimal.Decimal `json:"taxWithheld"`
}

// ComputeBIR2316 builds the annual certificate figures for one employee. Basic
// pay is exempt when the annual rate is within the threshold; without a salary
// rate the year's basic pay is tested instead.
func ComputeBIR2316(year int, emp payroll.Employee, settings payroll.OrgSettings, rows []Row) BIR2316 {
	report := BIR2316{Year: year, Employee: emp, EmployerName: settings.Name, EmployerTIN: settings.TIN}
	basic, holiday, ot, nd := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	sss, ph, pi, tax := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for _, row := range rows {
		if row.Record.EmployeeID != emp.ID {
			continue
		}
		report.Records++
		basic = basic.Add(row.Record.BasicPay)
		holiday = holiday.Add(row.Record.HolidayPay)
		ot = ot.Add(row.Record.OTPay)
		nd = nd.Add(row.Record.NDPay)
		sss = sss.Add(row.Record.SSSDeduction)
		ph = ph.Add(row.Record.PhilHealthDeduction)
		pi = pi.Add(row.Record.PagIBIGDeduction)
		tax = tax.Add(row.Record.TaxDeduction)
	}

	thirteenth := basic.Div(monthsPerYear)
	nonTaxable13th := decimal.Min(thirteenth, NonTaxable13thCap)
	taxable13th := decimal.Max(thirteenth.Sub(NonTaxable13thCap), decimal.Zero)

	annual := emp.SalaryRate.Mul(monthsPerYear)
	if !emp.SalaryRate.IsPositive() {
		annual = basic
	}
	basicExempt, basicTaxable := decimal.Zero, decimal.Zero
	if annual.LessThanOrEqual(ExemptAnnualThreshold) {
		basicExempt = basic
	} else {
		basicTaxable = basic
	}

	contributions := sss.Add(ph).Add(pi)
	report.TotalBasic = payroll.Round2(basic)
	report.HolidayPay = payroll.Round2(holiday)
	report.OvertimePay = payroll.Round2(ot)
	report.NightDiffPay = payroll.Round2(nd)
	report.SSS = payroll.Round2(sss)
	report.PhilHealth = payroll.Round2(ph)
	report.PagIBIG = payroll.Round2(pi)
	report.Contributions = payroll.Round2(contributions)
	report.ThirteenthMonth = payroll.Round2(thirteenth)
	report.NonTaxable13th = payroll.Round2(nonTaxable13th)
	report.Taxable13th = payroll.Round2(taxable13th)
	report.BasicExempt = payroll.Round2(basicExempt)
	report.BasicTaxable = payroll.Round2(basicTaxable)
	report.TotalNonTaxable = payroll.Round2(basicExempt.Add(holiday).Add(ot).Add(nd).Add(nonTaxable13th).Add(contributions))
	report.TotalTaxable = payroll.Round2(basicTaxable.Add(taxable13th))
	report.TaxDue = payroll.Round2(tax)
	report.TaxWithheld = report.TaxDue
	return report
}

// RegisterRow is one line of the master payroll register.
type RegisterRow struct {
	Employee     payroll.Employee      `json:"employee"`
	Record       payroll.PayrollRecord `json:"record"`
	HolidayOTPay decimal.Decimal       `json:"holidayOtPay"`
	HolidayNDPay decimal.Decimal       `json:"holidayNdPay"`
}

// MasterRegister sorts rows by last then first name and splits the holiday
// overtime and night differential amounts out of the stored hours.
func MasterRegister(rows []Row, settings payroll.OrgSettings) ([]RegisterRow, error) {
	out := make([]RegisterRow, 0, len(rows))
	for _, row := range rows {
		rates, err := payroll.ResolveRates(row.Employee.SalaryRate, settings.WorkingDaysPerYear)
		if err != nil {
			return nil, err
		}
		premiums := payroll.ComputeHolidayPremiums(rates, row.Record.Inputs)
		out = append(out, RegisterRow{
			Employee:     row.Employee,
			Record:       row.Record,
			HolidayOTPay: payroll.Round2(premiums.Overtime),
			HolidayNDPay: payroll.Round2(premiums.NightDiff),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Employee, out[j].Employee
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		return a.FirstName < b.FirstName
	})
	return out, nil
}

func matchesDepartment(dept, filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" || strings.EqualFold(filter, "all") {
		return true
	}
	return dept == filter
}
