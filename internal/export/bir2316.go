package export

import (
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"phpayroll/internal/domain/reports"
)

const bir2316Sheet = "BIR 2316"

// BIR2316Workbook lays the certificate figures out with their form line numbers.
func BIR2316Workbook(report reports.BIR2316) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", bir2316Sheet); err != nil {
		f.Close()
		return nil, err
	}

	emp := report.Employee
	rows := [][]any{
		{"BIR Form 2316", "Certificate of Compensation Payment / Tax Withheld", report.Year},
		{},
		{"Part I", "Employee Information"},
		{"", "TIN", emp.TIN},
		{"", "Last Name", emp.LastName},
		{"", "First Name", emp.FirstName},
		{"", "Middle Name", emp.MiddleName},
		{"", "Registered Address", emp.Address},
		{"", "Zip Code", emp.ZipCode},
		{},
		{"Part II", "Employer Information"},
		{"", "TIN", report.EmployerTIN},
		{"", "Employer Name", report.EmployerName},
		{},
		{"Part IV-B", "Non-Taxable/Exempt Compensation"},
		amountRow("29", "Basic Salary (Minimum Wage / Exempt)", report.BasicExempt),
		amountRow("30", "Holiday Pay", report.HolidayPay),
		amountRow("31", "Overtime Pay", report.OvertimePay),
		amountRow("32", "Night Shift Differential", report.NightDiffPay),
		amountRow("34", "13th Month Pay and Other Benefits", report.NonTaxable13th),
		amountRow("36", "SSS, GSIS, PHIC and Pag-IBIG Contributions", report.Contributions),
		amountRow("38", "Total Non-Taxable/Exempt Compensation", report.TotalNonTaxable),
		{},
		{"Part IV-B", "Taxable Compensation"},
		amountRow("39", "Basic Salary", report.BasicTaxable),
		amountRow("40", "13th Month Pay and Other Benefits", report.Taxable13th),
		amountRow("50", "Total Taxable Compensation", report.TotalTaxable),
		{},
		amountRow("51", "Tax Due", report.TaxDue),
		amountRow("52", "Amount of Taxes Withheld", report.TaxWithheld),
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(bir2316Sheet, cell, &rows[i]); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := f.SetColWidth(bir2316Sheet, "A", "A", 12); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetColWidth(bir2316Sheet, "B", "B", 48); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetColWidth(bir2316Sheet, "C", "C", 20); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func WriteBIR2316(w io.Writer, report reports.BIR2316) error {
	f, err := BIR2316Workbook(report)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func amountRow(lineNo, label string, value decimal.Decimal) []any {
	return []any{lineNo, label, value.Round(2).InexactFloat64()}
}
