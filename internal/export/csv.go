package export

import (
	"encoding/csv"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"phpayroll/internal/domain/reports"
)

type thirteenthMonthCSV struct {
	IDNumber   string `csv:"ID_Number"`
	Name       string `csv:"Employee"`
	Department string `csv:"Department"`
	TotalBasic string `csv:"Total_Basic_Pay"`
	Amount     string `csv:"Thirteenth_Month_Pay"`
}

func WriteThirteenthMonthCSV(w io.Writer, rows []reports.ThirteenthMonth) error {
	out := make([]thirteenthMonthCSV, 0, len(rows))
	for _, row := range rows {
		out = append(out, thirteenthMonthCSV{
			IDNumber:   row.IDNumber,
			Name:       row.Name,
			Department: row.Department,
			TotalBasic: plain(row.TotalBasic),
			Amount:     plain(row.Amount),
		})
	}
	return gocsv.Marshal(&out, w)
}

type monthlyDeductionCSV struct {
	IDNumber   string `csv:"ID_Number"`
	Name       string `csv:"Employee"`
	Department string `csv:"Department"`
	SSS        string `csv:"SSS"`
	PhilHealth string `csv:"PhilHealth"`
	PagIBIG    string `csv:"Pag_IBIG"`
	Tax        string `csv:"Withholding_Tax"`
	Late       string `csv:"Late_Undertime"`
	Loan       string `csv:"Loan"`
	Other      string `csv:"Other_Deductions"`
	Total      string `csv:"Total"`
}

func WriteMonthlyDeductionsCSV(w io.Writer, rows []reports.MonthlyDeduction) error {
	out := make([]monthlyDeductionCSV, 0, len(rows))
	for _, row := range rows {
		other := decimal.Zero
		for _, value := range row.CustomDeductions {
			other = other.Add(value)
		}
		out = append(out, monthlyDeductionCSV{
			IDNumber:   row.IDNumber,
			Name:       row.Name,
			Department: row.Department,
			SSS:        plain(row.SSS),
			PhilHealth: plain(row.PhilHealth),
			PagIBIG:    plain(row.PagIBIG),
			Tax:        plain(row.Tax),
			Late:       plain(row.Late),
			Loan:       plain(row.Loan),
			Other:      plain(other),
			Total:      plain(row.Total),
		})
	}
	return gocsv.Marshal(&out, w)
}

// WriteMasterRegisterCSV writes one line per record. Enabled addition and
// deduction labels become their own columns, so the header is built per organization.
func WriteMasterRegisterCSV(w io.Writer, register reports.Register) error {
	header := []string{"Last Name", "First Name", "Department", "Days Worked", "Basic Pay", "OT Pay", "ND Pay", "Holiday Pay", "Holiday OT", "Holiday ND"}
	for _, label := range register.AdditionLabels {
		header = append(header, label.Label)
	}
	header = append(header, "Gross Pay", "SSS", "PhilHealth", "Pag-IBIG", "Tax", "Late/Undertime", "Loan")
	for _, label := range register.DeductionLabels {
		header = append(header, label.Label)
	}
	header = append(header, "Net Pay")

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range register.Rows {
		r := row.Record
		line := []string{
			row.Employee.LastName, row.Employee.FirstName, r.Department, r.Inputs.DaysWorked.String(),
			plain(r.BasicPay), plain(r.OTPay), plain(r.NDPay), plain(r.HolidayPay), plain(row.HolidayOTPay), plain(row.HolidayNDPay),
		}
		for _, label := range register.AdditionLabels {
			line = append(line, plain(slotValue(r.CustomAdditions, label.Index)))
		}
		line = append(line, plain(r.GrossPay), plain(r.SSSDeduction), plain(r.PhilHealthDeduction), plain(r.PagIBIGDeduction),
			plain(r.TaxDeduction), plain(r.TimeDeduction), plain(r.LoanDeduction))
		for _, label := range register.DeductionLabels {
			line = append(line, plain(slotValue(r.CustomDeductions, label.Index)))
		}
		line = append(line, plain(r.NetPay))
		if err := writer.Write(line); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
