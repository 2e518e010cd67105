package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"phpayroll/internal/domain/payroll"
	"phpayroll/internal/platform/crypto"
)

const dateLayout = "Jan 2, 2006"

// Payslip is everything one payslip page shows.
type Payslip struct {
	Settings payroll.OrgSettings
	Employee payroll.Employee
	Record   payroll.PayrollRecord
}

type line struct {
	label  string
	amount decimal.Decimal
}

// WritePayslipsPDF renders one page per payslip into w.
func WritePayslipsPDF(w io.Writer, slips []Payslip) error {
	if len(slips) == 0 {
		return ErrNothingToRender
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Payslips", false)
	for _, slip := range slips {
		addPayslipPage(pdf, slip)
	}
	return pdf.Output(w)
}

func addPayslipPage(pdf *gofpdf.Fpdf, slip Payslip) {
	record := slip.Record
	// Core fonts are cp1252; names such as Peñaflor need translating.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, tr(slip.Settings.Name), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "PAYSLIP", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(95, 6, "Employee: "+tr(slip.Employee.DisplayName()))
	pdf.Cell(95, 6, "ID No.: "+slip.Employee.IDNumber)
	pdf.Ln(6)
	pdf.Cell(95, 6, "Department: "+tr(record.Department))
	pdf.Cell(95, 6, fmt.Sprintf("Period: %s - %s", record.PeriodStart.Format(dateLayout), record.PeriodEnd.Format(dateLayout)))
	pdf.Ln(10)

	earnings := []line{
		{"Basic Pay", record.BasicPay},
		{"Overtime", record.OTPay},
		{"Night Differential", record.NDPay},
		{"Holiday / Rest Day", record.HolidayPay},
	}
	for _, label := range slip.Settings.ActiveAdditionLabels() {
		earnings = append(earnings, line{tr(label.Label), slotValue(record.CustomAdditions, label.Index)})
	}
	deductions := []line{
		{"SSS", record.SSSDeduction},
		{"PhilHealth", record.PhilHealthDeduction},
		{"Pag-IBIG", record.PagIBIGDeduction},
		{"Withholding Tax", record.TaxDeduction},
		{"Late / Undertime", record.TimeDeduction},
		{"Loan (Vale)", record.LoanDeduction},
	}
	for _, label := range slip.Settings.ActiveDeductionLabels() {
		deductions = append(deductions, line{tr(label.Label), slotValue(record.CustomDeductions, label.Index)})
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(95, 7, "EARNINGS", "B", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, "DEDUCTIONS", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	rows := len(earnings)
	if len(deductions) > rows {
		rows = len(deductions)
	}
	for i := 0; i < rows; i++ {
		writeLine(pdf, earnings, i)
		writeLine(pdf, deductions, i)
		pdf.Ln(6)
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(60, 7, "Gross Pay", "T", 0, "L", false, 0, "")
	pdf.CellFormat(35, 7, Amount(record.GrossPay), "T", 0, "R", false, 0, "")
	pdf.CellFormat(60, 7, "Total Deductions", "T", 0, "L", false, 0, "")
	pdf.CellFormat(35, 7, Amount(record.TotalDeductions()), "T", 1, "R", false, 0, "")
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(155, 9, "NET PAY", "1", 0, "L", false, 0, "")
	pdf.CellFormat(35, 9, Peso(record.NetPay), "1", 1, "R", false, 0, "")
}

func writeLine(pdf *gofpdf.Fpdf, lines []line, i int) {
	if i >= len(lines) {
		pdf.CellFormat(95, 6, "", "", 0, "L", false, 0, "")
		return
	}
	pdf.CellFormat(60, 6, lines[i].label, "", 0, "L", false, 0, "")
	pdf.CellFormat(35, 6, Amount(lines[i].amount), "", 0, "R", false, 0, "")
}

func slotValue(values []decimal.Decimal, index int) decimal.Decimal {
	if index < 0 || index >= len(values) {
		return decimal.Zero
	}
	return values[index]
}

// PayslipFiles archives payslips under Dir/<organization>/<record>.pdf. With
// a configured Cipher the files are sealed and carry an .enc suffix.
type PayslipFiles struct {
	Dir    string
	Cipher *crypto.Service

	render func(io.Writer, []Payslip) error
}

func (p PayslipFiles) Path(orgID, recordID string) string {
	path := filepath.Join(p.Dir, orgID, recordID+".pdf")
	if p.Cipher.Configured() {
		path += ".enc"
	}
	return path
}

func (p PayslipFiles) WritePayslip(ctx context.Context, settings payroll.OrgSettings, emp payroll.Employee, record payroll.PayrollRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	render := p.render
	if render == nil {
		render = WritePayslipsPDF
	}
	var buf bytes.Buffer
	if err := render(&buf, []Payslip{{Settings: settings, Employee: emp, Record: record}}); err != nil {
		return "", err
	}
	data := buf.Bytes()
	if p.Cipher.Configured() {
		sealed, err := p.Cipher.Encrypt(data, sealingContext(record.OrgID, record.ID))
		if err != nil {
			return "", err
		}
		data = sealed
	}
	path := p.Path(record.OrgID, record.ID)
	if err := replaceFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// ReadPayslip returns the archived PDF of a record. A missing archive reports
// an error matching fs.ErrNotExist.
func (p PayslipFiles) ReadPayslip(orgID, recordID string) ([]byte, error) {
	data, err := os.ReadFile(p.Path(orgID, recordID))
	if err != nil {
		return nil, err
	}
	if !p.Cipher.Configured() {
		return data, nil
	}
	plain, err := p.Cipher.Decrypt(data, sealingContext(orgID, recordID))
	if err != nil {
		return nil, fmt.Errorf("open payslip %s: %w", recordID, err)
	}
	return plain, nil
}

func sealingContext(orgID, recordID string) []byte {
	return []byte(orgID + "/" + recordID)
}

// replaceFile writes data next to path and renames it into place, so readers
// never see a partial file.
func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".payslip-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
