package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"phpayroll/internal/domain/payroll"
	"phpayroll/internal/domain/reports"
	"phpayroll/internal/platform/crypto"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testSettings() payroll.OrgSettings {
	settings := payroll.DefaultOrgSettings("org-1")
	settings.Name = "Kusina ni Peñaflor"
	settings.AdditionSlots[0] = payroll.Slot{Label: "Allowance", Enabled: true}
	settings.DeductionSlots[1] = payroll.Slot{Label: "Uniform", Enabled: true}
	return settings
}

func testRecord() payroll.PayrollRecord {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return payroll.PayrollRecord{
		ID:               "rec-1",
		OrgID:            "org-1",
		EmployeeID:       "emp-1",
		Department:       "Kitchen",
		PeriodStart:      start,
		PeriodEnd:        start.AddDate(0, 0, 14),
		BasicPay:         d("10000"),
		GrossPay:         d("10500"),
		SSSDeduction:     d("500"),
		TaxDeduction:     d("0"),
		NetPay:           d("9800"),
		CustomAdditions:  []decimal.Decimal{d("500")},
		CustomDeductions: []decimal.Decimal{d("0"), d("200")},
	}
}

func testEmployee() payroll.Employee {
	return payroll.Employee{ID: "emp-1", IDNumber: "1001", FirstName: "José", LastName: "Peñaflor", Department: "Kitchen", SalaryRate: d("20000")}
}

func TestAmountGroupsThousands(t *testing.T) {
	assert.Contains(t, Amount(d("1234.5")), "234.50")
	assert.Equal(t, "PHP 0.00", Peso(decimal.Zero))
	assert.Equal(t, "1234.50", plain(d("1234.5")))
}

func TestWritePayslipsPDF(t *testing.T) {
	var buf bytes.Buffer
	err := WritePayslipsPDF(&buf, []Payslip{{Settings: testSettings(), Employee: testEmployee(), Record: testRecord()}})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	err = WritePayslipsPDF(&buf, nil)
	assert.ErrorIs(t, err, ErrNothingToRender)
}

func TestPayslipFilesWritesUnderOrganization(t *testing.T) {
	files := PayslipFiles{Dir: t.TempDir()}
	path, err := files.WritePayslip(context.Background(), testSettings(), testEmployee(), testRecord())
	require.NoError(t, err)
	assert.Equal(t, files.Path("org-1", "rec-1"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestPayslipFilesSealsWithCipher(t *testing.T) {
	cipher, err := crypto.New("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	files := PayslipFiles{Dir: t.TempDir(), Cipher: cipher}

	path, err := files.WritePayslip(context.Background(), testSettings(), testEmployee(), testRecord())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "rec-1.pdf.enc"))
	_, err = os.Stat(strings.TrimSuffix(path, ".enc"))
	assert.True(t, errors.Is(err, fs.ErrNotExist), "no plaintext copy")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o600), info.Mode().Perm())

	sealed, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.HasPrefix(sealed, []byte("%PDF")))

	plain, err := files.ReadPayslip("org-1", "rec-1")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(plain, []byte("%PDF")))

	require.NoError(t, os.Rename(path, files.Path("org-1", "rec-2")))
	_, err = files.ReadPayslip("org-1", "rec-2")
	assert.Error(t, err)

	_, err = files.ReadPayslip("org-1", "rec-404")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestPayslipFilesLeavesNothingOnRenderFailure(t *testing.T) {
	dir := t.TempDir()
	files := PayslipFiles{Dir: dir, render: func(w io.Writer, _ []Payslip) error {
		_, _ = w.Write([]byte("%PDF-1.3 trunc"))
		return errors.New("font missing")
	}}
	_, err := files.WritePayslip(context.Background(), testSettings(), testEmployee(), testRecord())
	require.Error(t, err)

	_, err = os.Stat(files.Path("org-1", "rec-1"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	leftovers, err := filepath.Glob(filepath.Join(dir, "org-1", "*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestPayslipFilesHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := PayslipFiles{Dir: t.TempDir()}.WritePayslip(ctx, testSettings(), testEmployee(), testRecord())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBIR2316Workbook(t *testing.T) {
	report := reports.BIR2316{
		Year:            2026,
		Employee:        testEmployee(),
		EmployerName:    "Kusina",
		TotalNonTaxable: d("98100"),
		TaxWithheld:     d("0"),
	}
	var buf bytes.Buffer
	require.NoError(t, WriteBIR2316(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(bir2316Sheet)
	require.NoError(t, err)

	var found bool
	for _, row := range rows {
		if len(row) >= 3 && row[0] == "38" {
			found = true
			assert.Equal(t, "Total Non-Taxable/Exempt Compensation", row[1])
			assert.Equal(t, "98100", row[2])
		}
	}
	assert.True(t, found, "line 38 missing")
}

func TestWriteThirteenthMonthCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteThirteenthMonthCSV(&buf, []reports.ThirteenthMonth{
		{IDNumber: "1001", Name: "Peñaflor, José", Department: "Kitchen", TotalBasic: d("34500"), Amount: d("2875")},
	})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID_Number,Employee,Department,Total_Basic_Pay,Thirteenth_Month_Pay", lines[0])
	assert.Equal(t, `1001,"Peñaflor, José",Kitchen,34500.00,2875.00`, lines[1])
}

func TestWriteMonthlyDeductionsCSVSumsCustomSlots(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMonthlyDeductionsCSV(&buf, []reports.MonthlyDeduction{{
		IDNumber:         "1001",
		Name:             "Cruz",
		SSS:              d("500"),
		CustomDeductions: []decimal.Decimal{d("100"), d("50.5")},
		Total:            d("650.5"),
	}})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID_Number,Employee,Department,SSS"))
	assert.True(t, strings.HasSuffix(lines[1], ",150.50,650.50"))
}

func TestWriteMasterRegisterCSVAddsLabelColumns(t *testing.T) {
	settings := testSettings()
	register := reports.Register{
		AdditionLabels:  settings.ActiveAdditionLabels(),
		DeductionLabels: settings.ActiveDeductionLabels(),
		Rows:            []reports.RegisterRow{{Employee: testEmployee(), Record: testRecord()}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteMasterRegisterCSV(&buf, register))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Holiday ND,Allowance,Gross Pay")
	assert.Contains(t, lines[0], "Loan,Uniform,Net Pay")
	assert.True(t, strings.HasSuffix(lines[1], ",200.00,9800.00"))
}

func TestAttendanceTemplateRoundTrip(t *testing.T) {
	settings := testSettings()
	in := payroll.PayPeriodInputs{
		DaysWorked:       d("13"),
		OTHours:          d("2.5"),
		LateMinutes:      15,
		RegHolidayDays:   d("1"),
		CustomAdditions:  []decimal.Decimal{d("500"), decimal.Zero, decimal.Zero},
		CustomDeductions: []decimal.Decimal{decimal.Zero, d("200"), decimal.Zero},
	}
	var buf bytes.Buffer
	err := WriteAttendanceTemplate(&buf, settings, []payroll.RunEntry{{Employee: testEmployee(), Inputs: in}})
	require.NoError(t, err)

	parsed, err := ParseAttendance(&buf, settings)
	require.NoError(t, err)
	require.Contains(t, parsed, "1001")
	got := parsed["1001"]
	assert.True(t, got.DaysWorked.Equal(d("13")))
	assert.True(t, got.OTHours.Equal(d("2.5")))
	assert.Equal(t, 15, got.LateMinutes)
	assert.True(t, got.RegHolidayDays.Equal(d("1")))
	assert.True(t, got.CustomAdditions[0].Equal(d("500")))
	assert.True(t, got.CustomDeductions[1].Equal(d("200")))
	assert.Len(t, got.CustomDeductions, len(settings.DeductionSlots))
}

func TestParseAttendance(t *testing.T) {
	settings := testSettings()
	header := strings.Join(AttendanceHeader(settings), ",")

	t.Run("blank cells are zero", func(t *testing.T) {
		body := header + "\n1002,Cruz,Ana,12,,,,,,,,,,,,,\n,,,,,,,,,,,,,,,,\n"
		parsed, err := ParseAttendance(strings.NewReader(body), settings)
		require.NoError(t, err)
		require.Len(t, parsed, 1)
		assert.True(t, parsed["1002"].DaysWorked.Equal(d("12")))
		assert.True(t, parsed["1002"].OTHours.IsZero())
	})

	t.Run("invalid number", func(t *testing.T) {
		body := header + "\n1002,Cruz,Ana,twelve\n"
		_, err := ParseAttendance(strings.NewReader(body), settings)
		assert.ErrorIs(t, err, ErrInvalidCell)
	})

	t.Run("wrong header", func(t *testing.T) {
		_, err := ParseAttendance(strings.NewReader("Name,Days\nCruz,12\n"), settings)
		assert.ErrorIs(t, err, ErrInvalidHeader)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := ParseAttendance(strings.NewReader(""), settings)
		assert.ErrorIs(t, err, ErrInvalidHeader)
	})

	t.Run("last duplicate wins", func(t *testing.T) {
		body := header + "\n1002,Cruz,Ana,10\n1002,Cruz,Ana,11\n"
		parsed, err := ParseAttendance(strings.NewReader(body), settings)
		require.NoError(t, err)
		assert.True(t, parsed["1002"].DaysWorked.Equal(d("11")))
	})

	t.Run("shared addition and deduction label", func(t *testing.T) {
		shared := testSettings()
		shared.AdditionSlots[0] = payroll.Slot{Label: "Meal", Enabled: true}
		shared.DeductionSlots[1] = payroll.Slot{Label: "Meal", Enabled: true}
		sharedHeader := strings.Join(AttendanceHeader(shared), ",")
		body := sharedHeader + "\n1002,Cruz,Ana,10,,,,,,,,,,,,100,40\n"
		parsed, err := ParseAttendance(strings.NewReader(body), shared)
		require.NoError(t, err)
		assert.True(t, parsed["1002"].CustomAdditions[0].Equal(d("100")))
		assert.True(t, parsed["1002"].CustomDeductions[1].Equal(d("40")))
	})
}
