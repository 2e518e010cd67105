package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"phpayroll/internal/domain/payroll"
)

// AttendanceColumns is the fixed leading part of the attendance template.
var AttendanceColumns = []string{
	"ID_Number", "LastName", "FirstName", "DaysWorked", "OT_Hours", "ND_Hours",
	"Late_Mins", "Undertime_Mins", "Reg_Hol_Days", "Reg_Hol_OT", "Reg_Hol_ND",
	"Spec_Hol_Days", "Spec_Hol_OT", "Spec_Hol_ND", "Rest_Day_Hrs",
}

// AttendanceHeader is the fixed columns followed by the enabled addition
// labels, then the enabled deduction labels.
func AttendanceHeader(settings payroll.OrgSettings) []string {
	header := append([]string(nil), AttendanceColumns...)
	for _, label := range settings.ActiveAdditionLabels() {
		header = append(header, label.Label)
	}
	for _, label := range settings.ActiveDeductionLabels() {
		header = append(header, label.Label)
	}
	return header
}

// WriteAttendanceTemplate writes one row per run entry with its current draft values.
func WriteAttendanceTemplate(w io.Writer, settings payroll.OrgSettings, entries []payroll.RunEntry) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(AttendanceHeader(settings)); err != nil {
		return err
	}
	for _, entry := range entries {
		in := entry.Inputs
		row := []string{
			entry.Employee.IDNumber, entry.Employee.LastName, entry.Employee.FirstName,
			in.DaysWorked.String(), in.OTHours.String(), in.NDHours.String(),
			fmt.Sprint(in.LateMinutes), fmt.Sprint(in.UndertimeMinutes),
			in.RegHolidayDays.String(), in.RegHolidayOTHours.String(), in.RegHolidayNDHours.String(),
			in.SpecHolidayDays.String(), in.SpecHolidayOTHours.String(), in.SpecHolidayNDHours.String(),
			in.RestDayHours.String(),
		}
		for _, label := range settings.ActiveAdditionLabels() {
			row = append(row, slotValue(in.CustomAdditions, label.Index).String())
		}
		for _, label := range settings.ActiveDeductionLabels() {
			row = append(row, slotValue(in.CustomDeductions, label.Index).String())
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ParseAttendance reads a filled template into inputs keyed by ID_Number.
// Blank cells count as zero. Label columns are matched by header name, so a
// sheet exported before a label was renamed keeps working for the others.
func ParseAttendance(r io.Reader, settings payroll.OrgSettings) (map[string]payroll.PayPeriodInputs, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrInvalidHeader
	}
	if err != nil {
		return nil, err
	}
	if len(header) < len(AttendanceColumns) {
		return nil, ErrInvalidHeader
	}
	for i, name := range AttendanceColumns {
		if !strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")), name) {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrInvalidHeader, i+1, header[i], name)
		}
	}

	claimed := map[int]bool{}
	additionCols := labelColumns(header, settings.ActiveAdditionLabels(), claimed)
	deductionCols := labelColumns(header, settings.ActiveDeductionLabels(), claimed)

	out := map[string]payroll.PayPeriodInputs{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		idNumber := strings.TrimSpace(cell(record, 0))
		if idNumber == "" {
			continue
		}

		p := cellParser{record: record, header: header, line: line}
		in := payroll.PayPeriodInputs{
			DaysWorked:         p.decimal(3),
			OTHours:            p.decimal(4),
			NDHours:            p.decimal(5),
			LateMinutes:        p.minutes(6),
			UndertimeMinutes:   p.minutes(7),
			RegHolidayDays:     p.decimal(8),
			RegHolidayOTHours:  p.decimal(9),
			RegHolidayNDHours:  p.decimal(10),
			SpecHolidayDays:    p.decimal(11),
			SpecHolidayOTHours: p.decimal(12),
			SpecHolidayNDHours: p.decimal(13),
			RestDayHours:       p.decimal(14),
			CustomAdditions:    make([]decimal.Decimal, len(settings.AdditionSlots)),
			CustomDeductions:   make([]decimal.Decimal, len(settings.DeductionSlots)),
		}
		for slot, col := range additionCols {
			in.CustomAdditions[slot] = p.decimal(col)
		}
		for slot, col := range deductionCols {
			in.CustomDeductions[slot] = p.decimal(col)
		}
		if p.err != nil {
			return nil, p.err
		}
		out[idNumber] = in
	}
	return out, nil
}

// labelColumns maps slot index to the sheet column carrying that label. Each
// label takes the first matching column not already in claimed, so a label
// shared by an addition and a deduction resolves in header order.
func labelColumns(header []string, labels []payroll.IndexedLabel, claimed map[int]bool) map[int]int {
	out := map[int]int{}
	for _, label := range labels {
		for col := len(AttendanceColumns); col < len(header); col++ {
			if claimed[col] {
				continue
			}
			if strings.EqualFold(strings.TrimSpace(header[col]), strings.TrimSpace(label.Label)) {
				out[label.Index] = col
				claimed[col] = true
				break
			}
		}
	}
	return out
}

func cell(record []string, col int) string {
	if col >= len(record) {
		return ""
	}
	return record[col]
}

// cellParser keeps the first parse error so a row can be read field by field.
type cellParser struct {
	record []string
	header []string
	line   int
	err    error
}

func (p *cellParser) decimal(col int) decimal.Decimal {
	raw := strings.TrimSpace(cell(p.record, col))
	if raw == "" || p.err != nil {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil || value.IsNegative() {
		p.err = fmt.Errorf("%w: line %d column %s: %q", ErrInvalidCell, p.line, p.header[col], raw)
		return decimal.Zero
	}
	return value
}

func (p *cellParser) minutes(col int) int {
	return int(p.decimal(col).Round(0).IntPart())
}
