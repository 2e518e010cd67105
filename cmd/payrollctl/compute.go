package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"phpayroll/internal/domain/payroll"
	"phpayroll/internal/export"
)

type computeOutput struct {
	Records []payroll.PayrollRecord `json:"records"`
	Skipped []string                `json:"skipped"`
}

func computeCmd() *cobra.Command {
	var attendancePath, pdfPath string
	cmd := &cobra.Command{
		Use:   "compute [sheet.yaml]",
		Short: "Compute payslips for every encoded employee in a sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSheet(args[0])
			if err != nil {
				return err
			}
			settings := s.orgSettings()
			if attendancePath != "" {
				if err := mergeAttendanceFile(&s, settings, attendancePath); err != nil {
					return err
				}
			}
			out, slips, err := computeSheet(s, settings)
			if err != nil {
				return err
			}
			if pdfPath != "" {
				var buf bytes.Buffer
				if err := export.WritePayslipsPDF(&buf, slips); err != nil {
					return err
				}
				if err := os.WriteFile(pdfPath, buf.Bytes(), 0o644); err != nil {
					return err
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&attendancePath, "attendance", "", "attendance CSV whose rows replace the sheet's attendance values")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "also write the payslips to this PDF file")
	return cmd
}

func computeSheet(s sheet, settings payroll.OrgSettings) (computeOutput, []export.Payslip, error) {
	start, end, err := s.period()
	if err != nil {
		return computeOutput{}, nil, err
	}
	out := computeOutput{Records: []payroll.PayrollRecord{}, Skipped: []string{}}
	var slips []export.Payslip
	for _, e := range s.Employees {
		if !e.Inputs.Encoded() {
			out.Skipped = append(out.Skipped, e.IDNumber)
			continue
		}
		record, err := payroll.Compute(e.Employee, s.Config, settings, e.Inputs)
		if err != nil {
			return computeOutput{}, nil, fmt.Errorf("%s: %w", e.DisplayName(), err)
		}
		record.PeriodStart = start
		record.PeriodEnd = end
		out.Records = append(out.Records, record)
		slips = append(slips, export.Payslip{Settings: settings, Employee: e.Employee, Record: record})
	}
	return out, slips, nil
}

func mergeAttendanceFile(s *sheet, settings payroll.OrgSettings, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	rows, err := export.ParseAttendance(f, settings)
	if err != nil {
		return err
	}
	for i := range s.Employees {
		row, ok := rows[s.Employees[i].IDNumber]
		if !ok {
			continue
		}
		s.Employees[i].Inputs = s.Employees[i].Inputs.WithAttendance(row)
	}
	return nil
}
