package main

import (
	"github.com/spf13/cobra"

	"phpayroll/internal/domain/payroll"
	"phpayroll/internal/domain/reports"
	"phpayroll/internal/export"
)

func thirteenthCmd() *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "thirteenth [sheet.yaml...]",
		Short: "Write the 13th-month pay CSV for the payslips computed from a year's sheets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			employees, rows, err := yearRows(args, year)
			if err != nil {
				return err
			}
			return export.WriteThirteenthMonthCSV(cmd.OutOrStdout(), reports.ThirteenthMonthPay(employees, rows))
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "only count sheets whose period ends in this year")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

// yearRows computes every sheet and keeps the records whose period ends in year.
// Employees are matched across sheets by id, first sheet wins.
func yearRows(paths []string, year int) ([]payroll.Employee, []reports.Row, error) {
	var employees []payroll.Employee
	seen := map[string]bool{}
	var rows []reports.Row
	for _, path := range paths {
		s, err := loadSheet(path)
		if err != nil {
			return nil, nil, err
		}
		_, slips, err := computeSheet(s, s.orgSettings())
		if err != nil {
			return nil, nil, err
		}
		for _, slip := range slips {
			if !slip.Record.PeriodEnd.IsZero() && slip.Record.PeriodEnd.Year() != year {
				continue
			}
			if !seen[slip.Employee.ID] {
				seen[slip.Employee.ID] = true
				employees = append(employees, slip.Employee)
			}
			rows = append(rows, reports.Row{Record: slip.Record, Employee: slip.Employee})
		}
	}
	return employees, rows, nil
}
