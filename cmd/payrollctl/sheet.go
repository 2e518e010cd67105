package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"phpayroll/internal/domain/payroll"
)

const sheetDateLayout = "2006-01-02"

var errNoEmployees = errors.New("sheet lists no employees")

// sheet is the YAML document the compute and template commands read.
type sheet struct {
	Period struct {
		Start string `yaml:"start"`
		End   string `yaml:"end"`
	} `yaml:"period"`
	Settings  *payroll.OrgSettings  `yaml:"settings"`
	Config    payroll.PayrollConfig `yaml:"config"`
	Employees []sheetEmployee       `yaml:"employees"`
}

type sheetEmployee struct {
	payroll.Employee `yaml:",inline"`
	Inputs           payroll.PayPeriodInputs `yaml:"inputs"`
}

func loadSheet(path string) (sheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sheet{}, err
	}
	var s sheet
	if err := yaml.Unmarshal(data, &s); err != nil {
		return sheet{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(s.Employees) == 0 {
		return sheet{}, errNoEmployees
	}
	for i := range s.Employees {
		emp := &s.Employees[i].Employee
		if emp.ID == "" {
			emp.ID = emp.IDNumber
		}
		if emp.EmploymentStatus == "" {
			emp.EmploymentStatus = payroll.EmploymentStatusActive
		}
		inputs, err := s.Employees[i].Inputs.NormalizeModes()
		if err != nil {
			return sheet{}, fmt.Errorf("employee %s: %w", emp.IDNumber, err)
		}
		s.Employees[i].Inputs = inputs
	}
	return s, nil
}

// orgSettings fills whatever the sheet leaves out with the organization defaults.
func (s sheet) orgSettings() payroll.OrgSettings {
	defaults := payroll.DefaultOrgSettings("local")
	if s.Settings == nil {
		return defaults
	}
	settings := *s.Settings
	if settings.ID == "" {
		settings.ID = defaults.ID
	}
	if settings.WorkingDaysPerYear.IsZero() {
		settings.WorkingDaysPerYear = defaults.WorkingDaysPerYear
	}
	if len(settings.DeductionSlots) == 0 {
		settings.DeductionSlots = defaults.DeductionSlots
	}
	if len(settings.AdditionSlots) == 0 {
		settings.AdditionSlots = defaults.AdditionSlots
	}
	return settings
}

func (s sheet) period() (time.Time, time.Time, error) {
	if strings.TrimSpace(s.Period.Start) == "" && strings.TrimSpace(s.Period.End) == "" {
		return time.Time{}, time.Time{}, nil
	}
	start, err := time.Parse(sheetDateLayout, strings.TrimSpace(s.Period.Start))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("period start: %w", err)
	}
	end, err := time.Parse(sheetDateLayout, strings.TrimSpace(s.Period.End))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("period end: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, payroll.ErrInvalidPeriod
	}
	return start, end, nil
}

func (s sheet) entries() []payroll.RunEntry {
	out := make([]payroll.RunEntry, 0, len(s.Employees))
	for _, e := range s.Employees {
		out = append(out, payroll.RunEntry{Employee: e.Employee, Inputs: e.Inputs, Encoded: e.Inputs.Encoded()})
	}
	return out
}
