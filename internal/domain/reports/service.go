package reports

import (
	"context"
	"errors"
	"time"

	"phpayroll/internal/domain/payroll"
)

var ErrInvalidMonth = errors.New("month must be between 1 and 12")

type RecordSource interface {
	Records(ctx context.Context, orgID string, filter payroll.RecordFilter) ([]payroll.PayrollRecord, error)
	Settings(ctx context.Context, orgID string) (payroll.OrgSettings, error)
}

type StoreAPI interface {
	Employees(ctx context.Context, orgID string) ([]payroll.Employee, error)
	ListJobRuns(ctx context.Context, orgID string, filter JobRunFilter, limit, offset int) ([]JobRun, error)
	CountJobRuns(ctx context.Context, orgID string, filter JobRunFilter) (int, error)
	JobRunByID(ctx context.Context, orgID, runID string) (JobRun, error)
}

type Service struct {
	Store   StoreAPI
	Records RecordSource
}

func NewService(store StoreAPI, records RecordSource) *Service {
	return &Service{Store: store, Records: records}
}

type MonthlyReport struct {
	Year            int                    `json:"year"`
	Month           int                    `json:"month"`
	Departments     []string               `json:"departments"`
	DeductionLabels []payroll.IndexedLabel `json:"deductionLabels"`
	Rows            []MonthlyDeduction     `json:"rows"`
}

func (s *Service) MonthlyDeductions(ctx context.Context, orgID string, year, month int, department string) (MonthlyReport, error) {
	start, end, err := monthBounds(year, month)
	if err != nil {
		return MonthlyReport{}, err
	}
	rows, err := s.rows(ctx, orgID, payroll.RecordFilter{Start: start, End: end})
	if err != nil {
		return MonthlyReport{}, err
	}
	settings, err := s.Records.Settings(ctx, orgID)
	if err != nil {
		return MonthlyReport{}, err
	}
	return MonthlyReport{
		Year:            year,
		Month:           month,
		Departments:     Departments(rows),
		DeductionLabels: settings.ActiveDeductionLabels(),
		Rows:            MonthlyDeductions(rows, department),
	}, nil
}

func (s *Service) ThirteenthMonth(ctx context.Context, orgID string, year int) ([]ThirteenthMonth, error) {
	start, end := yearBounds(year)
	rows, err := s.rows(ctx, orgID, payroll.RecordFilter{Start: start, End: end})
	if err != nil {
		return nil, err
	}
	employees, err := s.Store.Employees(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return ThirteenthMonthPay(employees, rows), nil
}

// BIR1601C remits every record whose period ends within the month, so a cutoff
// that starts in the previous month is still counted once.
func (s *Service) BIR1601C(ctx context.Context, orgID string, year, month int) (BIR1601C, error) {
	start, end, err := monthBounds(year, month)
	if err != nil {
		return BIR1601C{}, err
	}
	rows, err := s.rows(ctx, orgID, payroll.RecordFilter{Start: start, End: end, ByPeriodEnd: true})
	if err != nil {
		return BIR1601C{}, err
	}
	return ComputeBIR1601C(year, month, rows), nil
}

// BIR2316 counts every record whose period ends within the year.
func (s *Service) BIR2316(ctx context.Context, orgID, employeeID string, year int) (BIR2316, error) {
	start, end := yearBounds(year)
	employees, err := s.Store.Employees(ctx, orgID)
	if err != nil {
		return BIR2316{}, err
	}
	var emp payroll.Employee
	found := false
	for _, candidate := range employees {
		if candidate.ID == employeeID {
			emp, found = candidate, true
			break
		}
	}
	if !found {
		return BIR2316{}, payroll.ErrEmployeeNotFound
	}
	settings, err := s.Records.Settings(ctx, orgID)
	if err != nil {
		return BIR2316{}, err
	}
	records, err := s.Records.Records(ctx, orgID, payroll.RecordFilter{Start: start, End: end, ByPeriodEnd: true, EmployeeID: employeeID})
	if err != nil {
		return BIR2316{}, err
	}
	rows := make([]Row, 0, len(records))
	for _, record := range records {
		rows = append(rows, Row{Record: record, Employee: emp})
	}
	return ComputeBIR2316(year, emp, settings, rows), nil
}

type Register struct {
	PeriodStart     time.Time              `json:"periodStart"`
	PeriodEnd       time.Time              `json:"periodEnd"`
	Settings        payroll.OrgSettings    `json:"-"`
	AdditionLabels  []payroll.IndexedLabel `json:"additionLabels"`
	DeductionLabels []payroll.IndexedLabel `json:"deductionLabels"`
	Rows            []RegisterRow          `json:"rows"`
}

func (s *Service) MasterRegister(ctx context.Context, orgID string, start, end time.Time, department string) (Register, error) {
	rows, err := s.rows(ctx, orgID, payroll.RecordFilter{Start: start, End: end, Department: department})
	if err != nil {
		return Register{}, err
	}
	settings, err := s.Records.Settings(ctx, orgID)
	if err != nil {
		return Register{}, err
	}
	registerRows, err := MasterRegister(rows, settings)
	if err != nil {
		return Register{}, err
	}
	return Register{
		PeriodStart:     start,
		PeriodEnd:       end,
		Settings:        settings,
		AdditionLabels:  settings.ActiveAdditionLabels(),
		DeductionLabels: settings.ActiveDeductionLabels(),
		Rows:            registerRows,
	}, nil
}

func (s *Service) JobRuns(ctx context.Context, orgID string, filter JobRunFilter, limit, offset int) ([]JobRun, int, error) {
	total, err := s.Store.CountJobRuns(ctx, orgID, filter)
	if err != nil {
		return nil, 0, err
	}
	runs, err := s.Store.ListJobRuns(ctx, orgID, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

func (s *Service) JobRun(ctx context.Context, orgID, runID string) (JobRun, error) {
	return s.Store.JobRunByID(ctx, orgID, runID)
}

func (s *Service) rows(ctx context.Context, orgID string, filter payroll.RecordFilter) ([]Row, error) {
	records, err := s.Records.Records(ctx, orgID, filter)
	if err != nil {
		return nil, err
	}
	employees, err := s.Store.Employees(ctx, orgID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]payroll.Employee, len(employees))
	for _, emp := range employees {
		byID[emp.ID] = emp
	}
	rows := make([]Row, 0, len(records))
	for _, record := range records {
		emp, ok := byID[record.EmployeeID]
		if !ok {
			emp = payroll.Employee{ID: record.EmployeeID, Department: record.Department}
		}
		rows = append(rows, Row{Record: record, Employee: emp})
	}
	return rows, nil
}

func monthBounds(year, month int) (time.Time, time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, ErrInvalidMonth
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1), nil
}

func yearBounds(year int) (time.Time, time.Time) {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}
