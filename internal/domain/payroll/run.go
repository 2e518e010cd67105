package payroll

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"phpayroll/internal/domain/holiday"
	"phpayroll/internal/domain/loan"
)

// RunModes are the statutory proration modes chosen at setup and applied to every employee.
type RunModes struct {
	SSS        Mode `json:"sssMode"`
	PhilHealth Mode `json:"phMode"`
	PagIBIG    Mode `json:"piMode"`
}

// RunSnapshot is the read-only data a run is encoded against.
type RunSnapshot struct {
	Config    PayrollConfig
	Settings  OrgSettings
	Employees []Employee
	Holidays  []holiday.Holiday
	Loans     []loan.Loan
}

// Run is a payroll run moving from setup through encoding to finalized.
// Drafts live only in memory until the run is finalized.
type Run struct {
	mu sync.Mutex

	id          string
	orgID       string
	status      string
	periodStart time.Time
	periodEnd   time.Time
	modes       RunModes
	createdAt   time.Time

	snapshot RunSnapshot
	drafts   map[string]PayPeriodInputs
	byNumber map[string]string
}

// RunEntry is one employee row of a run.
type RunEntry struct {
	Employee Employee        `json:"employee"`
	Inputs   PayPeriodInputs `json:"inputs"`
	Encoded  bool            `json:"encoded"`
}

// RunView is a consistent copy of a run for callers outside the package.
type RunView struct {
	ID              string            `json:"id"`
	Status          string            `json:"status"`
	PeriodStart     time.Time         `json:"periodStart"`
	PeriodEnd       time.Time         `json:"periodEnd"`
	Modes           RunModes          `json:"modes"`
	Holidays        []holiday.Holiday `json:"holidays"`
	HolidaySummary  holiday.Summary   `json:"holidaySummary"`
	AdditionLabels  []IndexedLabel    `json:"additionLabels"`
	DeductionLabels []IndexedLabel    `json:"deductionLabels"`
	Entries         []RunEntry        `json:"entries"`
	CreatedAt       time.Time         `json:"createdAt"`
}

func NewRun(id, orgID string, start, end time.Time, modes RunModes, now time.Time) (*Run, error) {
	if end.Before(start) {
		return nil, ErrInvalidPeriod
	}
	for _, mode := range []*Mode{&modes.SSS, &modes.PhilHealth, &modes.PagIBIG} {
		parsed, err := ParseMode(string(*mode))
		if err != nil {
			return nil, err
		}
		*mode = parsed
	}
	return &Run{
		id:          id,
		orgID:       orgID,
		status:      RunStatusSetup,
		periodStart: start,
		periodEnd:   end,
		modes:       modes,
		createdAt:   now,
	}, nil
}

func (r *Run) ID() string    { return r.id }
func (r *Run) OrgID() string { return r.orgID }

func (r *Run) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// BeginEncoding stores the snapshot and seeds one draft per employee with the
// run's statutory modes and the employee's active loan installment.
func (r *Run) BeginEncoding(snapshot RunSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != RunStatusSetup {
		return ErrRunInvalidState
	}
	if err := snapshot.Settings.Validate(); err != nil {
		return err
	}

	loans := make(map[string]loan.Loan, len(snapshot.Loans))
	for _, l := range snapshot.Loans {
		if l.IsActive {
			if _, seen := loans[l.EmployeeID]; !seen {
				loans[l.EmployeeID] = l
			}
		}
	}

	snapshot.Employees = append([]Employee(nil), snapshot.Employees...)
	SortEmployees(snapshot.Employees)
	snapshot.Holidays = holiday.InPeriod(snapshot.Holidays, r.periodStart, r.periodEnd)

	r.drafts = make(map[string]PayPeriodInputs, len(snapshot.Employees))
	r.byNumber = make(map[string]string, len(snapshot.Employees))
	for _, emp := range snapshot.Employees {
		in := PayPeriodInputs{
			SSSMode:          r.modes.SSS,
			PHMode:           r.modes.PhilHealth,
			PIMode:           r.modes.PagIBIG,
			LoanMode:         ModeFull,
			CustomDeductions: make([]decimal.Decimal, len(snapshot.Settings.DeductionSlots)),
			CustomAdditions:  make([]decimal.Decimal, len(snapshot.Settings.AdditionSlots)),
		}
		if l, ok := loans[emp.ID]; ok {
			in.LoanPayment = l.MonthlyInstallment
			in.LoanBalance = l.CurrentBalance
		}
		r.drafts[emp.ID] = in
		if number := strings.TrimSpace(emp.IDNumber); number != "" {
			r.byNumber[number] = emp.ID
		}
	}
	r.snapshot = snapshot
	r.status = RunStatusEncoding
	return nil
}

// SetInputs replaces an employee's draft. The loan balance always comes from
// the snapshot, and empty modes fall back to the run's modes.
func (r *Run) SetInputs(employeeID string, in PayPeriodInputs) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != RunStatusEncoding {
		return ErrRunInvalidState
	}
	current, ok := r.drafts[employeeID]
	if !ok {
		return ErrEmployeeNotInRun
	}
	in, err := in.NormalizeModes()
	if err != nil {
		return err
	}
	in.LoanBalance = current.LoanBalance
	if in.SSSMode == "" {
		in.SSSMode = r.modes.SSS
	}
	if in.PHMode == "" {
		in.PHMode = r.modes.PhilHealth
	}
	if in.PIMode == "" {
		in.PIMode = r.modes.PagIBIG
	}
	if in.LoanMode == "" {
		in.LoanMode = current.LoanMode
	}
	in.CustomDeductions = fitSlots(in.CustomDeductions, len(r.snapshot.Settings.DeductionSlots))
	in.CustomAdditions = fitSlots(in.CustomAdditions, len(r.snapshot.Settings.AdditionSlots))
	r.drafts[employeeID] = in
	return nil
}

// ApplyAttendance copies the attendance and custom slot values of in onto the
// employee's draft, keeping the draft's loan and contribution choices.
func (r *Run) ApplyAttendance(employeeID string, in PayPeriodInputs) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != RunStatusEncoding {
		return ErrRunInvalidState
	}
	draft, ok := r.drafts[employeeID]
	if !ok {
		return ErrEmployeeNotInRun
	}
	draft = draft.WithAttendance(in)
	draft.CustomDeductions = fitSlots(draft.CustomDeductions, len(r.snapshot.Settings.DeductionSlots))
	draft.CustomAdditions = fitSlots(draft.CustomAdditions, len(r.snapshot.Settings.AdditionSlots))
	r.drafts[employeeID] = draft
	return nil
}

// EmployeeByNumber resolves an employee id number from an attendance sheet.
func (r *Run) EmployeeByNumber(idNumber string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byNumber[strings.TrimSpace(idNumber)]
	return id, ok
}

func (r *Run) Settings() OrgSettings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot.Settings
}

func (r *Run) Employees() []Employee {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Employee(nil), r.snapshot.Employees...)
}

// Preview computes every employee's payslip without persisting anything.
func (r *Run) Preview() ([]PayrollRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != RunStatusEncoding {
		return nil, ErrRunInvalidState
	}
	out := make([]PayrollRecord, 0, len(r.snapshot.Employees))
	for _, emp := range r.snapshot.Employees {
		record, err := r.computeLocked(emp, r.drafts[emp.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

// Encoded returns the employees with worked or holiday days, in run order.
func (r *Run) Encoded() []RunEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []RunEntry
	for _, emp := range r.snapshot.Employees {
		in := r.drafts[emp.ID]
		if in.Encoded() {
			out = append(out, RunEntry{Employee: emp, Inputs: in, Encoded: true})
		}
	}
	return out
}

func (r *Run) MarkFinalized() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != RunStatusEncoding {
		return ErrRunInvalidState
	}
	r.status = RunStatusFinalized
	return nil
}

func (r *Run) View() RunView {
	r.mu.Lock()
	defer r.mu.Unlock()
	view := RunView{
		ID:              r.id,
		Status:          r.status,
		PeriodStart:     r.periodStart,
		PeriodEnd:       r.periodEnd,
		Modes:           r.modes,
		Holidays:        append([]holiday.Holiday(nil), r.snapshot.Holidays...),
		HolidaySummary:  holiday.Summarize(r.snapshot.Holidays),
		AdditionLabels:  r.snapshot.Settings.ActiveAdditionLabels(),
		DeductionLabels: r.snapshot.Settings.ActiveDeductionLabels(),
		CreatedAt:       r.createdAt,
	}
	for _, emp := range r.snapshot.Employees {
		in := r.drafts[emp.ID]
		view.Entries = append(view.Entries, RunEntry{Employee: emp, Inputs: in, Encoded: in.Encoded()})
	}
	return view
}

func (r *Run) computeLocked(emp Employee, in PayPeriodInputs) (PayrollRecord, error) {
	record, err := Compute(emp, r.snapshot.Config, r.snapshot.Settings, in)
	if err != nil {
		return PayrollRecord{}, err
	}
	record.OrgID = r.orgID
	record.PeriodStart = r.periodStart
	record.PeriodEnd = r.periodEnd
	return record, nil
}

// SortEmployees orders by department, then last name, then first name.
func SortEmployees(employees []Employee) {
	sort.SliceStable(employees, func(i, j int) bool {
		a, b := employees[i], employees[j]
		if a.DepartmentOrDefault() != b.DepartmentOrDefault() {
			return a.DepartmentOrDefault() < b.DepartmentOrDefault()
		}
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		return a.FirstName < b.FirstName
	})
}

func fitSlots(values []decimal.Decimal, n int) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	copy(out, values)
	return out
}

// RunRegistry keeps runs that are still being encoded.
type RunRegistry struct {
	mu   sync.Mutex
	runs map[string]*Run
	ttl  time.Duration
}

func NewRunRegistry(ttl time.Duration) *RunRegistry {
	return &RunRegistry{runs: map[string]*Run{}, ttl: ttl}
}

// Put stores the run and drops runs older than the registry ttl.
func (g *RunRegistry) Put(run *Run, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ttl > 0 {
		for id, existing := range g.runs {
			if now.Sub(existing.createdAt) > g.ttl {
				delete(g.runs, id)
			}
		}
	}
	g.runs[run.id] = run
}

func (g *RunRegistry) Get(orgID, id string) (*Run, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	run, ok := g.runs[id]
	if !ok || run.orgID != orgID {
		return nil, ErrRunNotFound
	}
	return run, nil
}

func (g *RunRegistry) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.runs, id)
}

func (r *Run) snapshotConfig() PayrollConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot.Config
}
