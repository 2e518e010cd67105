package payroll

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"phpayroll/internal/domain/audit"
	"phpayroll/internal/domain/holiday"
	"phpayroll/internal/domain/loan"
	"phpayroll/internal/platform/lock"
	"phpayroll/internal/platform/metrics"
	"phpayroll/internal/platform/querier"
)

type HolidaySource interface {
	List(ctx context.Context, orgID string, start, end time.Time) ([]holiday.Holiday, error)
}

type LoanLedger interface {
	ListActive(ctx context.Context, orgID string) ([]loan.Loan, error)
	ApplyDeduction(ctx context.Context, q querier.Querier, orgID string, d loan.Deduction) (loan.Payment, bool, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

type JobQueue interface {
	Enqueue(jobType, orgID string, run func(context.Context) (any, error)) bool
}

// PayslipWriter renders a finalized record and returns where it was written.
type PayslipWriter interface {
	WritePayslip(ctx context.Context, settings OrgSettings, emp Employee, record PayrollRecord) (string, error)
}

// Actor identifies who triggered a change, for the audit trail.
type Actor struct {
	UserID    string
	RequestID string
	IP        string
}

type SetupRequest struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Modes       RunModes
}

type FinalizeResult struct {
	RunID        string          `json:"runId"`
	PeriodStart  time.Time       `json:"periodStart"`
	PeriodEnd    time.Time       `json:"periodEnd"`
	Records      []PayrollRecord `json:"records"`
	LoanPayments []loan.Payment  `json:"loanPayments"`
}

type ImportResult struct {
	Updated int      `json:"updated"`
	Unknown []string `json:"unknownIdNumbers"`
}

type Deps struct {
	Store    StoreAPI
	Holidays HolidaySource
	Loans    LoanLedger
	Locker   lock.Locker
	Audit    AuditRecorder
	Jobs     JobQueue
	Payslips PayslipWriter
	Metrics  *metrics.Collector
	Logger   *zap.Logger
	Runs     *RunRegistry
	Now      func() time.Time
	NewID    func() string
}

type Service struct {
	store    StoreAPI
	holidays HolidaySource
	loans    LoanLedger
	locker   lock.Locker
	audit    AuditRecorder
	jobs     JobQueue
	payslips PayslipWriter
	metrics  *metrics.Collector
	logger   *zap.Logger
	runs     *RunRegistry
	now      func() time.Time
	newID    func() string
}

func NewService(deps Deps) *Service {
	s := &Service{
		store:    deps.Store,
		holidays: deps.Holidays,
		loans:    deps.Loans,
		locker:   deps.Locker,
		audit:    deps.Audit,
		jobs:     deps.Jobs,
		payslips: deps.Payslips,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		runs:     deps.Runs,
		now:      deps.Now,
		newID:    deps.NewID,
	}
	if s.locker == nil {
		s.locker = lock.NewKeyedMutex()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.runs == nil {
		s.runs = NewRunRegistry(24 * time.Hour)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Settings returns the organization's settings, or the defaults when none were saved.
func (s *Service) Settings(ctx context.Context, orgID string) (OrgSettings, error) {
	settings, err := s.store.LoadOrgSettings(ctx, orgID)
	if errors.Is(err, ErrSettingsNotFound) {
		return DefaultOrgSettings(orgID), nil
	}
	return settings, err
}

func (s *Service) UpdateSettings(ctx context.Context, settings OrgSettings, actor Actor) (OrgSettings, error) {
	if err := settings.Validate(); err != nil {
		return OrgSettings{}, err
	}
	before, err := s.Settings(ctx, settings.ID)
	if err != nil {
		return OrgSettings{}, err
	}
	if err := s.store.InTx(ctx, func(q querier.Querier) error {
		return s.store.SaveOrgSettings(ctx, q, settings)
	}); err != nil {
		return OrgSettings{}, err
	}
	s.recordAudit(ctx, audit.Entry{
		OrgID: settings.ID, Action: AuditSettings, EntityType: "org_settings", EntityID: settings.ID,
		Before: before, After: settings,
	}, actor)
	return settings, nil
}

func (s *Service) Config(ctx context.Context, orgID string) (PayrollConfig, error) {
	return s.store.LoadConfig(ctx, orgID)
}

// Setup opens a run for the period and moves it to encoding once the
// statutory tables, settings, employees, holidays and loans are loaded.
func (s *Service) Setup(ctx context.Context, orgID string, req SetupRequest) (RunView, error) {
	run, err := NewRun(s.newID(), orgID, req.PeriodStart, req.PeriodEnd, req.Modes, s.now())
	if err != nil {
		return RunView{}, err
	}

	var snapshot RunSnapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cfg, err := s.store.LoadConfig(gctx, orgID)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		snapshot.Config = cfg
		return nil
	})
	g.Go(func() error {
		settings, err := s.Settings(gctx, orgID)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		snapshot.Settings = settings
		return nil
	})
	g.Go(func() error {
		employees, err := s.store.ListActiveEmployees(gctx, orgID)
		if err != nil {
			return fmt.Errorf("list employees: %w", err)
		}
		snapshot.Employees = employees
		return nil
	})
	if s.holidays != nil {
		g.Go(func() error {
			holidays, err := s.holidays.List(gctx, orgID, req.PeriodStart, req.PeriodEnd)
			if err != nil {
				return fmt.Errorf("list holidays: %w", err)
			}
			snapshot.Holidays = holidays
			return nil
		})
	}
	if s.loans != nil {
		g.Go(func() error {
			loans, err := s.loans.ListActive(gctx, orgID)
			if err != nil {
				return fmt.Errorf("list loans: %w", err)
			}
			snapshot.Loans = loans
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RunView{}, err
	}

	if err := run.BeginEncoding(snapshot); err != nil {
		return RunView{}, err
	}
	s.runs.Put(run, s.now())
	s.logger.Info("payroll run opened",
		zap.String("orgId", orgID),
		zap.String("runId", run.ID()),
		zap.Int("employees", len(snapshot.Employees)))
	return run.View(), nil
}

func (s *Service) Run(ctx context.Context, orgID, runID string) (RunView, error) {
	run, err := s.runs.Get(orgID, runID)
	if err != nil {
		return RunView{}, err
	}
	return run.View(), nil
}

// RunSettings returns the settings snapshot a run is encoded against.
func (s *Service) RunSettings(ctx context.Context, orgID, runID string) (OrgSettings, error) {
	run, err := s.runs.Get(orgID, runID)
	if err != nil {
		return OrgSettings{}, err
	}
	return run.Settings(), nil
}

func (s *Service) SetInputs(ctx context.Context, orgID, runID, employeeID string, in PayPeriodInputs) error {
	run, err := s.runs.Get(orgID, runID)
	if err != nil {
		return err
	}
	return run.SetInputs(employeeID, in)
}

// ImportInputs applies attendance rows keyed by employee id number. Loan and
// contribution choices already on the drafts are kept. Unknown id numbers are
// reported back and skipped.
func (s *Service) ImportInputs(ctx context.Context, orgID, runID string, rows map[string]PayPeriodInputs) (ImportResult, error) {
	run, err := s.runs.Get(orgID, runID)
	if err != nil {
		return ImportResult{}, err
	}
	numbers := make([]string, 0, len(rows))
	for number := range rows {
		numbers = append(numbers, number)
	}
	sort.Strings(numbers)

	result := ImportResult{Unknown: []string{}}
	for _, number := range numbers {
		employeeID, ok := run.EmployeeByNumber(number)
		if !ok {
			result.Unknown = append(result.Unknown, number)
			continue
		}
		if err := run.ApplyAttendance(employeeID, rows[number]); err != nil {
			return result, err
		}
		result.Updated++
	}
	return result, nil
}

func (s *Service) Preview(ctx context.Context, orgID, runID string) ([]PayrollRecord, error) {
	run, err := s.runs.Get(orgID, runID)
	if err != nil {
		return nil, err
	}
	return run.Preview()
}

// Finalize persists a payslip for every encoded employee of the run. Records
// and loan decrements commit in one transaction while the affected employees
// are locked, so a failure leaves neither behind.
func (s *Service) Finalize(ctx context.Context, orgID, runID string, actor Actor) (FinalizeResult, error) {
	run, err := s.runs.Get(orgID, runID)
	if err != nil {
		return FinalizeResult{}, err
	}
	unlockRun, err := s.locker.Lock(ctx, "run:"+runID)
	if err != nil {
		return FinalizeResult{}, err
	}
	defer unlockRun()

	if run.Status() != RunStatusEncoding {
		return FinalizeResult{}, ErrRunInvalidState
	}
	entries := run.Encoded()
	if len(entries) == 0 {
		return FinalizeResult{}, ErrNothingToFinalize
	}

	view := run.View()
	settings := run.Settings()
	cfg := run.snapshotConfig()

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.Employee.ID)
	}
	sort.Strings(ids)
	for _, id := range ids {
		unlock, err := s.locker.Lock(ctx, "employee:"+orgID+":"+id)
		if err != nil {
			return FinalizeResult{}, err
		}
		defer unlock()
	}

	result := FinalizeResult{RunID: runID, PeriodStart: view.PeriodStart, PeriodEnd: view.PeriodEnd}
	paidAt := s.now()
	err = s.store.InTx(ctx, func(q querier.Querier) error {
		result.Records = result.Records[:0]
		result.LoanPayments = result.LoanPayments[:0]
		for _, entry := range entries {
			record, payment, err := s.finalizeOne(ctx, q, orgID, cfg, settings, view, entry, paidAt)
			if err != nil {
				return fmt.Errorf("finalize %s: %w", entry.Employee.ID, err)
			}
			result.Records = append(result.Records, record)
			if payment != nil {
				result.LoanPayments = append(result.LoanPayments, *payment)
			}
		}
		return nil
	})
	if err != nil {
		s.metrics.FinalizeFailed()
		return FinalizeResult{}, err
	}
	if err := run.MarkFinalized(); err != nil {
		s.logger.Warn("run state change after finalize failed", zap.String("runId", runID), zap.Error(err))
	}
	s.runs.Remove(runID)
	s.metrics.RunFinalized(len(result.Records), len(result.LoanPayments))

	s.recordAudit(ctx, audit.Entry{
		OrgID: orgID, Action: AuditFinalize, EntityType: "payroll_run", EntityID: runID,
		After: map[string]any{
			"periodStart":  view.PeriodStart,
			"periodEnd":    view.PeriodEnd,
			"records":      len(result.Records),
			"loanPayments": len(result.LoanPayments),
		},
	}, actor)
	s.enqueuePayslips(orgID, settings, entries, result.Records)

	s.logger.Info("payroll run finalized",
		zap.String("orgId", orgID),
		zap.String("runId", runID),
		zap.Int("records", len(result.Records)),
		zap.Int("loanPayments", len(result.LoanPayments)))
	return result, nil
}

func (s *Service) finalizeOne(ctx context.Context, q querier.Querier, orgID string, cfg PayrollConfig, settings OrgSettings, view RunView, entry RunEntry, paidAt time.Time) (PayrollRecord, *loan.Payment, error) {
	record, err := Compute(entry.Employee, cfg, settings, entry.Inputs)
	if err != nil {
		return PayrollRecord{}, nil, err
	}

	var payment *loan.Payment
	if record.LoanDeduction.IsPositive() && s.loans != nil {
		applied, ok, err := s.loans.ApplyDeduction(ctx, q, orgID, loan.Deduction{
			EmployeeID:  entry.Employee.ID,
			Amount:      record.LoanDeduction,
			PeriodStart: view.PeriodStart,
			PeriodEnd:   view.PeriodEnd,
			PaidAt:      paidAt,
		})
		if err != nil {
			return PayrollRecord{}, nil, fmt.Errorf("apply loan: %w", err)
		}
		amount := decimal.Zero
		if ok {
			amount = applied.AmountPaid
			if amount.IsPositive() {
				payment = &applied
			}
		}
		// The balance under lock can be lower than the one seen at setup.
		if !amount.Equal(record.LoanDeduction) {
			in := entry.Inputs
			in.LoanBalance = decimal.Zero
			if ok {
				in.LoanBalance = applied.BalanceAfter.Add(amount)
			}
			record, err = ComputeWithLoan(entry.Employee, cfg, settings, in, amount)
			if err != nil {
				return PayrollRecord{}, nil, err
			}
		}
	}

	record.OrgID = orgID
	record.PeriodStart = view.PeriodStart
	record.PeriodEnd = view.PeriodEnd
	inserted, err := s.store.InsertRecord(ctx, q, record)
	if err != nil {
		return PayrollRecord{}, nil, err
	}
	return inserted, payment, nil
}

func (s *Service) enqueuePayslips(orgID string, settings OrgSettings, entries []RunEntry, records []PayrollRecord) {
	if s.jobs == nil || s.payslips == nil {
		return
	}
	employees := make(map[string]Employee, len(entries))
	for _, entry := range entries {
		employees[entry.Employee.ID] = entry.Employee
	}
	for _, record := range records {
		emp := employees[record.EmployeeID]
		s.jobs.Enqueue(JobRenderPayslip, orgID, func(ctx context.Context) (any, error) {
			path, err := s.payslips.WritePayslip(ctx, settings, emp, record)
			if err != nil {
				return map[string]any{"recordId": record.ID}, err
			}
			return map[string]any{"recordId": record.ID, "path": path}, nil
		})
	}
}

// Edit recomputes a finalized record from new inputs and overwrites it. The
// loan deduction stays as finalized.
func (s *Service) Edit(ctx context.Context, orgID, recordID string, in PayPeriodInputs, actor Actor) (PayrollRecord, error) {
	in, err := in.NormalizeModes()
	if err != nil {
		return PayrollRecord{}, err
	}
	stored, err := s.store.GetRecord(ctx, orgID, recordID)
	if err != nil {
		return PayrollRecord{}, err
	}
	emp, err := s.store.GetEmployee(ctx, orgID, stored.EmployeeID)
	if err != nil {
		return PayrollRecord{}, err
	}
	cfg, err := s.store.LoadConfig(ctx, orgID)
	if err != nil {
		return PayrollRecord{}, err
	}
	settings, err := s.Settings(ctx, orgID)
	if err != nil {
		return PayrollRecord{}, err
	}

	if in.SSSMode == "" {
		in.SSSMode = stored.Inputs.SSSMode
	}
	if in.PHMode == "" {
		in.PHMode = stored.Inputs.PHMode
	}
	if in.PIMode == "" {
		in.PIMode = stored.Inputs.PIMode
	}
	updated, err := Recompute(stored, emp, cfg, settings, in)
	if err != nil {
		return PayrollRecord{}, err
	}
	if err := s.store.InTx(ctx, func(q querier.Querier) error {
		return s.store.UpdateRecord(ctx, q, updated)
	}); err != nil {
		return PayrollRecord{}, err
	}
	s.metrics.RecordEdited()
	s.enqueuePayslips(orgID, settings, []RunEntry{{Employee: emp}}, []PayrollRecord{updated})
	s.recordAudit(ctx, audit.Entry{
		OrgID: orgID, Action: AuditEdit, EntityType: AuditEntityType, EntityID: recordID,
		Before: stored, After: updated,
	}, actor)
	return updated, nil
}

// Delete removes a finalized record. Loan payments already taken stay in the ledger.
func (s *Service) Delete(ctx context.Context, orgID, recordID string, actor Actor) error {
	stored, err := s.store.GetRecord(ctx, orgID, recordID)
	if err != nil {
		return err
	}
	if err := s.store.InTx(ctx, func(q querier.Querier) error {
		return s.store.DeleteRecord(ctx, q, orgID, recordID)
	}); err != nil {
		return err
	}
	s.recordAudit(ctx, audit.Entry{
		OrgID: orgID, Action: AuditDelete, EntityType: AuditEntityType, EntityID: recordID,
		Before: stored,
	}, actor)
	return nil
}

func (s *Service) Record(ctx context.Context, orgID, recordID string) (PayrollRecord, error) {
	return s.store.GetRecord(ctx, orgID, recordID)
}

func (s *Service) Employee(ctx context.Context, orgID, employeeID string) (Employee, error) {
	return s.store.GetEmployee(ctx, orgID, employeeID)
}

func (s *Service) Records(ctx context.Context, orgID string, filter RecordFilter) ([]PayrollRecord, error) {
	return s.store.ListRecords(ctx, orgID, filter)
}

func (s *Service) Periods(ctx context.Context, orgID string) ([]Period, error) {
	return s.store.ListPeriods(ctx, orgID)
}

func (s *Service) LatestPeriod(ctx context.Context, orgID string) (Period, error) {
	return s.store.LatestPeriod(ctx, orgID)
}

func (s *Service) recordAudit(ctx context.Context, entry audit.Entry, actor Actor) {
	if s.audit == nil {
		return
	}
	entry.ActorID = actor.UserID
	entry.RequestID = actor.RequestID
	entry.IP = actor.IP
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record failed", zap.String("action", entry.Action), zap.String("entityId", entry.EntityID), zap.Error(err))
	}
}
