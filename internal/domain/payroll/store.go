package payroll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"phpayroll/internal/platform/db"
	"phpayroll/internal/platform/querier"
)

const (
	configKeySSS        = "sss_table"
	configKeyPhilHealth = "philhealth"
	configKeyPagIBIG    = "pagibig"
	configKeyTax        = "tax_table"

	uniqueViolation = "23505"
)

type Store struct {
	DB querier.TxBeginner
}

func NewStore(db querier.TxBeginner) *Store {
	return &Store{DB: db}
}

func (s *Store) InTx(ctx context.Context, fn func(q querier.Querier) error) error {
	return db.InTx(ctx, s.DB, fn)
}

// LoadConfig reads the statutory tables. Organization rows override the global
// rows for the same key, and missing keys stay empty.
func (s *Store) LoadConfig(ctx context.Context, orgID string) (PayrollConfig, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT DISTINCT ON (key) key, value
    FROM payroll_config
    WHERE organization_id = $1 OR organization_id IS NULL
    ORDER BY key, organization_id NULLS LAST
  `, orgID)
	if err != nil {
		return PayrollConfig{}, err
	}
	defer rows.Close()

	var cfg PayrollConfig
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return PayrollConfig{}, err
		}
		var target any
		switch key {
		case configKeySSS:
			target = &cfg.SSSTable
		case configKeyPhilHealth:
			target = &cfg.PhilHealth
		case configKeyPagIBIG:
			target = &cfg.PagIBIG
		case configKeyTax:
			target = &cfg.TaxTable
		default:
			continue
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return PayrollConfig{}, fmt.Errorf("payroll config %s: %w", key, err)
		}
	}
	return cfg, rows.Err()
}

func (s *Store) LoadOrgSettings(ctx context.Context, orgID string) (OrgSettings, error) {
	var settings OrgSettings
	var deductionJSON, additionJSON []byte
	err := s.DB.QueryRow(ctx, `
    SELECT o.id, o.name, COALESCE(o.tin, ''),
           s.working_days_per_year, s.fixed_sss_amount, s.late_penalty_multiplier,
           s.deduction_slots, s.addition_slots
    FROM organizations o
    JOIN org_settings s ON s.organization_id = o.id
    WHERE o.id = $1
  `, orgID).Scan(&settings.ID, &settings.Name, &settings.TIN,
		&settings.WorkingDaysPerYear, &settings.FixedSSSAmount, &settings.LatePenaltyMultiplier,
		&deductionJSON, &additionJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return OrgSettings{}, ErrSettingsNotFound
	}
	if err != nil {
		return OrgSettings{}, err
	}
	if err := unmarshalSlots(deductionJSON, &settings.DeductionSlots); err != nil {
		return OrgSettings{}, fmt.Errorf("deduction slots: %w", err)
	}
	if err := unmarshalSlots(additionJSON, &settings.AdditionSlots); err != nil {
		return OrgSettings{}, fmt.Errorf("addition slots: %w", err)
	}
	return settings, nil
}

func (s *Store) SaveOrgSettings(ctx context.Context, q querier.Querier, settings OrgSettings) error {
	deductionJSON, err := json.Marshal(settings.DeductionSlots)
	if err != nil {
		return err
	}
	additionJSON, err := json.Marshal(settings.AdditionSlots)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `
    INSERT INTO org_settings (organization_id, working_days_per_year, fixed_sss_amount, late_penalty_multiplier, deduction_slots, addition_slots)
    VALUES ($1,$2,$3,$4,$5,$6)
    ON CONFLICT (organization_id) DO UPDATE
    SET working_days_per_year = EXCLUDED.working_days_per_year,
        fixed_sss_amount = EXCLUDED.fixed_sss_amount,
        late_penalty_multiplier = EXCLUDED.late_penalty_multiplier,
        deduction_slots = EXCLUDED.deduction_slots,
        addition_slots = EXCLUDED.addition_slots,
        updated_at = now()
  `, settings.ID, settings.WorkingDaysPerYear, settings.FixedSSSAmount, settings.LatePenaltyMultiplier, deductionJSON, additionJSON)
	return err
}

const employeeColumns = `id, COALESCE(id_number, ''), first_name, last_name, COALESCE(middle_name, ''),
           COALESCE(department, ''), COALESCE(tin, ''), COALESCE(address, ''), COALESCE(zip_code, ''),
           employment_status, salary_rate`

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	err := row.Scan(&emp.ID, &emp.IDNumber, &emp.FirstName, &emp.LastName, &emp.MiddleName,
		&emp.Department, &emp.TIN, &emp.Address, &emp.ZipCode, &emp.EmploymentStatus, &emp.SalaryRate)
	return emp, err
}

func (s *Store) ListActiveEmployees(ctx context.Context, orgID string) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE organization_id = $1 AND employment_status = $2
    ORDER BY COALESCE(NULLIF(department, ''), $3), last_name, first_name
  `, orgID, EmploymentStatusActive, UnassignedDept)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) GetEmployee(ctx context.Context, orgID, employeeID string) (Employee, error) {
	emp, err := scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE organization_id = $1 AND id = $2
  `, orgID, employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	return emp, err
}

const recordColumns = `id, organization_id, employee_id, department, period_start, period_end, inputs,
           basic_pay, ot_pay, nd_pay, holiday_pay, gross_pay,
           sss_deduction, philhealth_deduction, pagibig_deduction, tax_deduction,
           time_deduction, loan_deduction, net_pay, custom_deductions, custom_additions, created_at`

func scanRecord(row pgx.Row) (PayrollRecord, error) {
	var r PayrollRecord
	var inputsJSON, deductionsJSON, additionsJSON []byte
	if err := row.Scan(&r.ID, &r.OrgID, &r.EmployeeID, &r.Department, &r.PeriodStart, &r.PeriodEnd, &inputsJSON,
		&r.BasicPay, &r.OTPay, &r.NDPay, &r.HolidayPay, &r.GrossPay,
		&r.SSSDeduction, &r.PhilHealthDeduction, &r.PagIBIGDeduction, &r.TaxDeduction,
		&r.TimeDeduction, &r.LoanDeduction, &r.NetPay, &deductionsJSON, &additionsJSON, &r.CreatedAt); err != nil {
		return PayrollRecord{}, err
	}
	if len(inputsJSON) > 0 {
		if err := json.Unmarshal(inputsJSON, &r.Inputs); err != nil {
			return PayrollRecord{}, fmt.Errorf("record inputs: %w", err)
		}
	}
	if len(deductionsJSON) > 0 {
		if err := json.Unmarshal(deductionsJSON, &r.CustomDeductions); err != nil {
			return PayrollRecord{}, fmt.Errorf("custom deductions: %w", err)
		}
	}
	if len(additionsJSON) > 0 {
		if err := json.Unmarshal(additionsJSON, &r.CustomAdditions); err != nil {
			return PayrollRecord{}, fmt.Errorf("custom additions: %w", err)
		}
	}
	return r, nil
}

type recordJSON struct {
	inputs, deductions, additions []byte
}

func marshalRecord(record PayrollRecord) (recordJSON, error) {
	var out recordJSON
	var err error
	if out.inputs, err = json.Marshal(record.Inputs); err != nil {
		return out, err
	}
	if out.deductions, err = json.Marshal(record.CustomDeductions); err != nil {
		return out, err
	}
	if out.additions, err = json.Marshal(record.CustomAdditions); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Store) InsertRecord(ctx context.Context, q querier.Querier, record PayrollRecord) (PayrollRecord, error) {
	payload, err := marshalRecord(record)
	if err != nil {
		return PayrollRecord{}, err
	}
	err = q.QueryRow(ctx, `
    INSERT INTO payroll_history (organization_id, employee_id, department, period_start, period_end, inputs,
      basic_pay, ot_pay, nd_pay, holiday_pay, gross_pay,
      sss_deduction, philhealth_deduction, pagibig_deduction, tax_deduction,
      time_deduction, loan_deduction, net_pay, custom_deductions, custom_additions)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
    RETURNING id, created_at
  `, record.OrgID, record.EmployeeID, record.Department, record.PeriodStart, record.PeriodEnd, payload.inputs,
		record.BasicPay, record.OTPay, record.NDPay, record.HolidayPay, record.GrossPay,
		record.SSSDeduction, record.PhilHealthDeduction, record.PagIBIGDeduction, record.TaxDeduction,
		record.TimeDeduction, record.LoanDeduction, record.NetPay, payload.deductions, payload.additions,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return PayrollRecord{}, ErrRecordExists
		}
		return PayrollRecord{}, err
	}
	return record, nil
}

func (s *Store) GetRecord(ctx context.Context, orgID, recordID string) (PayrollRecord, error) {
	record, err := scanRecord(s.DB.QueryRow(ctx, `
    SELECT `+recordColumns+`
    FROM payroll_history
    WHERE organization_id = $1 AND id = $2
  `, orgID, recordID))
	if errors.Is(err, pgx.ErrNoRows) {
		return PayrollRecord{}, ErrRecordNotFound
	}
	return record, err
}

func (s *Store) UpdateRecord(ctx context.Context, q querier.Querier, record PayrollRecord) error {
	payload, err := marshalRecord(record)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `
    UPDATE payroll_history
    SET inputs = $3, basic_pay = $4, ot_pay = $5, nd_pay = $6, holiday_pay = $7, gross_pay = $8,
        sss_deduction = $9, philhealth_deduction = $10, pagibig_deduction = $11, tax_deduction = $12,
        time_deduction = $13, loan_deduction = $14, net_pay = $15,
        custom_deductions = $16, custom_additions = $17, updated_at = now()
    WHERE organization_id = $1 AND id = $2
  `, record.OrgID, record.ID, payload.inputs, record.BasicPay, record.OTPay, record.NDPay, record.HolidayPay, record.GrossPay,
		record.SSSDeduction, record.PhilHealthDeduction, record.PagIBIGDeduction, record.TaxDeduction,
		record.TimeDeduction, record.LoanDeduction, record.NetPay, payload.deductions, payload.additions)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, q querier.Querier, orgID, recordID string) error {
	tag, err := q.Exec(ctx, `DELETE FROM payroll_history WHERE organization_id = $1 AND id = $2`, orgID, recordID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ListRecords returns records whose period lies within the filter window,
// ordered by department and employee name.
func (s *Store) ListRecords(ctx context.Context, orgID string, filter RecordFilter) ([]PayrollRecord, error) {
	query := `
    SELECT ` + prefixed("h.", recordColumns) + `
    FROM payroll_history h
    JOIN employees e ON e.id = h.employee_id
    WHERE h.organization_id = $1`
	args := []any{orgID}
	if !filter.Start.IsZero() {
		args = append(args, filter.Start)
		if filter.ByPeriodEnd {
			query += fmt.Sprintf(" AND h.period_end >= $%d", len(args))
		} else {
			query += fmt.Sprintf(" AND h.period_start >= $%d", len(args))
		}
	}
	if !filter.End.IsZero() {
		args = append(args, filter.End)
		query += fmt.Sprintf(" AND h.period_end <= $%d", len(args))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		query += fmt.Sprintf(" AND h.department = $%d", len(args))
	}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		query += fmt.Sprintf(" AND h.employee_id = $%d", len(args))
	}
	query += " ORDER BY h.department, e.last_name, e.first_name, h.period_start"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PayrollRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *Store) ListPeriods(ctx context.Context, orgID string) ([]Period, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT period_start, period_end, COUNT(1)
    FROM payroll_history
    WHERE organization_id = $1
    GROUP BY period_start, period_end
    ORDER BY period_end DESC, period_start DESC
  `, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.Start, &p.End, &p.RecordCount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) LatestPeriod(ctx context.Context, orgID string) (Period, error) {
	var p Period
	err := s.DB.QueryRow(ctx, `
    SELECT period_start, period_end, COUNT(1)
    FROM payroll_history
    WHERE organization_id = $1
    GROUP BY period_start, period_end
    ORDER BY period_end DESC, period_start DESC
    LIMIT 1
  `, orgID).Scan(&p.Start, &p.End, &p.RecordCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, ErrNoFinalizedPeriods
	}
	return p, err
}

func unmarshalSlots(raw []byte, dest *[]Slot) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = prefix + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
