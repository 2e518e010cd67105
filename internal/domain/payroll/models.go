package payroll

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Mode selects how much of a contribution or loan installment is taken in a run.
type Mode string

const (
	ModeFull Mode = "full"
	ModeHalf Mode = "half"
	ModeNone Mode = "none"
)

var (
	one  = decimal.NewFromInt(1)
	half = decimal.RequireFromString("0.5")
)

// Multiplier returns the proration factor for the mode. Unknown modes prorate to zero.
func (m Mode) Multiplier() decimal.Decimal {
	switch m {
	case ModeFull:
		return one
	case ModeHalf:
		return half
	default:
		return decimal.Zero
	}
}

// ParseMode normalizes user input. An empty value means full.
func ParseMode(raw string) (Mode, error) {
	value := Mode(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case "":
		return ModeFull, nil
	case ModeFull, ModeHalf, ModeNone:
		return value, nil
	default:
		return "", ErrUnknownMode
	}
}

type Employee struct {
	ID               string          `json:"id" yaml:"id"`
	IDNumber         string          `json:"idNumber" yaml:"id_number"`
	FirstName        string          `json:"firstName" yaml:"first_name"`
	LastName         string          `json:"lastName" yaml:"last_name"`
	MiddleName       string          `json:"middleName,omitempty" yaml:"middle_name"`
	Department       string          `json:"department" yaml:"department"`
	TIN              string          `json:"tin,omitempty" yaml:"tin"`
	Address          string          `json:"address,omitempty" yaml:"address"`
	ZipCode          string          `json:"zipCode,omitempty" yaml:"zip_code"`
	EmploymentStatus string          `json:"employmentStatus" yaml:"employment_status"`
	SalaryRate       decimal.Decimal `json:"salaryRate" yaml:"salary_rate"`
}

func (e Employee) DisplayName() string {
	return strings.TrimSpace(e.LastName) + ", " + strings.TrimSpace(e.FirstName)
}

func (e Employee) DepartmentOrDefault() string {
	if strings.TrimSpace(e.Department) == "" {
		return UnassignedDept
	}
	return e.Department
}

// Slot is one organization-defined custom deduction or addition column.
type Slot struct {
	Label   string `json:"label" yaml:"label"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// IndexedLabel is an enabled slot together with its position in the slot array.
type IndexedLabel struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

type OrgSettings struct {
	ID                 string          `json:"id" yaml:"id"`
	Name               string          `json:"name" yaml:"name"`
	TIN                string          `json:"tin,omitempty" yaml:"tin"`
	WorkingDaysPerYear decimal.Decimal `json:"workingDaysPerYear" yaml:"working_days_per_year"`
	// FixedSSSAmount replaces the bracket lookup when positive.
	FixedSSSAmount decimal.Decimal `json:"fixedSssAmount" yaml:"fixed_sss_amount"`
	// LatePenaltyMultiplier scales the per-minute late deduction. Zero means the default of 1.
	LatePenaltyMultiplier decimal.Decimal `json:"latePenaltyMultiplier" yaml:"late_penalty_multiplier"`
	DeductionSlots        []Slot          `json:"deductionSlots" yaml:"deduction_slots"`
	AdditionSlots         []Slot          `json:"additionSlots" yaml:"addition_slots"`
}

func DefaultOrgSettings(id string) OrgSettings {
	settings := OrgSettings{
		ID:                    id,
		WorkingDaysPerYear:    decimal.NewFromInt(DefaultWorkingDaysPerYear),
		LatePenaltyMultiplier: one,
		DeductionSlots:        make([]Slot, MaxDeductionSlots),
		AdditionSlots:         make([]Slot, MaxAdditionSlots),
	}
	for i := range settings.DeductionSlots {
		settings.DeductionSlots[i] = Slot{Label: "Deduction " + strconv.Itoa(i+1)}
	}
	for i := range settings.AdditionSlots {
		settings.AdditionSlots[i] = Slot{Label: "Add Pay " + strconv.Itoa(i+1)}
	}
	return settings
}

func (o OrgSettings) Validate() error {
	if !o.WorkingDaysPerYear.IsPositive() {
		return ErrInvalidWorkingDays
	}
	if o.LatePenaltyMultiplier.IsNegative() {
		return ErrInvalidLateMultiple
	}
	if len(o.DeductionSlots) > MaxDeductionSlots || len(o.AdditionSlots) > MaxAdditionSlots {
		return ErrTooManySlots
	}
	return nil
}

func (o OrgSettings) LateMultiplier() decimal.Decimal {
	if o.LatePenaltyMultiplier.IsZero() {
		return one
	}
	return o.LatePenaltyMultiplier
}

func (o OrgSettings) ActiveDeductionLabels() []IndexedLabel {
	return activeLabels(o.DeductionSlots)
}

func (o OrgSettings) ActiveAdditionLabels() []IndexedLabel {
	return activeLabels(o.AdditionSlots)
}

func activeLabels(slots []Slot) []IndexedLabel {
	out := make([]IndexedLabel, 0, len(slots))
	for i, slot := range slots {
		if slot.Enabled {
			out = append(out, IndexedLabel{Index: i, Label: slot.Label})
		}
	}
	return out
}

type SSSBracket struct {
	Min   decimal.Decimal `json:"min" yaml:"min"`
	Max   decimal.Decimal `json:"max" yaml:"max"`
	EESS  decimal.Decimal `json:"ee_ss" yaml:"ee_ss"`
	EEMPF decimal.Decimal `json:"ee_mpf" yaml:"ee_mpf"`
}

type TaxBracket struct {
	Min        decimal.Decimal `json:"min" yaml:"min"`
	Max        decimal.Decimal `json:"max" yaml:"max"`
	BaseTax    decimal.Decimal `json:"base_tax" yaml:"base_tax"`
	ExcessRate decimal.Decimal `json:"excess_rate" yaml:"excess_rate"`
}

type FlatContribution struct {
	EEFixed decimal.Decimal `json:"ee_fixed" yaml:"ee_fixed"`
}

type PayrollConfig struct {
	SSSTable   []SSSBracket     `json:"sss_table" yaml:"sss_table"`
	PhilHealth FlatContribution `json:"philhealth" yaml:"philhealth"`
	PagIBIG    FlatContribution `json:"pagibig" yaml:"pagibig"`
	TaxTable   []TaxBracket     `json:"tax_table" yaml:"tax_table"`
}

// PayPeriodInputs is the attendance and deduction data encoded for one employee in one run.
type PayPeriodInputs struct {
	DaysWorked         decimal.Decimal `json:"daysWorked" yaml:"days_worked"`
	OTHours            decimal.Decimal `json:"otHours" yaml:"ot_hours"`
	NDHours            decimal.Decimal `json:"ndHours" yaml:"nd_hours"`
	LateMinutes        int             `json:"lateMinutes" yaml:"late_minutes"`
	UndertimeMinutes   int             `json:"undertimeMinutes" yaml:"undertime_minutes"`
	RegHolidayDays     decimal.Decimal `json:"regHolidayDays" yaml:"reg_holiday_days"`
	RegHolidayOTHours  decimal.Decimal `json:"regHolidayOtHours" yaml:"reg_holiday_ot_hours"`
	RegHolidayNDHours  decimal.Decimal `json:"regHolidayNdHours" yaml:"reg_holiday_nd_hours"`
	SpecHolidayDays    decimal.Decimal `json:"specHolidayDays" yaml:"spec_holiday_days"`
	SpecHolidayOTHours decimal.Decimal `json:"specHolidayOtHours" yaml:"spec_holiday_ot_hours"`
	SpecHolidayNDHours decimal.Decimal `json:"specHolidayNdHours" yaml:"spec_holiday_nd_hours"`
	RestDayHours       decimal.Decimal `json:"restDayHours" yaml:"rest_day_hours"`

	// LoanPayment is the requested installment before proration and capping.
	LoanPayment decimal.Decimal `json:"loanPayment" yaml:"loan_payment"`
	LoanBalance decimal.Decimal `json:"loanBalance" yaml:"loan_balance"`
	LoanMode    Mode            `json:"loanMode" yaml:"loan_mode"`

	SSSMode Mode `json:"sssMode" yaml:"sss_mode"`
	PHMode  Mode `json:"phMode" yaml:"ph_mode"`
	PIMode  Mode `json:"piMode" yaml:"pi_mode"`

	CustomDeductions []decimal.Decimal `json:"customDeductions" yaml:"custom_deductions"`
	CustomAdditions  []decimal.Decimal `json:"customAdditions" yaml:"custom_additions"`
}

// NormalizeModes rewrites every non-empty mode in its canonical form. Empty
// modes stay empty so callers can apply their own fallback.
func (in PayPeriodInputs) NormalizeModes() (PayPeriodInputs, error) {
	for _, mode := range []*Mode{&in.SSSMode, &in.PHMode, &in.PIMode, &in.LoanMode} {
		if *mode == "" {
			continue
		}
		parsed, err := ParseMode(string(*mode))
		if err != nil {
			return in, err
		}
		*mode = parsed
	}
	return in, nil
}

// Encoded reports whether the inputs carry any worked days and should be finalized.
func (in PayPeriodInputs) Encoded() bool {
	return in.DaysWorked.IsPositive() || in.RegHolidayDays.IsPositive() || in.SpecHolidayDays.IsPositive()
}

// WithAttendance returns in with the attendance and custom slot values of
// sheet. Loan and contribution choices are kept.
func (in PayPeriodInputs) WithAttendance(sheet PayPeriodInputs) PayPeriodInputs {
	in.DaysWorked = sheet.DaysWorked
	in.OTHours = sheet.OTHours
	in.NDHours = sheet.NDHours
	in.LateMinutes = sheet.LateMinutes
	in.UndertimeMinutes = sheet.UndertimeMinutes
	in.RegHolidayDays = sheet.RegHolidayDays
	in.RegHolidayOTHours = sheet.RegHolidayOTHours
	in.RegHolidayNDHours = sheet.RegHolidayNDHours
	in.SpecHolidayDays = sheet.SpecHolidayDays
	in.SpecHolidayOTHours = sheet.SpecHolidayOTHours
	in.SpecHolidayNDHours = sheet.SpecHolidayNDHours
	in.RestDayHours = sheet.RestDayHours
	in.CustomDeductions = sheet.CustomDeductions
	in.CustomAdditions = sheet.CustomAdditions
	return in
}

// PayrollRecord is a computed payslip. All amounts are rounded to centavos.
type PayrollRecord struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"organization_id"`
	EmployeeID  string    `json:"employee_id"`
	Department  string    `json:"department"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	Inputs PayPeriodInputs `json:"inputs"`

	BasicPay            decimal.Decimal   `json:"basic_pay"`
	OTPay               decimal.Decimal   `json:"ot_pay"`
	NDPay               decimal.Decimal   `json:"nd_pay"`
	HolidayPay          decimal.Decimal   `json:"holiday_pay"`
	GrossPay            decimal.Decimal   `json:"gross_pay"`
	SSSDeduction        decimal.Decimal   `json:"sss_deduction"`
	PhilHealthDeduction decimal.Decimal   `json:"philhealth_deduction"`
	PagIBIGDeduction    decimal.Decimal   `json:"pagibig_deduction"`
	TaxDeduction        decimal.Decimal   `json:"tax_deduction"`
	TimeDeduction       decimal.Decimal   `json:"time_deduction"`
	LoanDeduction       decimal.Decimal   `json:"loan_deduction"`
	NetPay              decimal.Decimal   `json:"net_pay"`
	CustomDeductions    []decimal.Decimal `json:"custom_deductions"`
	CustomAdditions     []decimal.Decimal `json:"custom_additions"`

	CreatedAt time.Time `json:"created_at"`
}

func (r PayrollRecord) StatutoryTotal() decimal.Decimal {
	return r.SSSDeduction.Add(r.PhilHealthDeduction).Add(r.PagIBIGDeduction)
}

func (r PayrollRecord) CustomDeductionsTotal() decimal.Decimal {
	return sum(r.CustomDeductions)
}

func (r PayrollRecord) TotalDeductions() decimal.Decimal {
	return r.StatutoryTotal().
		Add(r.TaxDeduction).
		Add(r.TimeDeduction).
		Add(r.LoanDeduction).
		Add(r.CustomDeductionsTotal())
}

// Period is a distinct finalized pay period.
type Period struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	RecordCount int       `json:"recordCount"`
}

// RecordFilter selects finalized records. By default a record matches when
// its whole period lies within [Start, End]; with ByPeriodEnd only the period
// end is tested.
type RecordFilter struct {
	Start       time.Time
	End         time.Time
	ByPeriodEnd bool
	Department  string
	EmployeeID  string
}
