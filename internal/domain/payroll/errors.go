package payroll

import "errors"

var (
	ErrInvalidWorkingDays  = errors.New("working days per year must be greater than zero")
	ErrInvalidLateMultiple = errors.New("late penalty multiplier must not be negative")
	ErrNegativeSalary      = errors.New("monthly salary must not be negative")
	ErrTooManySlots        = errors.New("too many custom deduction or addition slots")
	ErrUnknownMode         = errors.New("contribution mode must be full, half or none")
	ErrInvalidPeriod       = errors.New("period start must be on or before period end")

	ErrRunNotFound        = errors.New("payroll run not found")
	ErrRunInvalidState    = errors.New("payroll run is not in the required state")
	ErrEmployeeNotInRun   = errors.New("employee is not part of this payroll run")
	ErrNothingToFinalize  = errors.New("no encoded employees to finalize")
	ErrRecordNotFound     = errors.New("payroll record not found")
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrSettingsNotFound   = errors.New("organization settings not found")
	ErrNoFinalizedPeriods = errors.New("no finalized payroll periods")
)

var ErrRecordExists = errors.New("a payroll record already exists for this employee and period")
