package payroll

const (
	RunStatusSetup     = "setup"
	RunStatusEncoding  = "encoding"
	RunStatusFinalized = "finalized"

	EmploymentStatusActive = "Active"

	DefaultWorkingDaysPerYear = 313
	MaxDeductionSlots         = 5
	MaxAdditionSlots          = 3

	HoursPerDay      = 8
	MinutesPerHour   = 60
	MonthsPerYear    = 12
	UnassignedDept   = "Unassigned"
	DefaultCurrency  = "PHP"
	AuditEntityType  = "payroll_record"
	AuditFinalize    = "payroll.finalize"
	AuditEdit        = "payroll.edit"
	AuditDelete      = "payroll.delete"
	AuditSettings    = "payroll.settings"
	JobRenderPayslip = "payslip_render"
)
