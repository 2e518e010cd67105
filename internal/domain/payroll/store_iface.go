package payroll

import (
	"context"

	"phpayroll/internal/platform/querier"
)

type StoreAPI interface {
	InTx(ctx context.Context, fn func(q querier.Querier) error) error

	LoadConfig(ctx context.Context, orgID string) (PayrollConfig, error)
	LoadOrgSettings(ctx context.Context, orgID string) (OrgSettings, error)
	SaveOrgSettings(ctx context.Context, q querier.Querier, settings OrgSettings) error

	ListActiveEmployees(ctx context.Context, orgID string) ([]Employee, error)
	GetEmployee(ctx context.Context, orgID, employeeID string) (Employee, error)

	InsertRecord(ctx context.Context, q querier.Querier, record PayrollRecord) (PayrollRecord, error)
	GetRecord(ctx context.Context, orgID, recordID string) (PayrollRecord, error)
	UpdateRecord(ctx context.Context, q querier.Querier, record PayrollRecord) error
	DeleteRecord(ctx context.Context, q querier.Querier, orgID, recordID string) error
	ListRecords(ctx context.Context, orgID string, filter RecordFilter) ([]PayrollRecord, error)
	ListPeriods(ctx context.Context, orgID string) ([]Period, error)
	LatestPeriod(ctx context.Context, orgID string) (Period, error)
}
