package reportshandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"phpayroll/internal/domain/auth"
	"phpayroll/internal/domain/payroll"
	"phpayroll/internal/domain/reports"
	"phpayroll/internal/transport/http/middleware"
)

type fakeReports struct {
	Service

	year, month int
	start, end  time.Time
	department  string
	monthErr    error
}

func (f *fakeReports) MonthlyDeductions(ctx context.Context, orgID string, year, month int, department string) (reports.MonthlyReport, error) {
	f.year, f.month, f.department = year, month, department
	if f.monthErr != nil {
		return reports.MonthlyReport{}, f.monthErr
	}
	return reports.MonthlyReport{Year: year, Month: month, Rows: []reports.MonthlyDeduction{{IDNumber: "1001", Name: "Cruz, Ana", Total: decimal.NewFromInt(500)}}}, nil
}

func (f *fakeReports) ThirteenthMonth(ctx context.Context, orgID string, year int) ([]reports.ThirteenthMonth, error) {
	f.year = year
	return []reports.ThirteenthMonth{{IDNumber: "1001", Name: "Cruz, Ana", Amount: decimal.RequireFromString("2875")}}, nil
}

func (f *fakeReports) BIR2316(ctx context.Context, orgID, employeeID string, year int) (reports.BIR2316, error) {
	if employeeID != "emp-1" {
		return reports.BIR2316{}, payroll.ErrEmployeeNotFound
	}
	return reports.BIR2316{Year: year, Employee: payroll.Employee{ID: "emp-1", LastName: "Dela Cruz"}}, nil
}

func (f *fakeReports) MasterRegister(ctx context.Context, orgID string, start, end time.Time, department string) (reports.Register, error) {
	f.start, f.end = start, end
	return reports.Register{PeriodStart: start, PeriodEnd: end}, nil
}

type fakePeriods struct {
	latest payroll.Period
}

func (f fakePeriods) LatestPeriod(ctx context.Context, orgID string) (payroll.Period, error) {
	return f.latest, nil
}

func serve(h *Handler, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", OrgID: "org-1"})))
		})
	})
	h.RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestMonthlyDeductionsDefaultsToCurrentMonth(t *testing.T) {
	svc := &fakeReports{}
	h := NewHandler(svc, nil, nil)
	h.Now = func() time.Time { return time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC) }

	rec := serve(h, "/reports/monthly-deductions?department=Kitchen")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.year != 2026 || svc.month != 7 || svc.department != "Kitchen" {
		t.Fatalf("unexpected call year=%d month=%d dept=%q", svc.year, svc.month, svc.department)
	}
}

func TestMonthlyDeductionsInvalidMonth(t *testing.T) {
	h := NewHandler(&fakeReports{monthErr: reports.ErrInvalidMonth}, nil, nil)
	rec := serve(h, "/reports/monthly-deductions?year=2026&month=13")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = serve(h, "/reports/monthly-deductions?year=twenty")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non numeric year, got %d", rec.Code)
	}
}

func TestThirteenthMonthCSV(t *testing.T) {
	rec := serve(NewHandler(&fakeReports{}, nil, nil), "/reports/thirteenth-month?year=2025&format=csv")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="13th_month_2025.csv"` {
		t.Fatalf("unexpected disposition %q", got)
	}
	if !strings.Contains(rec.Body.String(), "2875.00") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestBIR2316Workbook(t *testing.T) {
	h := NewHandler(&fakeReports{}, nil, nil)
	rec := serve(h, "/reports/bir-2316/emp-1?year=2025&format=xlsx")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="BIR2316_Dela_Cruz_2025.xlsx"` {
		t.Fatalf("unexpected disposition %q", got)
	}
	if !strings.HasPrefix(rec.Body.String(), "PK") {
		t.Fatal("expected a zip container")
	}

	rec = serve(h, "/reports/bir-2316/emp-9?year=2025")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRegisterUsesLatestPeriodWhenUndated(t *testing.T) {
	svc := &fakeReports{}
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	h := NewHandler(svc, fakePeriods{latest: payroll.Period{Start: start, End: end}}, nil)

	rec := serve(h, "/reports/register?format=csv")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !svc.start.Equal(start) || !svc.end.Equal(end) {
		t.Fatalf("expected latest period, got %v - %v", svc.start, svc.end)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="Master_Payroll_2026-03-15.csv"` {
		t.Fatalf("unexpected disposition %q", got)
	}
}
