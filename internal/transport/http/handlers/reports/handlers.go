package reportshandler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"phpayroll/internal/domain/payroll"
	"phpayroll/internal/domain/reports"
	"phpayroll/internal/export"
	"phpayroll/internal/requestctx"
	"phpayroll/internal/transport/http/api"
	"phpayroll/internal/transport/http/middleware"
	"phpayroll/internal/transport/http/shared"
)

type Service interface {
	MonthlyDeductions(ctx context.Context, orgID string, year, month int, department string) (reports.MonthlyReport, error)
	ThirteenthMonth(ctx context.Context, orgID string, year int) ([]reports.ThirteenthMonth, error)
	BIR1601C(ctx context.Context, orgID string, year, month int) (reports.BIR1601C, error)
	BIR2316(ctx context.Context, orgID, employeeID string, year int) (reports.BIR2316, error)
	MasterRegister(ctx context.Context, orgID string, start, end time.Time, department string) (reports.Register, error)
	JobRuns(ctx context.Context, orgID string, filter reports.JobRunFilter, limit, offset int) ([]reports.JobRun, int, error)
	JobRun(ctx context.Context, orgID, runID string) (reports.JobRun, error)
}

// PeriodSource resolves the most recent finalized period when the register is
// requested without dates.
type PeriodSource interface {
	LatestPeriod(ctx context.Context, orgID string) (payroll.Period, error)
}

type Handler struct {
	Service Service
	Periods PeriodSource
	Logger  *zap.Logger
	Now     func() time.Time
}

func NewHandler(service Service, periods PeriodSource, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Service: service, Periods: periods, Logger: logger, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/monthly-deductions", h.handleMonthlyDeductions)
		r.Get("/thirteenth-month", h.handleThirteenthMonth)
		r.Get("/bir-1601c", h.handleBIR1601C)
		r.Get("/bir-2316/{employeeID}", h.handleBIR2316)
		r.Get("/register", h.handleRegister)
		r.Get("/jobs", h.handleListJobRuns)
		r.Get("/jobs/{runID}", h.handleGetJobRun)
	})
}

func (h *Handler) handleMonthlyDeductions(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	v := shared.NewValidator()
	year := v.Int("year", r.URL.Query().Get("year"), h.Now().Year())
	month := v.Int("month", r.URL.Query().Get("month"), int(h.Now().Month()))
	if v.Reject(w, requestID) {
		return
	}
	report, err := h.Service.MonthlyDeductions(r.Context(), user.OrgID, year, month, r.URL.Query().Get("department"))
	if err != nil {
		h.fail(w, r, err, "report_monthly_failed", "failed to build monthly deductions")
		return
	}
	if wantsFormat(r, "csv") {
		h.writeFile(w, r, "text/csv", fmt.Sprintf("monthly_deductions_%d_%02d.csv", year, month), func(out io.Writer) error {
			return export.WriteMonthlyDeductionsCSV(out, report.Rows)
		})
		return
	}
	api.Success(w, report, requestID)
}

func (h *Handler) handleThirteenthMonth(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	v := shared.NewValidator()
	year := v.Int("year", r.URL.Query().Get("year"), h.Now().Year())
	if v.Reject(w, requestID) {
		return
	}
	rows, err := h.Service.ThirteenthMonth(r.Context(), user.OrgID, year)
	if err != nil {
		h.fail(w, r, err, "report_thirteenth_failed", "failed to compute 13th month pay")
		return
	}
	if wantsFormat(r, "csv") {
		h.writeFile(w, r, "text/csv", fmt.Sprintf("13th_month_%d.csv", year), func(out io.Writer) error {
			return export.WriteThirteenthMonthCSV(out, rows)
		})
		return
	}
	if rows == nil {
		rows = []reports.ThirteenthMonth{}
	}
	api.Success(w, rows, requestID)
}

func (h *Handler) handleBIR1601C(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	v := shared.NewValidator()
	year := v.Int("year", r.URL.Query().Get("year"), h.Now().Year())
	month := v.Int("month", r.URL.Query().Get("month"), int(h.Now().Month()))
	if v.Reject(w, requestID) {
		return
	}
	report, err := h.Service.BIR1601C(r.Context(), user.OrgID, year, month)
	if err != nil {
		h.fail(w, r, err, "report_1601c_failed", "failed to build BIR 1601-C")
		return
	}
	api.Success(w, report, requestID)
}

func (h *Handler) handleBIR2316(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	v := shared.NewValidator()
	year := v.Int("year", r.URL.Query().Get("year"), h.Now().Year())
	if v.Reject(w, requestID) {
		return
	}
	report, err := h.Service.BIR2316(r.Context(), user.OrgID, chi.URLParam(r, "employeeID"), year)
	if err != nil {
		h.fail(w, r, err, "report_2316_failed", "failed to build BIR 2316")
		return
	}
	if wantsFormat(r, "xlsx") {
		name := strings.ReplaceAll(report.Employee.LastName, " ", "_")
		h.writeFile(w, r, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", fmt.Sprintf("BIR2316_%s_%d.xlsx", name, year), func(out io.Writer) error {
			return export.WriteBIR2316(out, report)
		})
		return
	}
	api.Success(w, report, requestID)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	q := r.URL.Query()
	var start, end time.Time
	if q.Get("start") == "" && q.Get("end") == "" && h.Periods != nil {
		latest, err := h.Periods.LatestPeriod(r.Context(), user.OrgID)
		if err != nil {
			h.fail(w, r, err, "report_register_failed", "failed to find the latest period")
			return
		}
		start, end = latest.Start, latest.End
	} else {
		v := shared.NewValidator()
		start, _ = v.Date("start", q.Get("start"))
		end, _ = v.Date("end", q.Get("end"))
		v.DateOrder("start", start, "end", end)
		if v.Reject(w, requestID) {
			return
		}
	}

	register, err := h.Service.MasterRegister(r.Context(), user.OrgID, start, end, q.Get("department"))
	if err != nil {
		h.fail(w, r, err, "report_register_failed", "failed to build payroll register")
		return
	}
	if wantsFormat(r, "csv") {
		h.writeFile(w, r, "text/csv", fmt.Sprintf("Master_Payroll_%s.csv", end.Format(shared.DateLayout)), func(out io.Writer) error {
			return export.WriteMasterRegisterCSV(out, register)
		})
		return
	}
	api.Success(w, register, requestID)
}

func (h *Handler) handleListJobRuns(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	q := r.URL.Query()
	page := shared.ParsePagination(r, 50, 200)
	filter := reports.JobRunFilter{JobType: q.Get("jobType"), Status: q.Get("status")}
	v := shared.NewValidator()
	if raw := q.Get("startedFrom"); raw != "" {
		if from, ok := v.Date("startedFrom", raw); ok {
			filter.StartedFrom = &from
		}
	}
	if raw := q.Get("startedTo"); raw != "" {
		if to, ok := v.Date("startedTo", raw); ok {
			filter.StartedTo = &to
		}
	}
	if v.Reject(w, requestID) {
		return
	}
	runs, total, err := h.Service.JobRuns(r.Context(), user.OrgID, filter, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err, "report_jobs_failed", "failed to list job runs")
		return
	}
	if runs == nil {
		runs = []reports.JobRun{}
	}
	shared.SetTotalCount(w, total)
	api.Success(w, runs, requestID)
}

func (h *Handler) handleGetJobRun(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	run, err := h.Service.JobRun(r.Context(), user.OrgID, chi.URLParam(r, "runID"))
	if err != nil {
		h.fail(w, r, err, "report_job_failed", "failed to load job run")
		return
	}
	api.Success(w, run, requestID)
}

func wantsFormat(r *http.Request, format string) bool {
	return strings.EqualFold(r.URL.Query().Get("format"), format)
}

func (h *Handler) writeFile(w http.ResponseWriter, r *http.Request, contentType, filename string, write func(io.Writer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		h.fail(w, r, err, "report_export_failed", "failed to export report")
		return
	}
	api.Attachment(w, contentType, filename, buf.Bytes())
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, reports.ErrInvalidMonth):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), requestID)
	case errors.Is(err, payroll.ErrEmployeeNotFound),
		errors.Is(err, payroll.ErrNoFinalizedPeriods),
		errors.Is(err, reports.ErrJobRunNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	default:
		requestctx.Logger(r.Context(), h.Logger).Error(message, zap.String("code", code), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
