package payrollhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"phpayroll/internal/domain/loan"
	"phpayroll/internal/domain/payroll"
	"phpayroll/internal/export"
	"phpayroll/internal/requestctx"
	"phpayroll/internal/transport/http/api"
	"phpayroll/internal/transport/http/middleware"
	"phpayroll/internal/transport/http/shared"
)

const maxImportBytes = 4 << 20

// Service is the part of payroll.Service the handlers use.
type Service interface {
	Settings(ctx context.Context, orgID string) (payroll.OrgSettings, error)
	UpdateSettings(ctx context.Context, settings payroll.OrgSettings, actor payroll.Actor) (payroll.OrgSettings, error)
	Config(ctx context.Context, orgID string) (payroll.PayrollConfig, error)
	Setup(ctx context.Context, orgID string, req payroll.SetupRequest) (payroll.RunView, error)
	Run(ctx context.Context, orgID, runID string) (payroll.RunView, error)
	RunSettings(ctx context.Context, orgID, runID string) (payroll.OrgSettings, error)
	SetInputs(ctx context.Context, orgID, runID, employeeID string, in payroll.PayPeriodInputs) error
	ImportInputs(ctx context.Context, orgID, runID string, rows map[string]payroll.PayPeriodInputs) (payroll.ImportResult, error)
	Preview(ctx context.Context, orgID, runID string) ([]payroll.PayrollRecord, error)
	Finalize(ctx context.Context, orgID, runID string, actor payroll.Actor) (payroll.FinalizeResult, error)
	Edit(ctx context.Context, orgID, recordID string, in payroll.PayPeriodInputs, actor payroll.Actor) (payroll.PayrollRecord, error)
	Delete(ctx context.Context, orgID, recordID string, actor payroll.Actor) error
	Record(ctx context.Context, orgID, recordID string) (payroll.PayrollRecord, error)
	Employee(ctx context.Context, orgID, employeeID string) (payroll.Employee, error)
	Records(ctx context.Context, orgID string, filter payroll.RecordFilter) ([]payroll.PayrollRecord, error)
	Periods(ctx context.Context, orgID string) ([]payroll.Period, error)
	LatestPeriod(ctx context.Context, orgID string) (payroll.Period, error)
}

// IdempotencyStore replays the stored response of a repeated finalize.
type IdempotencyStore interface {
	Check(ctx context.Context, orgID, userID, endpoint, key, requestHash string) (json.RawMessage, bool, error)
	Save(ctx context.Context, orgID, userID, endpoint, key, requestHash string, response json.RawMessage) error
}

// PayslipArchive returns payslips rendered when their records were finalized.
type PayslipArchive interface {
	ReadPayslip(orgID, recordID string) ([]byte, error)
}

type Handler struct {
	Service     Service
	Idempotency IdempotencyStore
	// Archive is optional. Without it, or when a record has no archived copy,
	// payslips are rendered on request.
	Archive PayslipArchive
	Logger  *zap.Logger
}

func NewHandler(service Service, idempotency IdempotencyStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Service: service, Idempotency: idempotency, Logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.Get("/settings", h.handleGetSettings)
		r.Put("/settings", h.handleUpdateSettings)
		r.Get("/config", h.handleGetConfig)

		r.Post("/runs", h.handleSetupRun)
		r.Get("/runs/{runID}", h.handleGetRun)
		r.Put("/runs/{runID}/inputs/{employeeID}", h.handleSetInputs)
		r.Get("/runs/{runID}/template", h.handleTemplate)
		r.Post("/runs/{runID}/inputs/import", h.handleImportInputs)
		r.Get("/runs/{runID}/preview", h.handlePreview)
		r.Post("/runs/{runID}/finalize", h.handleFinalize)

		r.Get("/records", h.handleListRecords)
		r.Get("/records/{recordID}", h.handleGetRecord)
		r.Put("/records/{recordID}", h.handleEditRecord)
		r.Delete("/records/{recordID}", h.handleDeleteRecord)
		r.Get("/records/{recordID}/payslip", h.handlePayslip)
		r.Get("/payslips", h.handleBulkPayslips)

		r.Get("/periods", h.handleListPeriods)
		r.Get("/periods/latest", h.handleLatestPeriod)
	})
}

type setupPayload struct {
	PeriodStart string `json:"periodStart" validate:"required"`
	PeriodEnd   string `json:"periodEnd" validate:"required"`
	SSSMode     string `json:"sssMode" validate:"omitempty,oneof=full half none"`
	PHMode      string `json:"phMode" validate:"omitempty,oneof=full half none"`
	PIMode      string `json:"piMode" validate:"omitempty,oneof=full half none"`
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	settings, err := h.Service.Settings(r.Context(), user.OrgID)
	if err != nil {
		h.fail(w, r, err, "payroll_settings_failed", "failed to load settings")
		return
	}
	api.Success(w, settings, requestID)
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	var payload payroll.OrgSettings
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	payload.ID = user.OrgID
	updated, err := h.Service.UpdateSettings(r.Context(), payload, actorFrom(r, user.UserID))
	if err != nil {
		h.fail(w, r, err, "payroll_settings_update_failed", "failed to update settings")
		return
	}
	api.Success(w, updated, requestID)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	cfg, err := h.Service.Config(r.Context(), user.OrgID)
	if err != nil {
		h.fail(w, r, err, "payroll_config_failed", "failed to load payroll config")
		return
	}
	api.Success(w, cfg, requestID)
}

func (h *Handler) handleSetupRun(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	var payload setupPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	start, _ := v.Date("periodStart", payload.PeriodStart)
	end, _ := v.Date("periodEnd", payload.PeriodEnd)
	v.DateOrder("periodStart", start, "periodEnd", end)
	if v.Reject(w, requestID) {
		return
	}

	view, err := h.Service.Setup(r.Context(), user.OrgID, payroll.SetupRequest{
		PeriodStart: start,
		PeriodEnd:   end,
		Modes: payroll.RunModes{
			SSS:        payroll.Mode(payload.SSSMode),
			PhilHealth: payroll.Mode(payload.PHMode),
			PagIBIG:    payroll.Mode(payload.PIMode),
		},
	})
	if err != nil {
		h.fail(w, r, err, "payroll_run_setup_failed", "failed to set up payroll run")
		return
	}
	api.Created(w, view, requestID)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	view, err := h.Service.Run(r.Context(), user.OrgID, chi.URLParam(r, "runID"))
	if err != nil {
		h.fail(w, r, err, "payroll_run_failed", "failed to load payroll run")
		return
	}
	api.Success(w, view, requestID)
}

func (h *Handler) handleSetInputs(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	var in payroll.PayPeriodInputs
	if !shared.DecodeJSON(w, r, &in, requestID) {
		return
	}
	v := shared.NewValidator()
	validateInputs(v, in)
	if v.Reject(w, requestID) {
		return
	}
	runID := chi.URLParam(r, "runID")
	if err := h.Service.SetInputs(r.Context(), user.OrgID, runID, chi.URLParam(r, "employeeID"), in); err != nil {
		h.fail(w, r, err, "payroll_inputs_failed", "failed to save inputs")
		return
	}
	view, err := h.Service.Run(r.Context(), user.OrgID, runID)
	if err != nil {
		h.fail(w, r, err, "payroll_run_failed", "failed to load payroll run")
		return
	}
	api.Success(w, view, requestID)
}

func (h *Handler) handleTemplate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	runID := chi.URLParam(r, "runID")
	view, err := h.Service.Run(r.Context(), user.OrgID, runID)
	if err != nil {
		h.fail(w, r, err, "payroll_run_failed", "failed to load payroll run")
		return
	}
	settings, err := h.Service.RunSettings(r.Context(), user.OrgID, runID)
	if err != nil {
		h.fail(w, r, err, "payroll_run_failed", "failed to load payroll run")
		return
	}
	var buf bytes.Buffer
	if err := export.WriteAttendanceTemplate(&buf, settings, view.Entries); err != nil {
		h.fail(w, r, err, "payroll_template_failed", "failed to build template")
		return
	}
	api.Attachment(w, "text/csv", fmt.Sprintf("attendance_%s_%s.csv", view.PeriodStart.Format(shared.DateLayout), view.PeriodEnd.Format(shared.DateLayout)), buf.Bytes())
}

func (h *Handler) handleImportInputs(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	runID := chi.URLParam(r, "runID")
	body, err := readCSVUpload(r)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "attendance file is required", requestID)
		return
	}
	settings, err := h.Service.RunSettings(r.Context(), user.OrgID, runID)
	if err != nil {
		h.fail(w, r, err, "payroll_run_failed", "failed to load payroll run")
		return
	}
	rows, err := export.ParseAttendance(bytes.NewReader(body), settings)
	if err != nil {
		h.fail(w, r, err, "payroll_import_failed", "failed to read attendance file")
		return
	}
	result, err := h.Service.ImportInputs(r.Context(), user.OrgID, runID, rows)
	if err != nil {
		h.fail(w, r, err, "payroll_import_failed", "failed to import attendance")
		return
	}
	api.Success(w, result, requestID)
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	records, err := h.Service.Preview(r.Context(), user.OrgID, chi.URLParam(r, "runID"))
	if err != nil {
		h.fail(w, r, err, "payroll_preview_failed", "failed to compute preview")
		return
	}
	api.Success(w, records, requestID)
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	runID := chi.URLParam(r, "runID")
	logger := requestctx.Logger(r.Context(), h.Logger)

	idempotencyKey := strings.TrimSpace(r.Header.Get(middleware.IdempotencyHeader))
	if idempotencyKey != "" {
		if err := middleware.ValidateIdempotencyKey(idempotencyKey); err != nil {
			shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: middleware.IdempotencyHeader, Reason: err.Error()}})
			return
		}
	}
	requestHash := middleware.RequestHash([]byte(runID))
	if idempotencyKey != "" && h.Idempotency != nil {
		stored, found, err := h.Idempotency.Check(r.Context(), user.OrgID, user.UserID, "payroll.finalize", idempotencyKey, requestHash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", err.Error(), requestID)
			return
		}
		if err != nil {
			logger.Warn("idempotency check failed", zap.Error(err))
		}
		if found {
			api.Success(w, stored, requestID)
			return
		}
	}

	result, err := h.Service.Finalize(r.Context(), user.OrgID, runID, actorFrom(r, user.UserID))
	if err != nil {
		h.fail(w, r, err, "payroll_finalize_failed", "failed to finalize payroll")
		return
	}

	if idempotencyKey != "" && h.Idempotency != nil {
		encoded, err := json.Marshal(result)
		if err != nil {
			logger.Warn("idempotency response marshal failed", zap.Error(err))
		} else if err := h.Idempotency.Save(r.Context(), user.OrgID, user.UserID, "payroll.finalize", idempotencyKey, requestHash, encoded); err != nil {
			logger.Warn("idempotency save failed", zap.Error(err))
		}
	}
	api.Success(w, result, requestID)
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	filter, ok := recordFilter(w, r, requestID)
	if !ok {
		return
	}
	records, err := h.Service.Records(r.Context(), user.OrgID, filter)
	if err != nil {
		h.fail(w, r, err, "payroll_records_failed", "failed to list payroll records")
		return
	}
	if records == nil {
		records = []payroll.PayrollRecord{}
	}
	api.Success(w, records, requestID)
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	record, err := h.Service.Record(r.Context(), user.OrgID, chi.URLParam(r, "recordID"))
	if err != nil {
		h.fail(w, r, err, "payroll_record_failed", "failed to load payroll record")
		return
	}
	api.Success(w, record, requestID)
}

func (h *Handler) handleEditRecord(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	var in payroll.PayPeriodInputs
	if !shared.DecodeJSON(w, r, &in, requestID) {
		return
	}
	v := shared.NewValidator()
	validateInputs(v, in)
	if v.Reject(w, requestID) {
		return
	}
	record, err := h.Service.Edit(r.Context(), user.OrgID, chi.URLParam(r, "recordID"), in, actorFrom(r, user.UserID))
	if err != nil {
		h.fail(w, r, err, "payroll_record_update_failed", "failed to update payroll record")
		return
	}
	api.Success(w, record, requestID)
}

func (h *Handler) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	recordID := chi.URLParam(r, "recordID")
	if err := h.Service.Delete(r.Context(), user.OrgID, recordID, actorFrom(r, user.UserID)); err != nil {
		h.fail(w, r, err, "payroll_record_delete_failed", "failed to delete payroll record")
		return
	}
	api.Success(w, map[string]string{"id": recordID, "status": "deleted"}, requestID)
}

func (h *Handler) handlePayslip(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	record, err := h.Service.Record(r.Context(), user.OrgID, chi.URLParam(r, "recordID"))
	if err != nil {
		h.fail(w, r, err, "payroll_record_failed", "failed to load payroll record")
		return
	}
	filename := "payslip_" + record.ID + ".pdf"
	if h.Archive != nil {
		data, err := h.Archive.ReadPayslip(user.OrgID, record.ID)
		if err == nil {
			api.Attachment(w, "application/pdf", filename, data)
			return
		}
		if !errors.Is(err, fs.ErrNotExist) {
			requestctx.Logger(r.Context(), h.Logger).Warn("archived payslip unreadable", zap.String("recordId", record.ID), zap.Error(err))
		}
	}
	slips, err := h.payslips(r.Context(), user.OrgID, []payroll.PayrollRecord{record})
	if err != nil {
		h.fail(w, r, err, "payslip_failed", "failed to build payslip")
		return
	}
	h.writePDF(w, r, filename, slips)
}

func (h *Handler) handleBulkPayslips(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	filter, ok := recordFilter(w, r, requestID)
	if !ok {
		return
	}
	records, err := h.Service.Records(r.Context(), user.OrgID, filter)
	if err != nil {
		h.fail(w, r, err, "payroll_records_failed", "failed to list payroll records")
		return
	}
	slips, err := h.payslips(r.Context(), user.OrgID, records)
	if err != nil {
		h.fail(w, r, err, "payslip_failed", "failed to build payslips")
		return
	}
	h.writePDF(w, r, fmt.Sprintf("payslips_%s_%s.pdf", filter.Start.Format(shared.DateLayout), filter.End.Format(shared.DateLayout)), slips)
}

func (h *Handler) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	periods, err := h.Service.Periods(r.Context(), user.OrgID)
	if err != nil {
		h.fail(w, r, err, "payroll_periods_failed", "failed to list periods")
		return
	}
	if periods == nil {
		periods = []payroll.Period{}
	}
	api.Success(w, periods, requestID)
}

func (h *Handler) handleLatestPeriod(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	period, err := h.Service.LatestPeriod(r.Context(), user.OrgID)
	if err != nil {
		h.fail(w, r, err, "payroll_periods_failed", "failed to load latest period")
		return
	}
	api.Success(w, period, requestID)
}

func (h *Handler) payslips(ctx context.Context, orgID string, records []payroll.PayrollRecord) ([]export.Payslip, error) {
	settings, err := h.Service.Settings(ctx, orgID)
	if err != nil {
		return nil, err
	}
	employees := map[string]payroll.Employee{}
	slips := make([]export.Payslip, 0, len(records))
	for _, record := range records {
		emp, ok := employees[record.EmployeeID]
		if !ok {
			emp, err = h.Service.Employee(ctx, orgID, record.EmployeeID)
			if err != nil {
				return nil, err
			}
			employees[record.EmployeeID] = emp
		}
		slips = append(slips, export.Payslip{Settings: settings, Employee: emp, Record: record})
	}
	return slips, nil
}

func (h *Handler) writePDF(w http.ResponseWriter, r *http.Request, filename string, slips []export.Payslip) {
	var buf bytes.Buffer
	if err := export.WritePayslipsPDF(&buf, slips); err != nil {
		h.fail(w, r, err, "payslip_failed", "failed to render payslip")
		return
	}
	api.Attachment(w, "application/pdf", filename, buf.Bytes())
}

// fail maps domain errors to HTTP statuses. Anything unrecognised is logged
// and reported as a 500 with the given code.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, payroll.ErrRunNotFound),
		errors.Is(err, payroll.ErrRecordNotFound),
		errors.Is(err, payroll.ErrEmployeeNotFound),
		errors.Is(err, payroll.ErrEmployeeNotInRun),
		errors.Is(err, payroll.ErrNoFinalizedPeriods):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, payroll.ErrRunInvalidState),
		errors.Is(err, payroll.ErrNothingToFinalize),
		errors.Is(err, payroll.ErrRecordExists),
		errors.Is(err, loan.ErrActiveLoanExists):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, payroll.ErrInvalidPeriod),
		errors.Is(err, payroll.ErrUnknownMode),
		errors.Is(err, payroll.ErrInvalidWorkingDays),
		errors.Is(err, payroll.ErrInvalidLateMultiple),
		errors.Is(err, payroll.ErrTooManySlots),
		errors.Is(err, payroll.ErrNegativeSalary),
		errors.Is(err, export.ErrInvalidHeader),
		errors.Is(err, export.ErrInvalidCell),
		errors.Is(err, export.ErrNothingToRender):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), requestID)
	default:
		requestctx.Logger(r.Context(), h.Logger).Error(message, zap.String("code", code), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

func actorFrom(r *http.Request, userID string) payroll.Actor {
	return payroll.Actor{UserID: userID, RequestID: middleware.GetRequestID(r.Context()), IP: shared.ClientIP(r)}
}

// recordFilter reads start, end, department and employeeId from the query.
// Both dates are required.
func recordFilter(w http.ResponseWriter, r *http.Request, requestID string) (payroll.RecordFilter, bool) {
	q := r.URL.Query()
	v := shared.NewValidator()
	start, _ := v.Date("start", q.Get("start"))
	end, _ := v.Date("end", q.Get("end"))
	v.DateOrder("start", start, "end", end)
	if v.Reject(w, requestID) {
		return payroll.RecordFilter{}, false
	}
	return payroll.RecordFilter{
		Start:      start,
		End:        end,
		Department: strings.TrimSpace(q.Get("department")),
		EmployeeID: strings.TrimSpace(q.Get("employeeId")),
	}, true
}

func validateInputs(v *shared.Validator, in payroll.PayPeriodInputs) {
	v.NonNegative("daysWorked", in.DaysWorked)
	v.NonNegative("otHours", in.OTHours)
	v.NonNegative("ndHours", in.NDHours)
	v.NonNegativeInt("lateMinutes", in.LateMinutes)
	v.NonNegativeInt("undertimeMinutes", in.UndertimeMinutes)
	v.NonNegative("regHolidayDays", in.RegHolidayDays)
	v.NonNegative("regHolidayOtHours", in.RegHolidayOTHours)
	v.NonNegative("regHolidayNdHours", in.RegHolidayNDHours)
	v.NonNegative("specHolidayDays", in.SpecHolidayDays)
	v.NonNegative("specHolidayOtHours", in.SpecHolidayOTHours)
	v.NonNegative("specHolidayNdHours", in.SpecHolidayNDHours)
	v.NonNegative("restDayHours", in.RestDayHours)
	v.NonNegative("loanPayment", in.LoanPayment)
	v.NonNegativeEach("customDeductions", in.CustomDeductions)
	v.NonNegativeEach("customAdditions", in.CustomAdditions)
	v.Mode("sssMode", in.SSSMode)
	v.Mode("phMode", in.PHMode)
	v.Mode("piMode", in.PIMode)
	v.Mode("loanMode", in.LoanMode)
}

// readCSVUpload accepts either a multipart form with a "file" part or a raw text/csv body.
func readCSVUpload(r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			return nil, err
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return io.ReadAll(io.LimitReader(file, maxImportBytes))
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty upload")
	}
	return body, nil
}
