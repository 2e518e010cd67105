package loanshandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"phpayroll/internal/domain/audit"
	"phpayroll/internal/domain/loan"
	"phpayroll/internal/requestctx"
	"phpayroll/internal/transport/http/api"
	"phpayroll/internal/transport/http/middleware"
	"phpayroll/internal/transport/http/shared"
)

type Service interface {
	Create(ctx context.Context, orgID string, in loan.NewLoan) (loan.Loan, error)
	List(ctx context.Context, orgID string, activeOnly bool) ([]loan.Loan, error)
	History(ctx context.Context, orgID, employeeID string) ([]loan.Payment, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

type Handler struct {
	Service Service
	Audit   AuditRecorder
}

func NewHandler(service Service, recorder AuditRecorder) *Handler {
	return &Handler{Service: service, Audit: recorder}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/loans", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/employees/{employeeID}/payments", h.handleHistory)
	})
}

type createPayload struct {
	EmployeeID         string          `json:"employeeId" validate:"required"`
	Description        string          `json:"description" validate:"max=200"`
	Amount             decimal.Decimal `json:"amount"`
	MonthlyInstallment decimal.Decimal `json:"monthlyInstallment"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"
	loans, err := h.Service.List(r.Context(), user.OrgID, activeOnly)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "loans_list_failed", "failed to list loans", requestID)
		return
	}
	if loans == nil {
		loans = []loan.Loan{}
	}
	api.Success(w, loans, requestID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	var payload createPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	created, err := h.Service.Create(r.Context(), user.OrgID, loan.NewLoan{
		EmployeeID:         payload.EmployeeID,
		Description:        payload.Description,
		Amount:             payload.Amount,
		MonthlyInstallment: payload.MonthlyInstallment,
	})
	switch {
	case errors.Is(err, loan.ErrInvalidAmount):
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "amount", Reason: err.Error()}})
		return
	case errors.Is(err, loan.ErrInvalidInstalment):
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "monthlyInstallment", Reason: err.Error()}})
		return
	case errors.Is(err, loan.ErrActiveLoanExists):
		api.Fail(w, http.StatusConflict, "loan_exists", err.Error(), requestID)
		return
	case err != nil:
		requestctx.Logger(r.Context(), zap.L()).Error("loan create failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "loan_create_failed", "failed to create loan", requestID)
		return
	}

	if h.Audit != nil {
		if err := h.Audit.Record(r.Context(), audit.Entry{
			OrgID: user.OrgID, ActorID: user.UserID, Action: "loan.create", EntityType: "loan", EntityID: created.ID,
			RequestID: requestID, IP: shared.ClientIP(r), After: created,
		}); err != nil {
			requestctx.Logger(r.Context(), zap.L()).Warn("audit loan.create failed", zap.Error(err))
		}
	}
	api.Created(w, created, requestID)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	payments, err := h.Service.History(r.Context(), user.OrgID, chi.URLParam(r, "employeeID"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "loan_history_failed", "failed to load loan history", requestID)
		return
	}
	if payments == nil {
		payments = []loan.Payment{}
	}
	api.Success(w, payments, requestID)
}
