package holidayshandler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"phpayroll/internal/domain/holiday"
	"phpayroll/internal/requestctx"
	"phpayroll/internal/transport/http/api"
	"phpayroll/internal/transport/http/middleware"
	"phpayroll/internal/transport/http/shared"
)

type Service interface {
	List(ctx context.Context, orgID string, start, end time.Time) ([]holiday.Holiday, error)
	Create(ctx context.Context, orgID, name string, date time.Time, holidayType string) (holiday.Holiday, error)
	Delete(ctx context.Context, orgID, id string) error
}

type Handler struct {
	Service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/holidays", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Delete("/{holidayID}", h.handleDelete)
	})
}

type createPayload struct {
	Name string `json:"name" validate:"required,max=120"`
	Date string `json:"date" validate:"required"`
	Type string `json:"type" validate:"required,oneof=Regular Special"`
}

// handleList returns global and organization holidays dated within [start, end].
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	q := r.URL.Query()
	v := shared.NewValidator()
	start, _ := v.Date("start", q.Get("start"))
	end, _ := v.Date("end", q.Get("end"))
	v.DateOrder("start", start, "end", end)
	if v.Reject(w, requestID) {
		return
	}
	holidays, err := h.Service.List(r.Context(), user.OrgID, start, end)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "holidays_list_failed", "failed to list holidays", requestID)
		return
	}
	if holidays == nil {
		holidays = []holiday.Holiday{}
	}
	api.Success(w, holidays, requestID)
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
	v := shared.NewValidator()
	date, ok := v.Date("date", payload.Date)
	if !ok {
		v.Reject(w, requestID)
		return
	}
	created, err := h.Service.Create(r.Context(), user.OrgID, payload.Name, date, payload.Type)
	if errors.Is(err, holiday.ErrInvalidType) {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "type", Reason: err.Error()}})
		return
	}
	if err != nil {
		requestctx.Logger(r.Context(), zap.L()).Error("holiday create failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "holiday_create_failed", "failed to create holiday", requestID)
		return
	}
	api.Created(w, created, requestID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, requestID := middleware.MustUser(w, r)
	if user == nil {
		return
	}
	id := chi.URLParam(r, "holidayID")
	err := h.Service.Delete(r.Context(), user.OrgID, id)
	switch {
	case errors.Is(err, holiday.ErrHolidayNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, holiday.ErrGlobalHoliday):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case err != nil:
		requestctx.Logger(r.Context(), zap.L()).Error("holiday delete failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "holiday_delete_failed", "failed to delete holiday", requestID)
	default:
		api.Success(w, map[string]string{"id": id, "status": "deleted"}, requestID)
	}
}
