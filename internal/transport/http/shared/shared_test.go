package shared

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type setupPayload struct {
	PeriodStart string `json:"periodStart" validate:"required,datetime=2006-01-02"`
	SSSMode     string `json:"sssMode" validate:"omitempty,oneof=full half none"`
}

func TestDecodeJSONReportsTagFailures(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"sssMode":"double"}`))
	rec := httptest.NewRecorder()
	var payload setupPayload
	if DecodeJSON(rec, req, &payload, "req-1") {
		t.Fatal("expected validation failure")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"periodStart"`) || !strings.Contains(body, `"sssMode"`) {
		t.Fatalf("expected both fields reported: %s", body)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"periodStart":"2026-03-01","extra":1}`))
	rec := httptest.NewRecorder()
	var payload setupPayload
	if DecodeJSON(rec, req, &payload, "") {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestDecodeJSONAccepts(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"periodStart":"2026-03-01","sssMode":"half"}`))
	rec := httptest.NewRecorder()
	var payload setupPayload
	if !DecodeJSON(rec, req, &payload, "") {
		t.Fatalf("expected success, got %s", rec.Body.String())
	}
	if payload.SSSMode != "half" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestValidatorDateOrder(t *testing.T) {
	v := NewValidator()
	start := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	v.DateOrder("periodStart", start, "periodEnd", start.AddDate(0, 0, -1))
	issues := v.Issues()
	if len(issues) != 2 || issues[0].Field != "periodEnd" {
		t.Fatalf("unexpected issues %+v", issues)
	}
}

func TestParsePaginationCapsLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&offset=10", nil)
	p := ParsePagination(req, 50, 200)
	if p.Limit != 200 || p.Offset != 10 {
		t.Fatalf("unexpected pagination %+v", p)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if got := ClientIP(req); got != "10.0.0.1" {
		t.Fatalf("expected remote host, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.5" {
		t.Fatalf("expected forwarded ip, got %q", got)
	}
}

func TestParseDateReducesTimestampsToManilaDay(t *testing.T) {
	got, err := ParseDate("2026-03-15T18:30:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	got, err = ParseDate(" 2026-03-15 ")
	if err != nil || !got.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected plain date %v %v", got, err)
	}

	if _, err := ParseDate("15/03/2026"); err == nil {
		t.Fatal("expected error for unsupported layout")
	}
}

func TestParsePaginationClamps(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=900&offset=-4", nil)
	page := ParsePagination(req, 50, 200)
	if page.Limit != 200 || page.Offset != 0 {
		t.Fatalf("unexpected page %+v", page)
	}

	req = httptest.NewRequest(http.MethodGet, "/?limit=abc&offset=20", nil)
	page = ParsePagination(req, 50, 200)
	if page.Limit != 50 || page.Offset != 20 {
		t.Fatalf("unexpected page %+v", page)
	}

	rec := httptest.NewRecorder()
	SetTotalCount(rec, 42)
	if rec.Header().Get(TotalCountHeader) != "42" {
		t.Fatalf("expected total header, got %q", rec.Header().Get(TotalCountHeader))
	}
}
