package patient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/wardops/wardops/internal/platform/writeflow"
)

func newTestHandler() (*Handler, *mockRepo) {
	repo := newMockRepo()
	flow := writeflow.New(writeflow.Config{Audits: &recAudits{}, Errors: &recErrors{}, Logger: zerolog.Nop()})
	return NewHandler(NewService(repo, flow)), repo
}

func jsonContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func seedPatient(t *testing.T, h *Handler, name string, service *string) *Patient {
	t.Helper()
	p := &Patient{Name: name, Service: service}
	if err := h.svc.Create(context.Background(), p); err != nil {
		t.Fatalf("seed patient: %v", err)
	}
	return p
}

func TestHandler_Create(t *testing.T) {
	h, _ := newTestHandler()

	c, rec := jsonContext(http.MethodPost, "/patients",
		`{"name":"John Smith","age":42,"arrival_date":"2024-03-15","service":"ICU"}`)
	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var got Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(got.PatientID, "PAT-") {
		t.Errorf("expected generated PAT- id, got %q", got.PatientID)
	}
	if got.ArrivalDate == nil || got.ArrivalDate.String() != "2024-03-15" {
		t.Errorf("expected arrival date in response, got %v", got.ArrivalDate)
	}
	if !strings.Contains(rec.Body.String(), `"arrival_date":"2024-03-15"`) {
		t.Errorf("expected plain date string in body, got %s", rec.Body.String())
	}
}

func TestHandler_Create_ValidationFault(t *testing.T) {
	h, _ := newTestHandler()

	c, _ := jsonContext(http.MethodPost, "/patients", `{"name":"","age":-1,"satisfaction":150}`)
	err := h.Create(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	body, ok := he.Message.(echo.Map)
	if !ok {
		t.Fatalf("expected structured error body, got %T", he.Message)
	}
	if body["code"] != "validation_failed" {
		t.Errorf("unexpected code %v", body["code"])
	}
	violations, _ := body["violations"].([]string)
	want := []string{"name is required", "satisfaction=150", "age=-1"}
	if len(violations) != len(want) {
		t.Fatalf("expected %d violations, got %v", len(want), violations)
	}
	for i, v := range want {
		if violations[i] != v {
			t.Errorf("violation %d: expected %q, got %q", i, v, violations[i])
		}
	}
}

func TestHandler_Get(t *testing.T) {
	h, _ := newTestHandler()
	p := seedPatient(t, h, "John Smith", strPtr("ICU"))

	c, rec := jsonContext(http.MethodGet, "/patients/"+p.PatientID, "")
	c.SetParamNames("id")
	c.SetParamValues(p.PatientID)
	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.PatientID != p.PatientID || got.Name != "John Smith" {
		t.Errorf("unexpected patient %+v", got)
	}
}

func TestHandler_Get_NotFound(t *testing.T) {
	h, _ := newTestHandler()

	c, _ := jsonContext(http.MethodGet, "/patients/PAT-0000000000000000", "")
	c.SetParamNames("id")
	c.SetParamValues("PAT-0000000000000000")
	err := h.Get(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
	if body := he.Message.(echo.Map); body["code"] != "not_found" {
		t.Errorf("unexpected code %v", body["code"])
	}
}

func TestHandler_List_FilterByService(t *testing.T) {
	h, _ := newTestHandler()
	seedPatient(t, h, "A", strPtr("ICU"))
	seedPatient(t, h, "B", strPtr("ICU"))
	seedPatient(t, h, "C", strPtr("surgery"))

	c, rec := jsonContext(http.MethodGet, "/patients?service=ICU", "")
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got struct {
		Data  []*Patient `json:"data"`
		Total int        `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Total != 2 || len(got.Data) != 2 {
		t.Fatalf("expected 2 ICU patients, got total=%d len=%d", got.Total, len(got.Data))
	}
}

func TestHandler_Update(t *testing.T) {
	h, _ := newTestHandler()
	p := seedPatient(t, h, "John Smith", nil)

	c, rec := jsonContext(http.MethodPut, "/patients/"+p.PatientID,
		`{"name":"John A. Smith","age":43,"service":"surgery"}`)
	c.SetParamNames("id")
	c.SetParamValues(p.PatientID)
	if err := h.Update(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Name != "John A. Smith" || got.Age == nil || *got.Age != 43 {
		t.Errorf("unexpected patient %+v", got)
	}
}

func TestHandler_Patch(t *testing.T) {
	h, _ := newTestHandler()
	p := seedPatient(t, h, "John Smith", strPtr("ICU"))

	c, rec := jsonContext(http.MethodPatch, "/patients/"+p.PatientID, `{"satisfaction":90}`)
	c.SetParamNames("id")
	c.SetParamValues(p.PatientID)
	if err := h.Patch(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Satisfaction == nil || *got.Satisfaction != 90 {
		t.Errorf("expected patched satisfaction, got %+v", got)
	}
	if got.Service == nil || *got.Service != "ICU" {
		t.Errorf("unrelated fields must survive the patch, got %+v", got)
	}
}

func TestHandler_Patch_EmptyBody(t *testing.T) {
	h, _ := newTestHandler()
	p := seedPatient(t, h, "John Smith", nil)

	c, _ := jsonContext(http.MethodPatch, "/patients/"+p.PatientID, `{}`)
	c.SetParamNames("id")
	c.SetParamValues(p.PatientID)
	err := h.Patch(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if he.Message != "no fields to update" {
		t.Errorf("unexpected message: %v", he.Message)
	}
}

func TestHandler_Delete(t *testing.T) {
	h, repo := newTestHandler()
	p := seedPatient(t, h, "John Smith", nil)

	c, rec := jsonContext(http.MethodDelete, "/patients/"+p.PatientID, "")
	c.SetParamNames("id")
	c.SetParamValues(p.PatientID)
	if err := h.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(repo.store) != 0 {
		t.Error("row should be gone after delete")
	}
}
