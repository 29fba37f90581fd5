package auditlog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/wardops/wardops/internal/platform/writeflow"
)

func newTestHandler() (*Handler, *echo.Echo) {
	h := NewHandler(NewService(newMockRepo()))
	e := echo.New()
	return h, e
}

func seedEntry(t *testing.T, h *Handler, table, pk string) {
	t.Helper()
	err := h.svc.RecordChange(context.Background(), writeflow.Change{
		Table: table,
		RowPK: strPtr(pk),
		Op:    writeflow.OpInsert,
		New:   map[string]interface{}{"id": pk},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestHandler_List(t *testing.T) {
	h, e := newTestHandler()
	seedEntry(t, h, "patients", "PAT-1a2b3c4d5e6f7a8b")
	seedEntry(t, h, "staff", "STF-aaaabbbbcccc")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data  []*Entry `json:"data"`
		Total int      `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 2 || len(resp.Data) != 2 {
		t.Errorf("expected 2 entries, got total=%d len=%d", resp.Total, len(resp.Data))
	}
}

func TestHandler_List_FilterByTable(t *testing.T) {
	h, e := newTestHandler()
	seedEntry(t, h, "patients", "PAT-1a2b3c4d5e6f7a8b")
	seedEntry(t, h, "staff", "STF-aaaabbbbcccc")

	req := httptest.NewRequest(http.MethodGet, "/?table_name=staff", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp struct {
		Data  []*Entry `json:"data"`
		Total int      `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("expected 1 entry, got %d", resp.Total)
	}
	if resp.Data[0].TableName != "staff" {
		t.Errorf("expected staff entry, got %s", resp.Data[0].TableName)
	}
}

func TestHandler_Get(t *testing.T) {
	h, e := newTestHandler()
	seedEntry(t, h, "patients", "PAT-1a2b3c4d5e6f7a8b")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var e2 Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &e2); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if e2.ID != 1 || e2.Operation != "INSERT" {
		t.Errorf("unexpected entry: %+v", e2)
	}
}

func TestHandler_Get_InvalidID(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")
	err := h.Get(c)
	if err == nil {
		t.Fatal("expected error")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_Get_NotFound(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("99")
	err := h.Get(c)
	if err == nil {
		t.Fatal("expected error")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
	body, ok := he.Message.(echo.Map)
	if !ok || body["code"] != "not_found" {
		t.Errorf("expected taxonomy body, got %v", he.Message)
	}
}
