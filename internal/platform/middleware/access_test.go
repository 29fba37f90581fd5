package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/wardops/wardops/internal/platform/auth"
)

// mockAccessRecorder collects access entries for assertions.
type mockAccessRecorder struct {
	mu      sync.Mutex
	entries []AccessEntry
	err     error // if set, RecordAccess returns this error
}

func (m *mockAccessRecorder) RecordAccess(entry AccessEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return m.err
}

func (m *mockAccessRecorder) last() AccessEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[len(m.entries)-1]
}

func (m *mockAccessRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// newTestContext creates an echo context for the given request.
func newTestContext(method, path string, opts ...func(*http.Request)) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

func withActor(actor string) func(*http.Request) {
	return func(req *http.Request) {
		*req = *req.WithContext(auth.WithActor(req.Context(), actor))
	}
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestAccessLog_PatientUpdate(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	rec := &mockAccessRecorder{}

	c, _ := newTestContext(http.MethodPut,
		"/api/v1/patients/PAT-0a1b2c3d4e5f6071",
		withActor("dr.adams"),
	)
	c.Set("request_id", "req-abc")

	mw := AccessLog(logger, rec)
	h := mw(okHandler)
	err := h(c)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("expected 1 access entry, got %d", rec.count())
	}
	entry := rec.last()
	if entry.Actor != "dr.adams" {
		t.Errorf("expected actor 'dr.adams', got %q", entry.Actor)
	}
	if entry.Resource != "patients" {
		t.Errorf("expected resource 'patients', got %q", entry.Resource)
	}
	if entry.RowPK != "PAT-0a1b2c3d4e5f6071" {
		t.Errorf("unexpected row_pk %q", entry.RowPK)
	}
	if entry.Action != "update" {
		t.Errorf("expected action 'update', got %q", entry.Action)
	}
	if entry.RequestID != "req-abc" {
		t.Errorf("expected request_id 'req-abc', got %q", entry.RequestID)
	}
	if entry.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", entry.StatusCode)
	}
}

func TestAccessLog_AnonymousActor(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	rec := &mockAccessRecorder{}

	c, _ := newTestContext(http.MethodGet, "/api/v1/staff")

	mw := AccessLog(logger, rec)
	h := mw(okHandler)
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := rec.last()
	if entry.Actor != "" {
		t.Errorf("expected empty actor for anonymous request, got %q", entry.Actor)
	}
	if entry.Action != "read" {
		t.Errorf("expected action 'read', got %q", entry.Action)
	}
}

func TestAccessLog_SkipsNonAPIPaths(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	rec := &mockAccessRecorder{}

	paths := []string{"/health", "/health/db", "/", "/other/path"}
	for _, path := range paths {
		c, _ := newTestContext(http.MethodGet, path)
		mw := AccessLog(logger, rec)
		h := mw(okHandler)
		if err := h(c); err != nil {
			t.Fatalf("unexpected error for path %s: %v", path, err)
		}
	}

	if rec.count() != 0 {
		t.Errorf("expected 0 access entries for non-API paths, got %d", rec.count())
	}
}

func TestAccessLog_RecorderError_DoesNotBreakRequest(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	rec := &mockAccessRecorder{err: errors.New("database connection failed")}

	c, _ := newTestContext(http.MethodDelete, "/api/v1/staff/STF-0a1b2c3d4e5f")

	mw := AccessLog(logger, rec)
	h := mw(okHandler)
	if err := h(c); err != nil {
		t.Fatalf("expected no error even when recorder fails, got: %v", err)
	}
}

func TestAccessLog_NoRecorder_LogOnly(t *testing.T) {
	logger := zerolog.New(os.Stderr)

	c, _ := newTestContext(http.MethodGet, "/api/v1/services-weekly")

	mw := AccessLog(logger)
	h := mw(okHandler)
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAccessLog_CapturesIPAndUserAgent(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	rec := &mockAccessRecorder{}

	c, _ := newTestContext(http.MethodGet, "/api/v1/patients",
		func(req *http.Request) {
			req.Header.Set("User-Agent", "wardops-client/1.0")
		},
	)

	mw := AccessLog(logger, rec)
	h := mw(okHandler)
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry := rec.last()
	if entry.UserAgent != "wardops-client/1.0" {
		t.Errorf("expected user_agent 'wardops-client/1.0', got %q", entry.UserAgent)
	}
	// httptest uses 192.0.2.1 by default
	if entry.IPAddress == "" {
		t.Error("expected non-empty IP address")
	}
}

func TestHttpMethodToAction(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{http.MethodGet, "read"},
		{http.MethodHead, "read"},
		{http.MethodPost, "create"},
		{http.MethodPut, "update"},
		{http.MethodPatch, "update"},
		{http.MethodDelete, "delete"},
		{http.MethodOptions, "read"},
	}
	for _, tt := range tests {
		if got := httpMethodToAction(tt.method); got != tt.want {
			t.Errorf("httpMethodToAction(%q) = %q, want %q", tt.method, got, tt.want)
		}
	}
}

func TestExtractResource(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/patients", "patients"},
		{"/api/v1/patients/PAT-1", "patients"},
		{"/api/v1/staff-schedule/availability", "staff-schedule"},
		{"/api/v1/", "unknown"},
	}
	for _, tt := range tests {
		if got := extractResource(tt.path); got != tt.want {
			t.Errorf("extractResource(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestExtractRowPK(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/patients/PAT-1", "PAT-1"},
		{"/api/v1/staff-schedule/42", "42"},
		{"/api/v1/staff-schedule/availability", ""},
		{"/api/v1/services-weekly/metrics", ""},
		{"/api/v1/patients", ""},
	}
	for _, tt := range tests {
		if got := extractRowPK(tt.path); got != tt.want {
			t.Errorf("extractRowPK(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestAccessRecorderFunc(t *testing.T) {
	var called bool
	fn := AccessRecorderFunc(func(entry AccessEntry) error {
		called = true
		return nil
	})

	if err := fn.RecordAccess(AccessEntry{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected function to be called")
	}
}
