package schedule

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wardops/wardops/internal/platform/fault"
	"github.com/wardops/wardops/internal/platform/writeflow"
)

// -- Mock Repository --

type mockRepo struct {
	store  map[int64]*Entry
	nextID int64
	err    error
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[int64]*Entry)}
}

func (m *mockRepo) Create(_ context.Context, e *Entry) error {
	if m.err != nil {
		return m.err
	}
	m.nextID++
	e.ID = m.nextID
	cp := *e
	m.store[e.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Entry, error) {
	if m.err != nil {
		return nil, m.err
	}
	e, ok := m.store[id]
	if !ok {
		return nil, fault.NotFound(tableName, "")
	}
	cp := *e
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	var items []*Entry
	for _, e := range m.store {
		if f.Service != "" && (e.Service == nil || *e.Service != f.Service) {
			continue
		}
		if f.DayOrShift != "" && e.DayOrShift != f.DayOrShift {
			continue
		}
		if f.StaffID != "" && (e.StaffID == nil || *e.StaffID != f.StaffID) {
			continue
		}
		if f.OnShift != nil && e.OnShift != *f.OnShift {
			continue
		}
		cp := *e
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func (m *mockRepo) Update(_ context.Context, e *Entry) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.store[e.ID]; !ok {
		return fault.NotFound(tableName, "")
	}
	cp := *e
	m.store[e.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) (*Entry, error) {
	if m.err != nil {
		return nil, m.err
	}
	old, ok := m.store[id]
	if !ok {
		return nil, fault.NotFound(tableName, "")
	}
	delete(m.store, id)
	return old, nil
}

func (m *mockRepo) CountOnShift(_ context.Context, service, dayOrShift string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	n := 0
	for _, e := range m.store {
		if e.Service != nil && *e.Service == service && e.DayOrShift == dayOrShift && e.OnShift {
			n++
		}
	}
	return n, nil
}

// -- Fakes --

type fakeDirectory struct {
	known map[string]bool
	err   error
}

func (d *fakeDirectory) StaffExists(_ context.Context, id string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.known[id], nil
}

type recAudits struct {
	changes []writeflow.Change
}

func (r *recAudits) RecordChange(_ context.Context, ch writeflow.Change) error {
	r.changes = append(r.changes, ch)
	return nil
}

type recErrors struct {
	rejections []writeflow.Rejection
}

func (r *recErrors) RecordRejection(_ context.Context, rej writeflow.Rejection) error {
	r.rejections = append(r.rejections, rej)
	return nil
}

func newTestService() (*Service, *mockRepo, *fakeDirectory, *recAudits, *recErrors) {
	repo := newMockRepo()
	dir := &fakeDirectory{known: make(map[string]bool)}
	audits := &recAudits{}
	errs := &recErrors{}
	flow := writeflow.New(writeflow.Config{Audits: audits, Errors: errs, Logger: zerolog.Nop()})
	return NewService(repo, dir, flow), repo, dir, audits, errs
}

func strPtr(s string) *string { return &s }

func TestCreate_AssignsSequentialIDs(t *testing.T) {
	svc, _, _, audits, _ := newTestService()
	ctx := context.Background()

	first := &Entry{DayOrShift: "monday_night", Service: strPtr("ICU"), OnShift: true}
	if err := svc.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	second := &Entry{DayOrShift: "tuesday_day", Service: strPtr("ICU")}
	if err := svc.Create(ctx, second); err != nil {
		t.Fatalf("create: %v", err)
	}

	if first.ID != 1 || second.ID != 2 {
		t.Errorf("expected sequential ids 1 and 2, got %d and %d", first.ID, second.ID)
	}
	if len(audits.changes) != 2 {
		t.Fatalf("expected 2 audit changes, got %d", len(audits.changes))
	}
	if audits.changes[0].RowPK == nil || *audits.changes[0].RowPK != "1" {
		t.Errorf("expected audit row pk \"1\", got %v", audits.changes[0].RowPK)
	}
}

func TestCreate_MissingDayOrShift(t *testing.T) {
	svc, repo, _, _, errs := newTestService()

	err := svc.Create(context.Background(), &Entry{Service: strPtr("ICU")})
	if !fault.IsValidation(err) {
		t.Fatalf("expected validation fault, got %v", err)
	}
	f, _ := fault.As(err)
	if len(f.Violations) != 1 || f.Violations[0] != "day_or_shift is required" {
		t.Errorf("unexpected violations %v", f.Violations)
	}
	if len(repo.store) != 0 {
		t.Error("rejected candidate must not be stored")
	}
	if len(errs.rejections) != 1 {
		t.Errorf("expected 1 rejection, got %d", len(errs.rejections))
	}
}

func TestCreate_UnknownStaffReference(t *testing.T) {
	svc, repo, _, _, errs := newTestService()

	err := svc.Create(context.Background(), &Entry{DayOrShift: "monday_night", StaffID: strPtr("STF-abcdefabcdef")})
	if !fault.IsValidation(err) {
		t.Fatalf("expected validation fault, got %v", err)
	}
	if fault.Code(err) != fault.CodeValidation {
		t.Errorf("pre-checked reference should surface as %s, got %s", fault.CodeValidation, fault.Code(err))
	}
	f, _ := fault.As(err)
	if len(f.Violations) != 1 || f.Violations[0] != "staff_id=STF-abcdefabcdef does not exist" {
		t.Errorf("unexpected violations %v", f.Violations)
	}
	if len(repo.store) != 0 {
		t.Error("rejected candidate must not be stored")
	}
	if len(errs.rejections) != 1 {
		t.Errorf("expected 1 rejection, got %d", len(errs.rejections))
	}
}

func TestCreate_KnownStaffReference(t *testing.T) {
	svc, repo, dir, _, _ := newTestService()
	dir.known["STF-abcdefabcdef"] = true

	err := svc.Create(context.Background(), &Entry{DayOrShift: "monday_night", StaffID: strPtr("STF-abcdefabcdef")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.store) != 1 {
		t.Error("entry should be stored")
	}
}

func TestCreate_ProbeFailureSkipsPreCheck(t *testing.T) {
	svc, repo, dir, _, _ := newTestService()
	dir.err = errors.New("staff store down")

	err := svc.Create(context.Background(), &Entry{DayOrShift: "monday_night", StaffID: strPtr("STF-abcdefabcdef")})
	if err != nil {
		t.Fatalf("expected pre-check to be skipped, got %v", err)
	}
	if len(repo.store) != 1 {
		t.Error("entry should be stored when the probe is unavailable")
	}
}

func TestCreate_LateReferentialConflict(t *testing.T) {
	svc, repo, dir, audits, errs := newTestService()
	dir.known["STF-abcdefabcdef"] = true
	repo.err = fault.Referential(tableName, "", "staff_id=STF-abcdefabcdef does not exist")

	err := svc.Create(context.Background(), &Entry{DayOrShift: "monday_night", StaffID: strPtr("STF-abcdefabcdef")})
	if fault.Code(err) != fault.CodeReferential {
		t.Fatalf("expected %s, got %v", fault.CodeReferential, err)
	}
	if fault.Retryable(err) {
		t.Error("referential conflicts are not retryable")
	}
	if len(audits.changes) != 0 {
		t.Error("failed commit must not be audited")
	}
	if len(errs.rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(errs.rejections))
	}
	if got := errs.rejections[0].Violations[0]; got != "staff_id=STF-abcdefabcdef does not exist" {
		t.Errorf("unexpected rejection violation %q", got)
	}
}

func TestAvailability_CountsOnShiftOnly(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ctx := context.Background()

	entries := []*Entry{
		{DayOrShift: "monday_night", Service: strPtr("ICU"), OnShift: true},
		{DayOrShift: "monday_night", Service: strPtr("ICU"), OnShift: true},
		{DayOrShift: "monday_night", Service: strPtr("ICU"), OnShift: false},
		{DayOrShift: "monday_night", Service: strPtr("surgery"), OnShift: true},
		{DayOrShift: "tuesday_day", Service: strPtr("ICU"), OnShift: true},
	}
	for _, e := range entries {
		if err := svc.Create(ctx, e); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	n, err := svc.Availability(ctx, "ICU", "monday_night")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 on shift, got %d", n)
	}
}

func TestPatch_ToggleOnShift(t *testing.T) {
	svc, _, _, audits, _ := newTestService()
	ctx := context.Background()

	e := &Entry{DayOrShift: "monday_night", Service: strPtr("ICU"), OnShift: true}
	if err := svc.Create(ctx, e); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Patch(ctx, e.ID, map[string]interface{}{"on_shift": false})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if updated.OnShift {
		t.Error("expected on_shift false after patch")
	}

	ch := audits.changes[len(audits.changes)-1]
	if ch.Op != writeflow.OpUpdate {
		t.Fatalf("expected UPDATE audit entry, got %s", ch.Op)
	}
	if old := ch.Old.(*Entry); !old.OnShift {
		t.Error("old snapshot should carry the previous on_shift value")
	}
}

func TestPatch_StaffReferenceChecked(t *testing.T) {
	svc, _, _, _, errs := newTestService()
	ctx := context.Background()

	e := &Entry{DayOrShift: "monday_night"}
	if err := svc.Create(ctx, e); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := svc.Patch(ctx, e.ID, map[string]interface{}{"staff_id": "STF-abcdefabcdef"})
	if !fault.IsValidation(err) {
		t.Fatalf("expected validation fault, got %v", err)
	}
	if len(errs.rejections) != 1 {
		t.Errorf("expected 1 rejection, got %d", len(errs.rejections))
	}
}

func TestPatch_NoKnownFields(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ctx := context.Background()

	e := &Entry{DayOrShift: "monday_night"}
	if err := svc.Create(ctx, e); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := svc.Patch(ctx, e.ID, map[string]interface{}{"bogus": 1})
	if err != errNoFields {
		t.Fatalf("expected errNoFields, got %v", err)
	}
}

func TestDelete_AuditsOldSnapshot(t *testing.T) {
	svc, repo, _, audits, _ := newTestService()
	ctx := context.Background()

	e := &Entry{DayOrShift: "monday_night"}
	if err := svc.Create(ctx, e); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(repo.store) != 0 {
		t.Error("row should be deleted")
	}

	ch := audits.changes[len(audits.changes)-1]
	if ch.Op != writeflow.OpDelete {
		t.Fatalf("expected DELETE, got %s", ch.Op)
	}
	if ch.Old == nil || ch.New != nil {
		t.Errorf("delete change should carry old snapshot only: old=%v new=%v", ch.Old, ch.New)
	}
}

func TestReplace_NotFound(t *testing.T) {
	svc, _, _, audits, errs := newTestService()

	_, err := svc.Replace(context.Background(), &Entry{ID: 99, DayOrShift: "monday_night"})
	if !fault.IsNotFound(err) {
		t.Fatalf("expected not-found fault, got %v", err)
	}
	if len(audits.changes) != 0 || len(errs.rejections) != 0 {
		t.Error("missing rows must record nothing")
	}
}
