package auditlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wardops/wardops/internal/platform/fault"
	"github.com/wardops/wardops/internal/platform/writeflow"
)

type Service struct {
	repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{repo: repo}
}

// RecordChange implements writeflow.AuditRecorder. The append error is
// returned raw: the coordinator decides whether it rolls the unit back or
// surfaces as audit_write_failed.
func (s *Service) RecordChange(ctx context.Context, ch writeflow.Change) error {
	old, err := snapshot(ch.Old)
	if err != nil {
		return fmt.Errorf("encode old snapshot: %w", err)
	}
	newV, err := snapshot(ch.New)
	if err != nil {
		return fmt.Errorf("encode new snapshot: %w", err)
	}
	return s.repo.Append(ctx, &Entry{
		TableName: ch.Table,
		RowPK:     ch.RowPK,
		Operation: ch.Op,
		OldValues: old,
		NewValues: newV,
		ChangedBy: ch.Actor,
	})
}

func (s *Service) Get(ctx context.Context, id int64) (*Entry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fault.Store("audit_log", err)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	items, total, err := s.repo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, fault.Store("audit_log", err)
	}
	return items, total, nil
}

// snapshot flattens a row value into its column map. Passing the value
// through JSON keeps date fields as YYYY-MM-DD strings in both stores.
func snapshot(v interface{}) (map[string]interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if m, ok := v.(map[string]interface{}); ok {
		return m, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
