package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wardops/wardops/internal/platform/fault"
	"github.com/wardops/wardops/internal/platform/writeflow"
)

type Service struct {
	repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{repo: repo}
}

// RecordRejection implements writeflow.ErrorRecorder. All violations land
// in one entry, joined with ";".
func (s *Service) RecordRejection(ctx context.Context, r writeflow.Rejection) error {
	payload, err := payloadMap(r.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return s.repo.Append(ctx, &Entry{
		TableName:    r.Table,
		RowPK:        r.RowPK,
		ErrorMessage: strings.Join(r.Violations, ";"),
		Payload:      payload,
	})
}

func (s *Service) Get(ctx context.Context, id int64) (*Entry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fault.Store("validation_errors", err)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, table string, limit, offset int) ([]*Entry, int, error) {
	items, total, err := s.repo.List(ctx, table, limit, offset)
	if err != nil {
		return nil, 0, fault.Store("validation_errors", err)
	}
	return items, total, nil
}

func payloadMap(v interface{}) (map[string]interface{}, error) {
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
