package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/wardops/wardops/internal/platform/fault"
	"github.com/wardops/wardops/internal/platform/writeflow"
)

const tableName = "patients"

var (
	errNoFields   = errors.New("no fields to update")
	errBadPayload = errors.New("invalid patch payload")
)

type Service struct {
	repo Repo
	flow *writeflow.Coordinator
}

func NewService(repo Repo, flow *writeflow.Coordinator) *Service {
	return &Service{repo: repo, flow: flow}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	return s.flow.Execute(ctx, writeflow.Request{
		Table:    tableName,
		Op:       writeflow.OpInsert,
		Payload:  p,
		Validate: func(context.Context) []string { return p.Validate() },
		Mutate: func(ctx context.Context) (*writeflow.Result, error) {
			if err := s.repo.Create(ctx, p); err != nil {
				return nil, err
			}
			return &writeflow.Result{RowPK: p.PatientID, New: p}, nil
		},
	})
}

func (s *Service) Get(ctx context.Context, id string) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fault.Store(tableName, err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error) {
	items, total, err := s.repo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, fault.Store(tableName, err)
	}
	return items, total, nil
}

// Replace overwrites every mutable field of the row.
func (s *Service) Replace(ctx context.Context, p *Patient) (*Patient, error) {
	current, err := s.repo.GetByID(ctx, p.PatientID)
	if err != nil {
		return nil, fault.Store(tableName, err)
	}
	return s.update(ctx, current, p)
}

// Patch merges the provided fields into the current row and validates
// the merged document, so a partial update can never make a row invalid.
func (s *Service) Patch(ctx context.Context, id string, changes map[string]interface{}) (*Patient, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fault.Store(tableName, err)
	}
	merged, touched, err := current.Merge(changes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadPayload, err)
	}
	if !touched {
		return nil, errNoFields
	}
	return s.update(ctx, current, merged)
}

func (s *Service) update(ctx context.Context, current, merged *Patient) (*Patient, error) {
	err := s.flow.Execute(ctx, writeflow.Request{
		Table:    tableName,
		RowPK:    &merged.PatientID,
		Op:       writeflow.OpUpdate,
		Payload:  merged,
		Validate: func(context.Context) []string { return merged.Validate() },
		Mutate: func(ctx context.Context) (*writeflow.Result, error) {
			if err := s.repo.Update(ctx, merged); err != nil {
				return nil, err
			}
			return &writeflow.Result{RowPK: merged.PatientID, Old: current, New: merged}, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.flow.Execute(ctx, writeflow.Request{
		Table: tableName,
		RowPK: &id,
		Op:    writeflow.OpDelete,
		Mutate: func(ctx context.Context) (*writeflow.Result, error) {
			old, err := s.repo.Delete(ctx, id)
			if err != nil {
				return nil, err
			}
			return &writeflow.Result{RowPK: id, Old: old}, nil
		},
	})
}
