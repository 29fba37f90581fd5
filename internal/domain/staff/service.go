package staff

import (
	"context"
	"errors"
	"fmt"

	"github.com/wardops/wardops/internal/platform/auth"
	"github.com/wardops/wardops/internal/platform/fault"
	"github.com/wardops/wardops/internal/platform/writeflow"
)

const tableName = "staff"

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

// AuditObserver returns an UpdateObserver that records staff updates
// through the given audit recorder. Bind it to the repository at wiring
// time so store-level updates are audited even when they bypass the
// service.
func AuditObserver(audits writeflow.AuditRecorder) UpdateObserver {
	return UpdateObserverFunc(func(ctx context.Context, old, updated *Staff) error {
		pk := updated.StaffID
		return audits.RecordChange(ctx, writeflow.Change{
			Table: tableName,
			RowPK: &pk,
			Op:    writeflow.OpUpdate,
			Old:   old,
			New:   updated,
			Actor: auth.ActorFromContext(ctx),
		})
	})
}

func (s *Service) Create(ctx context.Context, st *Staff) error {
	return s.flow.Execute(ctx, writeflow.Request{
		Table:    tableName,
		Op:       writeflow.OpInsert,
		Payload:  st,
		Validate: func(context.Context) []string { return st.Validate() },
		Mutate: func(ctx context.Context) (*writeflow.Result, error) {
			if err := s.repo.Create(ctx, st); err != nil {
				return nil, err
			}
			return &writeflow.Result{RowPK: st.StaffID, New: st}, nil
		},
	})
}

func (s *Service) Get(ctx context.Context, id string) (*Staff, error) {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fault.Store(tableName, err)
	}
	return st, nil
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Staff, int, error) {
	items, total, err := s.repo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, fault.Store(tableName, err)
	}
	return items, total, nil
}

// Replace overwrites every mutable field of the row.
func (s *Service) Replace(ctx context.Context, st *Staff) (*Staff, error) {
	current, err := s.repo.GetByID(ctx, st.StaffID)
	if err != nil {
		return nil, fault.Store(tableName, err)
	}
	return s.update(ctx, current, st)
}

// Patch merges the provided fields into the current row and validates
// the merged document, so a partial update can never make a row invalid.
func (s *Service) Patch(ctx context.Context, id string, changes map[string]interface{}) (*Staff, error) {
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

func (s *Service) update(ctx context.Context, current, merged *Staff) (*Staff, error) {
	err := s.flow.Execute(ctx, writeflow.Request{
		Table:    tableName,
		RowPK:    &merged.StaffID,
		Op:       writeflow.OpUpdate,
		Payload:  merged,
		Validate: func(context.Context) []string { return merged.Validate() },
		Mutate: func(ctx context.Context) (*writeflow.Result, error) {
			if err := s.repo.Update(ctx, merged); err != nil {
				return nil, err
			}
			// The store-level observer already audited this update.
			return &writeflow.Result{RowPK: merged.StaffID, Old: current, New: merged, Audited: true}, nil
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
