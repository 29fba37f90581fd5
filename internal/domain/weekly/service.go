package weekly

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/wardops/wardops/internal/platform/fault"
	"github.com/wardops/wardops/internal/platform/writeflow"
)

const tableName = "services_weekly"

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

// checkReport combines the field rules with the duplicate tuple
// pre-check. A probe failure skips the pre-check; the unique index
// remains the race backstop.
func (s *Service) checkReport(rep *Report, excludeID int64) func(ctx context.Context) []string {
	return func(ctx context.Context) []string {
		violations := rep.Validate()
		ok, err := s.repo.TupleExists(ctx, rep.Week, rep.Month, rep.Service, excludeID)
		if err == nil && ok {
			violations = append(violations, duplicateTuple(rep))
		}
		return violations
	}
}

func (s *Service) Create(ctx context.Context, rep *Report) error {
	return s.flow.Execute(ctx, writeflow.Request{
		Table:    tableName,
		Op:       writeflow.OpInsert,
		Payload:  rep,
		Validate: s.checkReport(rep, 0),
		Mutate: func(ctx context.Context) (*writeflow.Result, error) {
			if err := s.repo.Create(ctx, rep); err != nil {
				return nil, err
			}
			return &writeflow.Result{RowPK: strconv.FormatInt(rep.ID, 10), New: rep}, nil
		},
	})
}

func (s *Service) Get(ctx context.Context, id int64) (*Report, error) {
	rep, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fault.Store(tableName, err)
	}
	return rep, nil
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Report, int, error) {
	items, total, err := s.repo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, fault.Store(tableName, err)
	}
	return items, total, nil
}

// Metrics returns the single report for the (service, week, month)
// tuple, or a not-found fault.
func (s *Service) Metrics(ctx context.Context, service string, week, month int) (*Report, error) {
	rep, err := s.repo.Lookup(ctx, service, week, month)
	if err != nil {
		return nil, fault.Store(tableName, err)
	}
	return rep, nil
}

// Replace overwrites every mutable field of the row.
func (s *Service) Replace(ctx context.Context, rep *Report) (*Report, error) {
	current, err := s.repo.GetByID(ctx, rep.ID)
	if err != nil {
		return nil, fault.Store(tableName, err)
	}
	return s.update(ctx, current, rep)
}

// Patch merges the provided fields into the current row and validates
// the merged document, so a partial update can never make a row invalid.
func (s *Service) Patch(ctx context.Context, id int64, changes map[string]interface{}) (*Report, error) {
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

func (s *Service) update(ctx context.Context, current, merged *Report) (*Report, error) {
	pk := strconv.FormatInt(merged.ID, 10)
	err := s.flow.Execute(ctx, writeflow.Request{
		Table:    tableName,
		RowPK:    &pk,
		Op:       writeflow.OpUpdate,
		Payload:  merged,
		Validate: s.checkReport(merged, merged.ID),
		Mutate: func(ctx context.Context) (*writeflow.Result, error) {
			if err := s.repo.Update(ctx, merged); err != nil {
				return nil, err
			}
			return &writeflow.Result{RowPK: pk, Old: current, New: merged}, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	pk := strconv.FormatInt(id, 10)
	return s.flow.Execute(ctx, writeflow.Request{
		Table: tableName,
		RowPK: &pk,
		Op:    writeflow.OpDelete,
		Mutate: func(ctx context.Context) (*writeflow.Result, error) {
			old, err := s.repo.Delete(ctx, id)
			if err != nil {
				return nil, err
			}
			return &writeflow.Result{RowPK: pk, Old: old}, nil
		},
	})
}
