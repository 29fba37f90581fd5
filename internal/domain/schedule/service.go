package schedule

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/wardops/wardops/internal/platform/fault"
	"github.com/wardops/wardops/internal/platform/writeflow"
)

const tableName = "staff_schedule"

var (
	errNoFields   = errors.New("no fields to update")
	errBadPayload = errors.New("invalid patch payload")
)

// StaffDirectory answers existence probes for the staff reference
// pre-check. The staff repository satisfies it through a small adapter
// at wiring time.
type StaffDirectory interface {
	StaffExists(ctx context.Context, id string) (bool, error)
}

type Service struct {
	repo  Repo
	staff StaffDirectory
	flow  *writeflow.Coordinator
}

func NewService(repo Repo, staff StaffDirectory, flow *writeflow.Coordinator) *Service {
	return &Service{repo: repo, staff: staff, flow: flow}
}

// checkEntry combines the field rules with the staff reference
// pre-check. A probe failure skips the pre-check; on the relational
// backend the foreign key remains the race backstop.
func (s *Service) checkEntry(e *Entry) func(ctx context.Context) []string {
	return func(ctx context.Context) []string {
		violations := e.Validate()
		if e.StaffID != nil {
			ok, err := s.staff.StaffExists(ctx, *e.StaffID)
			if err == nil && !ok {
				violations = append(violations, fmt.Sprintf("staff_id=%s does not exist", *e.StaffID))
			}
		}
		return violations
	}
}

func (s *Service) Create(ctx context.Context, e *Entry) error {
	return s.flow.Execute(ctx, writeflow.Request{
		Table:    tableName,
		Op:       writeflow.OpInsert,
		Payload:  e,
		Validate: s.checkEntry(e),
		Mutate: func(ctx context.Context) (*writeflow.Result, error) {
			if err := s.repo.Create(ctx, e); err != nil {
				return nil, err
			}
			return &writeflow.Result{RowPK: strconv.FormatInt(e.ID, 10), New: e}, nil
		},
	})
}

func (s *Service) Get(ctx context.Context, id int64) (*Entry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fault.Store(tableName, err)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	items, total, err := s.repo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, fault.Store(tableName, err)
	}
	return items, total, nil
}

// Availability returns how many scheduled staff are on shift for the
// given service and day/shift.
func (s *Service) Availability(ctx context.Context, service, dayOrShift string) (int, error) {
	n, err := s.repo.CountOnShift(ctx, service, dayOrShift)
	if err != nil {
		return 0, fault.Store(tableName, err)
	}
	return n, nil
}

// Replace overwrites every mutable field of the row.
func (s *Service) Replace(ctx context.Context, e *Entry) (*Entry, error) {
	current, err := s.repo.GetByID(ctx, e.ID)
	if err != nil {
		return nil, fault.Store(tableName, err)
	}
	return s.update(ctx, current, e)
}

// Patch merges the provided fields into the current row and validates
// the merged document, so a partial update can never make a row invalid.
func (s *Service) Patch(ctx context.Context, id int64, changes map[string]interface{}) (*Entry, error) {
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

func (s *Service) update(ctx context.Context, current, merged *Entry) (*Entry, error) {
	pk := strconv.FormatInt(merged.ID, 10)
	err := s.flow.Execute(ctx, writeflow.Request{
		Table:    tableName,
		RowPK:    &pk,
		Op:       writeflow.OpUpdate,
		Payload:  merged,
		Validate: s.checkEntry(merged),
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
