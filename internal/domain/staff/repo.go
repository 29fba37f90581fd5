package staff

import (
	"context"
)

// UpdateObserver is notified on every staff row update with the old and
// new snapshots. Repositories fire it at the store level, so the
// notification happens exactly once per logical update regardless of
// which call path performed the mutation.
type UpdateObserver interface {
	StaffUpdated(ctx context.Context, old, updated *Staff) error
}

// UpdateObserverFunc adapts a function to UpdateObserver.
type UpdateObserverFunc func(ctx context.Context, old, updated *Staff) error

func (f UpdateObserverFunc) StaffUpdated(ctx context.Context, old, updated *Staff) error {
	return f(ctx, old, updated)
}

// Filter narrows List reads. Zero fields match everything.
type Filter struct {
	Service string
	Role    string
}

type Repo interface {
	Create(ctx context.Context, s *Staff) error
	GetByID(ctx context.Context, id string) (*Staff, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Staff, int, error)
	Update(ctx context.Context, s *Staff) error
	Delete(ctx context.Context, id string) (*Staff, error)
	SetUpdateObserver(obs UpdateObserver)
}
