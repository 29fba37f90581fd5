package schedule

import "context"

// Filter narrows List results. OnShift is a tri-state: nil means no
// filter.
type Filter struct {
	Service    string
	DayOrShift string
	StaffID    string
	OnShift    *bool
}

type Repo interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id int64) (*Entry, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error)
	Update(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, id int64) (*Entry, error)
	CountOnShift(ctx context.Context, service, dayOrShift string) (int, error)
}
